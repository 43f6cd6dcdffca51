package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/yourorg/listing-harvester/realtor"
)

// Postgres archives normalized listings. The table is keyed on the upstream
// property id; re-harvesting the same listing replaces the row and its photo
// set.
type Postgres struct {
	db *sql.DB
}

func Open(ctx context.Context, dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	db.SetMaxOpenConns(8)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) Close() error { return p.db.Close() }

func (p *Postgres) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS listings (
			property_id        TEXT PRIMARY KEY,
			list_date          TIMESTAMPTZ,
			house_type         TEXT,
			house_type_imputed TEXT,
			price              BIGINT NOT NULL,
			street             TEXT NOT NULL,
			city               TEXT NOT NULL,
			state              TEXT NOT NULL,
			postal_code        TEXT NOT NULL,
			address            TEXT NOT NULL,
			description        TEXT,
			beds               INTEGER,
			baths              INTEGER,
			garage             INTEGER,
			stories            INTEGER,
			sqft               INTEGER,
			lot_sqft           INTEGER,
			year_built         INTEGER,
			tags               TEXT,
			county             TEXT,
			latitude           DOUBLE PRECISION,
			longitude          DOUBLE PRECISION,
			is_coming_soon     BOOLEAN NOT NULL DEFAULT FALSE,
			is_pending         BOOLEAN NOT NULL DEFAULT FALSE,
			is_foreclosure     BOOLEAN NOT NULL DEFAULT FALSE,
			is_contingent      BOOLEAN NOT NULL DEFAULT FALSE,
			is_new_construction BOOLEAN NOT NULL DEFAULT FALSE,
			is_new_listing     BOOLEAN NOT NULL DEFAULT FALSE,
			is_price_reduced   BOOLEAN NOT NULL DEFAULT FALSE,
			is_plan            BOOLEAN NOT NULL DEFAULT FALSE,
			is_subdivision     BOOLEAN NOT NULL DEFAULT FALSE,
			status             TEXT NOT NULL,
			primary_photo      TEXT,
			virtual_tour       TEXT,
			harvested_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS listing_photos (
			property_id TEXT NOT NULL REFERENCES listings(property_id) ON DELETE CASCADE,
			url         TEXT NOT NULL,
			filename    TEXT NOT NULL,
			position    INTEGER NOT NULL,
			PRIMARY KEY (property_id, position)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_listings_postal_code ON listings (postal_code)`,
		`CREATE INDEX IF NOT EXISTS idx_listings_status ON listings (status)`,
	}
	for _, stmt := range stmts {
		if _, err := p.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store: migrate: %w", err)
		}
	}
	return nil
}

const upsertListingSQL = `
INSERT INTO listings (
	property_id, list_date, house_type, house_type_imputed,
	price, street, city, state, postal_code, address, description,
	beds, baths, garage, stories, sqft, lot_sqft, year_built,
	tags, county, latitude, longitude,
	is_coming_soon, is_pending, is_foreclosure, is_contingent,
	is_new_construction, is_new_listing, is_price_reduced, is_plan, is_subdivision,
	status, primary_photo, virtual_tour, harvested_at
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11,
	$12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22,
	$23, $24, $25, $26, $27, $28, $29, $30, $31, $32, $33, $34, NOW()
)
ON CONFLICT (property_id) DO UPDATE SET
	list_date = EXCLUDED.list_date,
	house_type = EXCLUDED.house_type,
	house_type_imputed = EXCLUDED.house_type_imputed,
	price = EXCLUDED.price,
	street = EXCLUDED.street,
	city = EXCLUDED.city,
	state = EXCLUDED.state,
	postal_code = EXCLUDED.postal_code,
	address = EXCLUDED.address,
	description = EXCLUDED.description,
	beds = EXCLUDED.beds,
	baths = EXCLUDED.baths,
	garage = EXCLUDED.garage,
	stories = EXCLUDED.stories,
	sqft = EXCLUDED.sqft,
	lot_sqft = EXCLUDED.lot_sqft,
	year_built = EXCLUDED.year_built,
	tags = EXCLUDED.tags,
	county = EXCLUDED.county,
	latitude = EXCLUDED.latitude,
	longitude = EXCLUDED.longitude,
	is_coming_soon = EXCLUDED.is_coming_soon,
	is_pending = EXCLUDED.is_pending,
	is_foreclosure = EXCLUDED.is_foreclosure,
	is_contingent = EXCLUDED.is_contingent,
	is_new_construction = EXCLUDED.is_new_construction,
	is_new_listing = EXCLUDED.is_new_listing,
	is_price_reduced = EXCLUDED.is_price_reduced,
	is_plan = EXCLUDED.is_plan,
	is_subdivision = EXCLUDED.is_subdivision,
	status = EXCLUDED.status,
	primary_photo = EXCLUDED.primary_photo,
	virtual_tour = EXCLUDED.virtual_tour,
	harvested_at = NOW()`

func (p *Postgres) UpsertListing(ctx context.Context, rec realtor.ListingRecord) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, upsertListingSQL,
		rec.ID,
		sqlNullTime(rec.ListDate),
		sqlNullString(rec.HouseType),
		sqlNullString(rec.HouseTypeImputed),
		rec.Price,
		rec.Street,
		rec.City,
		rec.State,
		rec.PostalCode,
		rec.Address,
		sqlNullString(rec.Text),
		sqlNullInt(rec.Beds),
		sqlNullInt(rec.Baths),
		sqlNullInt(rec.Garage),
		sqlNullInt(rec.Stories),
		sqlNullInt(rec.Sqft),
		sqlNullInt(rec.LotSqft),
		sqlNullInt(rec.YearBuilt),
		sqlNullString(rec.Tags),
		sqlNullString(rec.County),
		sqlNullFloat(rec.Lat),
		sqlNullFloat(rec.Lon),
		rec.IsComingSoon,
		rec.IsPending,
		rec.IsForeclosure,
		rec.IsContingent,
		rec.IsNewConstruction,
		rec.IsNewListing,
		rec.IsPriceReduced,
		rec.IsPlan,
		rec.IsSubdivision,
		string(rec.Status),
		sqlNullString(rec.PrimaryPhoto),
		sqlNullString(rec.VirtualTour),
	)
	if err != nil {
		return fmt.Errorf("store: upsert %s: %w", rec.ID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM listing_photos WHERE property_id = $1`, rec.ID); err != nil {
		return fmt.Errorf("store: clear photos %s: %w", rec.ID, err)
	}
	for i := range rec.Photos {
		if i >= len(rec.PhotoFilenames) {
			break
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO listing_photos (property_id, url, filename, position) VALUES ($1, $2, $3, $4)`,
			rec.ID, rec.Photos[i], rec.PhotoFilenames[i], i,
		)
		if err != nil {
			return fmt.Errorf("store: insert photo %s: %w", rec.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit %s: %w", rec.ID, err)
	}
	return nil
}

// ListPhotoAssets returns the archived photo set across every listing,
// ordered by filename.
func (p *Postgres) ListPhotoAssets(ctx context.Context) ([]realtor.PhotoAsset, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT url, filename FROM listing_photos ORDER BY filename`)
	if err != nil {
		return nil, fmt.Errorf("store: list photos: %w", err)
	}
	defer rows.Close()

	var out []realtor.PhotoAsset
	for rows.Next() {
		var a realtor.PhotoAsset
		if err := rows.Scan(&a.URL, &a.Filename); err != nil {
			return nil, fmt.Errorf("store: scan photo: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Empty strings map to NULL so optional text columns stay clean.
func sqlNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func sqlNullInt(n *int) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*n), Valid: true}
}

func sqlNullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func sqlNullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}
