package realtor

import (
	"strings"
	"time"
	"unicode"
)

// Normalize maps one raw search result onto the flat record schema. Pure, no
// I/O. Records missing a required field come back with a *FieldMissingError
// and must be dropped by the caller; everything optional is tolerated.
func Normalize(e RawEntry) (ListingRecord, error) {
	var rec ListingRecord

	if e.PropertyID == "" {
		return rec, &FieldMissingError{Field: "property_id"}
	}
	if e.ListPrice == nil {
		return rec, &FieldMissingError{Field: "list_price"}
	}
	if e.Location == nil || e.Location.Address == nil {
		return rec, &FieldMissingError{Field: "location.address"}
	}
	addr := e.Location.Address
	switch {
	case addr.Line == "":
		return rec, &FieldMissingError{Field: "location.address.line"}
	case addr.PostalCode == "":
		return rec, &FieldMissingError{Field: "location.address.postal_code"}
	case addr.StateCode == "":
		return rec, &FieldMissingError{Field: "location.address.state_code"}
	case addr.City == "":
		return rec, &FieldMissingError{Field: "location.address.city"}
	}

	rec.ID = e.PropertyID
	rec.Price = int(*e.ListPrice)
	rec.ListDate = parseListDate(e.ListDate)
	rec.Street = addr.Line
	rec.City = addr.City
	rec.State = addr.StateCode
	rec.PostalCode = addr.PostalCode
	rec.Address = addr.Line + ", " + addr.City + ", " + addr.StateCode + " " + addr.PostalCode

	if addr.Coordinate != nil {
		lat, lon := addr.Coordinate.Lat, addr.Coordinate.Lon
		rec.Lat, rec.Lon = &lat, &lon
	}
	if e.Location.County != nil {
		rec.County = e.Location.County.Name
	}

	if d := e.Description; d != nil {
		if d.Type != nil {
			rec.HouseType = strings.ReplaceAll(*d.Type, "_", " ")
		}
		if d.Text != nil {
			rec.Text = *d.Text
		}
		rec.Beds = toIntPtr(d.Beds)
		rec.Baths = toIntPtr(d.Baths)
		rec.Garage = toIntPtr(d.Garage)
		rec.Stories = toIntPtr(d.Stories)
		rec.Sqft = toIntPtr(d.Sqft)
		rec.LotSqft = toIntPtr(d.LotSqft)
		rec.YearBuilt = toIntPtr(d.YearBuilt)
	}
	rec.HouseTypeImputed = imputeHouseType(rec.HouseType)

	rec.Tags = joinTags(e.Tags)

	if f := e.Flags; f != nil {
		rec.IsComingSoon = f.IsComingSoon
		rec.IsPending = f.IsPending
		rec.IsForeclosure = f.IsForeclosure
		rec.IsContingent = f.IsContingent
		rec.IsNewConstruction = f.IsNewConstruction
		rec.IsNewListing = f.IsNewListing
		rec.IsPriceReduced = f.IsPriceReduced
		rec.IsPlan = f.IsPlan
		rec.IsSubdivision = f.IsSubdivision
	}
	rec.Status = imputeStatus(rec.IsComingSoon, rec.IsPending)

	if e.PrimaryPhoto != nil {
		rec.PrimaryPhoto = e.PrimaryPhoto.Href
	}
	for _, p := range e.Photos {
		if p.Href == "" {
			continue
		}
		rewritten := rewritePhotoURL(p.Href)
		rec.Photos = append(rec.Photos, rewritten)
		rec.PhotoFilenames = append(rec.PhotoFilenames, photoFilename(rewritten))
	}
	for _, t := range e.VirtualTours {
		if t.Href != "" {
			rec.VirtualTour = t.Href
			break
		}
	}

	return rec, nil
}

// imputeStatus derives the marketed state; coming-soon dominates pending.
func imputeStatus(comingSoon, pending bool) Status {
	switch {
	case comingSoon:
		return StatusComingSoon
	case pending:
		return StatusPending
	default:
		return StatusForSale
	}
}

// imputeHouseType maps the raw (space-separated) type onto display categories.
// An absent type stays absent rather than becoming "Other".
func imputeHouseType(t string) string {
	switch {
	case t == "":
		return ""
	case t == "single family":
		return "Single Family"
	case t == "multi family":
		return "Multi Family"
	case t == "land":
		return "Land"
	case t == "mobile":
		return "Mobile"
	case strings.Contains(t, "condo"):
		return "Condominium"
	case strings.Contains(t, "townho"):
		return "Townhome"
	case strings.Contains(t, "coop"):
		return "Co-op"
	case t == "farm":
		return "Farm"
	default:
		return "Other"
	}
}

func joinTags(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		out = append(out, titleCase(strings.ReplaceAll(tag, "_", " ")))
	}
	return strings.Join(out, ",")
}

// titleCase uppercases the first letter of every word, where a word starts
// after any non-letter rune.
func titleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
		} else {
			b.WriteRune(r)
			prevLetter = false
		}
	}
	return b.String()
}

func toIntPtr(v *float64) *int {
	if v == nil {
		return nil
	}
	i := int(*v)
	return &i
}

var listDateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseListDate(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range listDateLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts
		}
	}
	return time.Time{}
}
