package realtor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL   = "https://www.realtor.com/api/v1/hulk?client_id=rdc-x&schema=vesta"
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/96.0.4664.110 Safari/537.36"

	maxResponseBytes = 8 << 20
)

// ClientConfig is the immutable outbound configuration for the search client.
type ClientConfig struct {
	BaseURL     string
	ProxyURL    string // outbound proxy endpoint, "" for direct
	UserAgent   string
	Retries     int           // retry budget per HTTP call
	BackoffBase time.Duration // minimum retry wait
	Timeout     time.Duration // per-request timeout
	PageSize    int

	// RequestsPerSecond bounds the outbound call rate across all pages and
	// partitions sharing this client. 0 disables the limiter.
	RequestsPerSecond float64
}

func (c ClientConfig) withDefaults() ClientConfig {
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	if c.UserAgent == "" {
		c.UserAgent = defaultUserAgent
	}
	if c.Retries <= 0 {
		c.Retries = 3
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = 500 * time.Millisecond
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.PageSize <= 0 {
		c.PageSize = 200
	}
	return c
}

type Client struct {
	cfg     ClientConfig
	http    *retryablehttp.Client
	limiter *rate.Limiter
	log     *slog.Logger
}

func NewClient(cfg ClientConfig, log *slog.Logger) (*Client, error) {
	cfg = cfg.withDefaults()

	rc := retryablehttp.NewClient()
	rc.RetryMax = cfg.Retries
	rc.RetryWaitMin = cfg.BackoffBase
	rc.RetryWaitMax = cfg.BackoffBase * 8
	rc.HTTPClient.Timeout = cfg.Timeout
	rc.Logger = nil

	if cfg.ProxyURL != "" {
		proxy, err := url.Parse(cfg.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("proxy url: %w", err)
		}
		rc.HTTPClient.Transport = &http.Transport{Proxy: http.ProxyURL(proxy)}
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	if log == nil {
		log = slog.Default()
	}
	return &Client{cfg: cfg, http: rc, limiter: limiter, log: log}, nil
}

// PageSize reports the configured page size, after defaulting.
func (c *Client) PageSize() int { return c.cfg.PageSize }

type searchPage struct {
	Results []RawEntry
	Total   int
}

func (c *Client) search(ctx context.Context, postalCode string, offset int) (*searchPage, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &TransientError{PostalCode: postalCode, Err: err}
		}
	}

	body, err := json.Marshal(newSearchRequest(postalCode, offset, c.cfg.PageSize))
	if err != nil {
		return nil, fmt.Errorf("encode search request: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("content-type", "application/json")
	req.Header.Set("accept", "application/json")
	req.Header.Set("user-agent", c.cfg.UserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransientError{PostalCode: postalCode, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, &TransientError{PostalCode: postalCode, Err: fmt.Errorf("status %d after retries", resp.StatusCode)}
	}

	raw, err := ioReadAllLimit(resp.Body, maxResponseBytes)
	if err != nil {
		return nil, &TransientError{PostalCode: postalCode, Err: err}
	}

	var decoded searchResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, &MalformedResponseError{PostalCode: postalCode, Detail: err.Error()}
	}
	if decoded.Data == nil || decoded.Data.HomeSearch == nil {
		return nil, &MalformedResponseError{PostalCode: postalCode, Detail: "data.home_search missing"}
	}
	return &searchPage{Results: decoded.Data.HomeSearch.Results, Total: decoded.Data.HomeSearch.Total}, nil
}

func ioReadAllLimit(r io.Reader, limit int64) ([]byte, error) {
	lr := io.LimitReader(r, limit+1)
	b, err := io.ReadAll(lr)
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > limit {
		return nil, errors.New("payload too large")
	}
	return b, nil
}
