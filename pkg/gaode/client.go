// Package gaode is a thin client for the Gaode (AMap) place search web service.
// Each call fetches exactly one page; pagination and rate limiting live in the caller.
package gaode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

const (
	defaultBaseURL = "https://restapi.amap.com"
	textSearchPath = "/v3/place/text"
	aroundPath     = "/v3/place/around"

	// MaxPageSize is the largest offset the place API accepts.
	MaxPageSize = 25

	placeholderKey = "REPLACE_WITH_GAODE_API_KEY"
	maxErrorBody   = 512
)

// Client performs Gaode place search operations.
type Client interface {
	TextSearch(ctx context.Context, params TextSearchParams) (*SearchResponse, error)
	AroundSearch(ctx context.Context, params AroundSearchParams) (*SearchResponse, error)
	HasKey() bool
}

// TextSearchParams are the query parameters of a keyword search page.
type TextSearchParams struct {
	Keywords string
	City     string
	PageSize int
	Page     int
}

// AroundSearchParams are the query parameters of a radius search page.
type AroundSearchParams struct {
	Lng          float64
	Lat          float64
	RadiusMeters int
	Keywords     string
	PageSize     int
	Page         int
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a Gaode place search client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  strings.TrimSpace(apiKey),
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// HasKey reports whether a usable API key is configured.
func (c *httpClient) HasKey() bool {
	return c.apiKey != "" && !strings.Contains(c.apiKey, placeholderKey)
}

func (c *httpClient) TextSearch(ctx context.Context, p TextSearchParams) (*SearchResponse, error) {
	q := url.Values{}
	q.Set("keywords", p.Keywords)
	if p.City != "" {
		q.Set("city", p.City)
		q.Set("citylimit", "true")
	}
	return c.search(ctx, textSearchPath, q, p.PageSize, p.Page)
}

func (c *httpClient) AroundSearch(ctx context.Context, p AroundSearchParams) (*SearchResponse, error) {
	q := url.Values{}
	q.Set("location", FormatLocation(p.Lng, p.Lat))
	q.Set("radius", strconv.Itoa(p.RadiusMeters))
	if p.Keywords != "" {
		q.Set("keywords", p.Keywords)
	}
	return c.search(ctx, aroundPath, q, p.PageSize, p.Page)
}

func (c *httpClient) search(ctx context.Context, path string, q url.Values, pageSize, page int) (*SearchResponse, error) {
	if !c.HasKey() {
		return nil, ErrMissingKey
	}
	if pageSize <= 0 || pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	if page <= 0 {
		page = 1
	}
	q.Set("offset", strconv.Itoa(pageSize))
	q.Set("page", strconv.Itoa(page))
	q.Set("extensions", "base")
	q.Set("output", "JSON")
	q.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "gaode: create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "gaode: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "gaode: read response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body := string(respBody)
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: body}
	}

	var result SearchResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, eris.Wrap(err, "gaode: unmarshal response")
	}
	if result.Status != "1" {
		return nil, &APIError{Info: result.Info, InfoCode: result.InfoCode}
	}

	return &result, nil
}

// FormatLocation renders a coordinate as the "lng,lat" string the API expects.
func FormatLocation(lng, lat float64) string {
	return strconv.FormatFloat(lng, 'f', 6, 64) + "," + strconv.FormatFloat(lat, 'f', 6, 64)
}

// ParseLocation parses a "lng,lat" string. ok is false when either part is missing
// or not a number.
func ParseLocation(s string) (lng, lat float64, ok bool) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 2 {
		return 0, 0, false
	}
	lng, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lat, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return lng, lat, true
}
