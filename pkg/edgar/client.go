package edgar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://data.sec.gov"

// The ticker directory is ~1MB and changes rarely; one connector serves
// the whole process, so the directory is fetched at most once per TTL.
const tickerCacheTTL = 24 * time.Hour

// Connector opens connections to the filing-retrieval backend. One
// connection is acquired per pipeline run and never shared across runs.
type Connector interface {
	Connect(ctx context.Context) (Conn, error)
}

// Conn is a live handle to the backend. It is safe for read-only use
// by every stage of a single run and must be closed exactly once.
type Conn interface {
	FetchStatements(ctx context.Context, ticker string) (*FilingData, error)
	Close() error
}

// Option configures the connector.
type Option func(*httpConnector)

// WithBaseURL overrides the default EDGAR base URL.
func WithBaseURL(url string) Option {
	return func(c *httpConnector) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpConnector) {
		c.http = hc
	}
}

// WithRateLimit overrides the courtesy request rate (requests/second).
func WithRateLimit(rps float64) Option {
	return func(c *httpConnector) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

type httpConnector struct {
	baseURL   string
	userAgent string
	http      *http.Client
	limiter   *rate.Limiter

	mu        sync.Mutex
	tickers   map[string]tickerEntry
	fetchedAt time.Time
}

// NewConnector creates an EDGAR connector. The SEC requires a
// descriptive User-Agent with a contact address on every request.
func NewConnector(userAgent string, opts ...Option) Connector {
	c := &httpConnector{
		baseURL:   defaultBaseURL,
		userAgent: userAgent,
		http: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		// SEC fair-access guideline is 10 req/s.
		limiter: rate.NewLimiter(rate.Limit(10), 1),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Connect resolves the ticker directory up front so that a dead or
// unreachable backend fails at acquisition time, not mid-pipeline.
func (c *httpConnector) Connect(ctx context.Context) (Conn, error) {
	tickers, err := c.tickerDirectory(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "edgar: connect")
	}
	return &httpConn{connector: c, tickers: tickers}, nil
}

// tickerDirectory returns the cached ticker→CIK directory, fetching it
// when the cache is empty or stale. Failed fetches are never cached.
func (c *httpConnector) tickerDirectory(ctx context.Context) (map[string]tickerEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.tickers != nil && time.Since(c.fetchedAt) < tickerCacheTTL {
		return c.tickers, nil
	}

	tickers, err := c.fetchTickerDirectory(ctx)
	if err != nil {
		return nil, err
	}
	c.tickers = tickers
	c.fetchedAt = time.Now()
	return tickers, nil
}

type httpConn struct {
	connector *httpConnector
	tickers   map[string]tickerEntry
	closed    bool
}

type tickerEntry struct {
	CIK  int    `json:"cik_str"`
	Name string `json:"title"`
}

// FetchStatements retrieves registrant metadata and the full company
// facts payload for a ticker.
func (h *httpConn) FetchStatements(ctx context.Context, ticker string) (*FilingData, error) {
	if h.closed {
		return nil, eris.New("edgar: connection closed")
	}

	entry, ok := h.tickers[strings.ToUpper(ticker)]
	if !ok {
		return nil, eris.Errorf("edgar: unknown ticker %q", ticker)
	}

	data := &FilingData{
		Ticker:     strings.ToUpper(ticker),
		CIK:        entry.CIK,
		EntityName: entry.Name,
	}

	// Registrant metadata (SIC code) from the submissions endpoint.
	var sub struct {
		SIC        string `json:"sic"`
		EntityName string `json:"name"`
	}
	subURL := fmt.Sprintf("%s/submissions/CIK%010d.json", h.connector.baseURL, entry.CIK)
	if err := h.connector.getJSON(ctx, subURL, &sub); err != nil {
		return nil, eris.Wrapf(err, "edgar: fetch submissions CIK %d", entry.CIK)
	}
	if sub.EntityName != "" {
		data.EntityName = sub.EntityName
	}
	if sic, err := strconv.Atoi(strings.TrimSpace(sub.SIC)); err == nil {
		data.SIC = &sic
	}

	var facts CompanyFacts
	factsURL := fmt.Sprintf("%s/api/xbrl/companyfacts/CIK%010d.json", h.connector.baseURL, entry.CIK)
	if err := h.connector.getJSON(ctx, factsURL, &facts); err != nil {
		return nil, eris.Wrapf(err, "edgar: fetch company facts CIK %d", entry.CIK)
	}
	data.Facts = &facts

	return data, nil
}

// Close releases the handle. Subsequent fetches fail.
func (h *httpConn) Close() error {
	h.closed = true
	h.connector.http.CloseIdleConnections()
	return nil
}

func (c *httpConnector) fetchTickerDirectory(ctx context.Context) (map[string]tickerEntry, error) {
	// company_tickers.json lives on www.sec.gov, not data.sec.gov; when
	// the base URL is overridden (tests), use it directly.
	url := "https://www.sec.gov/files/company_tickers.json"
	if c.baseURL != defaultBaseURL {
		url = c.baseURL + "/files/company_tickers.json"
	}

	var raw map[string]struct {
		CIK    int    `json:"cik_str"`
		Ticker string `json:"ticker"`
		Title  string `json:"title"`
	}
	if err := c.getJSON(ctx, url, &raw); err != nil {
		return nil, eris.Wrap(err, "fetch ticker directory")
	}

	tickers := make(map[string]tickerEntry, len(raw))
	for _, e := range raw {
		tickers[strings.ToUpper(e.Ticker)] = tickerEntry{CIK: e.CIK, Name: e.Title}
	}
	return tickers, nil
}

func (c *httpConnector) getJSON(ctx context.Context, url string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "rate limit wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return eris.Wrap(err, "create request")
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "execute request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return eris.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return eris.Wrap(err, "decode response")
	}
	return nil
}
