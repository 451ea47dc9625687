package pfr

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	crerr "github.com/cockroachdb/errors"

	"github.com/evgenk/nfl-fantasy-data/internal/platform/cache"
	"github.com/evgenk/nfl-fantasy-data/internal/platform/logging"
	"github.com/evgenk/nfl-fantasy-data/internal/platform/ratelimit"
	"github.com/evgenk/nfl-fantasy-data/internal/source"
)

// SourceName is the rate limiter key for pro-football-reference.com.
// The site throttles aggressively, so the base interval is the slowest
// of all sources.
const SourceName = "pro_football_ref"

const defaultBaseURL = "https://www.pro-football-reference.com"

// pfrTeamCodes maps canonical codes onto the franchise stems PFR uses
// in its URLs.
var pfrTeamCodes = map[string]string{
	"WAS": "was",
	"LV":  "rai",
	"LAR": "ram",
	"LAC": "sdg",
	"KC":  "kan",
	"GB":  "gnb",
	"NE":  "nwe",
	"NO":  "nor",
	"SF":  "sfo",
	"TB":  "tam",
	"ARI": "crd",
	"BAL": "rav",
	"HOU": "htx",
	"IND": "clt",
	"TEN": "oti",
}

func teamStem(code string) string {
	if stem, ok := pfrTeamCodes[strings.ToUpper(code)]; ok {
		return stem
	}
	return strings.ToLower(code)
}

type ClientConfig struct {
	HTTPClient *http.Client
	BaseURL    string
	Timeout    time.Duration
	UserAgent  string
	Logger     *logging.Logger
	Limiter    *ratelimit.Limiter
	Cache      *cache.Store
}

// Client fetches and parses PFR pages. Pages are cached by URL, so the
// roster and boxscore adapters never hit the same page twice in a run.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	logger     *logging.Logger
	limiter    *ratelimit.Limiter
	cache      *cache.Store
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = 30 * time.Second
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		userAgent:  userAgent,
		logger:     logger,
		limiter:    cfg.Limiter,
		cache:      cfg.Cache,
	}
}

func (c *Client) getDocument(ctx context.Context, path string) (*goquery.Document, error) {
	fullURL := c.baseURL + path

	loader := func(ctx context.Context) (any, error) {
		if c.limiter != nil {
			if err := c.limiter.Acquire(ctx, SourceName); err != nil {
				return nil, crerr.Wrap(err, "pfr")
			}
		}

		raw, err := c.executeRequest(ctx, fullURL)
		if c.limiter != nil {
			if err != nil && ctx.Err() == nil {
				c.limiter.ReportFailure(SourceName)
			} else if err == nil {
				c.limiter.ReportSuccess(SourceName)
			}
		}
		return raw, err
	}

	var out any
	var err error
	if c.cache != nil {
		out, err = c.cache.GetOrLoad(ctx, fullURL, loader)
	} else {
		out, err = loader(ctx)
	}
	if err != nil {
		return nil, err
	}

	raw, ok := out.([]byte)
	if !ok {
		return nil, fmt.Errorf("unexpected cached payload type %T", out)
	}

	// PFR ships several stats tables inside HTML comments for lazy
	// rendering. Stripping the comment markers makes them parseable.
	raw = bytes.ReplaceAll(raw, []byte("<!--"), nil)
	raw = bytes.ReplaceAll(raw, []byte("-->"), nil)

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return nil, crerr.Wrapf(source.ErrUnavailable, "parse %s: %v", fullURL, err)
	}
	return doc, nil
}

func (c *Client) executeRequest(ctx context.Context, fullURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, crerr.Wrapf(source.ErrUnavailable, "pfr request: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, crerr.Wrapf(source.ErrUnavailable, "read pfr response: %v", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, crerr.Wrapf(source.ErrEmpty, "pfr 404 for %s", fullURL)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, crerr.Wrapf(source.ErrUnavailable, "pfr status %d for %s", resp.StatusCode, fullURL)
	}
	return raw, nil
}
