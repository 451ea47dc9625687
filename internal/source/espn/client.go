package espn

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"

	"github.com/evgenk/nfl-fantasy-data/internal/platform/cache"
	"github.com/evgenk/nfl-fantasy-data/internal/platform/logging"
	"github.com/evgenk/nfl-fantasy-data/internal/platform/ratelimit"
	"github.com/evgenk/nfl-fantasy-data/internal/source"
)

// SourceName is the rate limiter key for the ESPN site API.
const SourceName = "espn_api"

const defaultBaseURL = "https://site.api.espn.com/apis/site/v2/sports/football/nfl"

type ClientConfig struct {
	HTTPClient *http.Client
	BaseURL    string
	Timeout    time.Duration
	Logger     *logging.Logger
	Limiter    *ratelimit.Limiter
	Cache      *cache.Store
}

// Client talks to the unauthenticated ESPN site API. Every request goes
// through the shared rate limiter under SourceName, and identical URLs
// within the cache TTL are served from memory.
type Client struct {
	httpClient *http.Client
	baseURL    string
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

	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		logger:     logger,
		limiter:    cfg.Limiter,
		cache:      cfg.Cache,
	}
}

func (c *Client) getJSON(ctx context.Context, path string, query map[string]string, target any) error {
	values := url.Values{}
	for key, value := range query {
		values.Set(key, value)
	}

	fullURL := c.baseURL + path
	if encoded := values.Encode(); encoded != "" {
		fullURL += "?" + encoded
	}

	raw, err := c.fetchBody(ctx, fullURL)
	if err != nil {
		return err
	}

	if err := sonic.Unmarshal(raw, target); err != nil {
		return crerr.Wrapf(source.ErrUnavailable, "decode %s: %v", fullURL, err)
	}
	return nil
}

func (c *Client) fetchBody(ctx context.Context, fullURL string) ([]byte, error) {
	loader := func(ctx context.Context) (any, error) {
		if c.limiter != nil {
			if err := c.limiter.Acquire(ctx, SourceName); err != nil {
				return nil, crerr.Wrap(err, "espn")
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
	return raw, nil
}

func (c *Client) executeRequest(ctx context.Context, fullURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, crerr.Wrapf(source.ErrUnavailable, "espn request: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, crerr.Wrapf(source.ErrUnavailable, "read espn response: %v", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, crerr.Wrapf(source.ErrUnavailable, "espn status %d for %s", resp.StatusCode, fullURL)
	}
	return raw, nil
}
