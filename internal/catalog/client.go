// Package catalog fetches and models the OpenRouter model catalog.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kimeltech/mcp-chat/internal/cache"
	"github.com/kimeltech/mcp-chat/internal/config"
	"github.com/kimeltech/mcp-chat/internal/utils/httpclient"
	"github.com/sirupsen/logrus"
	"resty.dev/v3"
)

// ErrCatalogUnavailable wraps every failure to obtain the catalog
var ErrCatalogUnavailable = errors.New("model catalog unavailable")

// DefaultTimeout bounds a single catalog request
const DefaultTimeout = 30 * time.Second

// maxErrorBody caps how much of an error body ends up in error messages
const maxErrorBody = 500

// ClientConfig configures a Client
type ClientConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client fetches the catalog and keeps the last successful result in a caller-owned
// snapshot.
type Client struct {
	http     *resty.Client
	baseURL  string
	apiKey   string
	snapshot *cache.Snapshot[[]Model]
	logger   *logrus.Logger
}

// NewClient creates a catalog client. snapshot may be shared between clients; when nil
// a private one is created. It fails with config.ErrCredentialMissing when no API key
// is given, before any network access.
func NewClient(cfg ClientConfig, snapshot *cache.Snapshot[[]Model], logger *logrus.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, config.ErrCredentialMissing
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("catalog base URL is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if snapshot == nil {
		snapshot = cache.NewSnapshot[[]Model]()
	}
	if logger == nil {
		logger = logrus.New()
	}

	return &Client{
		http:     httpclient.NewRestyClient("openrouter-catalog", cfg.Timeout, logger),
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:   cfg.APIKey,
		snapshot: snapshot,
		logger:   logger,
	}, nil
}

// Fetch returns the full catalog. Without forceRefresh a previously fetched snapshot
// is returned as-is, however old it is.
func (c *Client) Fetch(ctx context.Context, forceRefresh bool) ([]Model, error) {
	if !forceRefresh {
		if models, ok := c.snapshot.Get(); ok {
			c.logger.WithFields(logrus.Fields{
				"models": len(models),
				"age":    c.snapshot.Age().Round(time.Millisecond),
			}).Debug("Using cached catalog snapshot")
			return models, nil
		}
	}

	var body ModelsResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(c.apiKey).
		SetHeader("Accept", "application/json").
		SetResult(&body).
		Get(c.baseURL + "/models")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCatalogUnavailable, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: status %d: %s", ErrCatalogUnavailable, resp.StatusCode(), trimBody(resp.String()))
	}
	if body.Data == nil {
		return nil, fmt.Errorf("%w: response has no data field", ErrCatalogUnavailable)
	}

	models := make([]Model, 0, len(body.Data))
	for _, m := range body.Data {
		if strings.TrimSpace(m.ID) == "" {
			c.logger.WithField("name", m.Name).Debug("Skipping catalog record without an id")
			continue
		}
		models = append(models, m)
	}

	c.snapshot.Set(models)
	c.logger.WithField("models", len(models)).Info("Fetched model catalog")
	return models, nil
}

// FetchedAt reports when the snapshot was last refreshed
func (c *Client) FetchedAt() time.Time {
	return c.snapshot.FetchedAt()
}

// Close releases the idle connections held by the underlying resty client
func (c *Client) Close() error {
	return c.http.Close()
}

func trimBody(body string) string {
	body = strings.TrimSpace(body)
	if body == "" {
		return "(empty body)"
	}
	if len(body) > maxErrorBody {
		return body[:maxErrorBody] + "..."
	}
	return body
}
