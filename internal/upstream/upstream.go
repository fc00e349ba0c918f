// Package upstream fetches comic metadata from the remote catalog API.
package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"bindery/internal/cache"
	"bindery/internal/config"
	"bindery/internal/logging"
	"bindery/internal/services"
)

// maxMetadataBytes bounds how much of an upstream response we will parse.
const maxMetadataBytes = 1 << 20

// Client retrieves metadata records from the configured catalog.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// New constructs a metadata client. Enabled reports false when no base URL
// is configured; callers then synthesize a minimal record instead.
func New(cfg *config.Config, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.Upstream.BaseURL), "/"),
		http: &http.Client{
			Timeout: time.Duration(cfg.Upstream.RequestTimeout) * time.Second,
		},
		logger: logging.NewComponentLogger(logger, "upstream"),
	}
}

// Enabled reports whether a catalog base URL is configured.
func (c *Client) Enabled() bool {
	return c.baseURL != ""
}

// Metadata fetches the record for id. Every upstream failure, including a
// malformed body, is surfaced as a not-found error so the caller maps it
// to a 404.
func (c *Client) Metadata(ctx context.Context, id string) (cache.MetadataRecord, error) {
	var record cache.MetadataRecord
	if err := services.ValidateIdentifier(id); err != nil {
		return record, err
	}
	if !c.Enabled() {
		return record, services.Wrap(services.ErrConfiguration, "upstream", "metadata", "upstream base_url not configured", nil)
	}

	url := c.baseURL + "/album/" + id
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return record, services.Wrap(services.ErrNotFound, "upstream", "metadata", "build request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return record, services.Wrap(services.ErrNotFound, "upstream", "metadata", "request metadata", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.WarnContext(ctx, "upstream metadata miss",
			logging.String(logging.FieldIdentifier, id),
			logging.Int("status", resp.StatusCode))
		return record, services.Wrap(services.ErrNotFound, "upstream", "metadata",
			fmt.Sprintf("upstream returned status %d", resp.StatusCode), nil)
	}

	body := io.LimitReader(resp.Body, maxMetadataBytes)
	if err := json.NewDecoder(body).Decode(&record); err != nil {
		return record, services.Wrap(services.ErrNotFound, "upstream", "metadata", "malformed upstream response", err)
	}
	if strings.TrimSpace(record.Title) == "" {
		record.Title = id
	}
	return record, nil
}
