package capacity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ferrywatch/ferries_core/internal/models"
	"github.com/rs/zerolog/log"
)

// DefaultBaseURL is the public BC Ferries capacity API
const DefaultBaseURL = "https://www.bcferriesapi.ca/v2"

// Source defines the interface for fetching raw capacity data
type Source interface {
	FetchCapacity(ctx context.Context) (*models.CapacityResponse, error)
}

// Client implements Source for the capacity HTTP API
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a client for baseURL. A zero timeout leaves the transport default.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Endpoint returns the capacity URL
func (c *Client) Endpoint() string {
	return c.baseURL + "/capacity"
}

// FetchCapacity fetches and decodes the capacity payload. It never retries.
func (c *Client) FetchCapacity(ctx context.Context) (*models.CapacityResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Endpoint(), nil)
	if err != nil {
		return nil, &models.NetworkError{Cause: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache")

	log.Debug().Str("url", req.URL.String()).Msg("Fetching capacity")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &models.NetworkError{Cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &models.NetworkError{Cause: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		log.Warn().Int("status", resp.StatusCode).Msg("Capacity API returned non-200 status")
		return nil, fmt.Errorf("%w: status %d", models.ErrInvalidResponse, resp.StatusCode)
	}

	log.Debug().Str("body", preview(body, 1000)).Msg("Capacity response")

	var capacity models.CapacityResponse
	if err := json.Unmarshal(body, &capacity); err != nil {
		return nil, &models.DecodingError{Detail: err.Error()}
	}

	return &capacity, nil
}

func preview(body []byte, limit int) string {
	if len(body) <= limit {
		return string(body)
	}
	return string(body[:limit]) + "..."
}
