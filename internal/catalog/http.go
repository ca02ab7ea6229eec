package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/listing-moderation/internal/models"
)

// HTTPCatalog calls a remote catalog service:
//
//	GET {base}/listings/{id}/summary
//	PUT {base}/listings/{id}/status  {"status": "..."}
type HTTPCatalog struct {
	httpClient *http.Client
	baseURL    string
}

func NewHTTPCatalog(baseURL string, timeout time.Duration) *HTTPCatalog {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPCatalog{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

type summaryResponse struct {
	ID     uint   `json:"id"`
	Title  string `json:"title"`
	Status string `json:"status"`
}

type statusRequest struct {
	Status models.ListingStatus `json:"status"`
}

func (c *HTTPCatalog) GetSummary(ctx context.Context, listingID uint) (models.ListingSummary, error) {
	url := fmt.Sprintf("%s/listings/%d/summary", c.baseURL, listingID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return models.ListingSummary{}, fmt.Errorf("catalog: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return models.ListingSummary{}, err
	}
	defer resp.Body.Close()

	var body summaryResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return models.ListingSummary{}, fmt.Errorf("%w: decode summary: %v", ErrUnavailable, err)
	}
	if body.ID == 0 {
		body.ID = listingID
	}
	status, _ := models.ParseListingStatus(body.Status)
	return models.ListingSummary{ID: body.ID, Title: body.Title, Status: status}, nil
}

func (c *HTTPCatalog) SetStatus(ctx context.Context, listingID uint, status models.ListingStatus) error {
	payload, err := json.Marshal(statusRequest{Status: status})
	if err != nil {
		return fmt.Errorf("catalog: encode status: %w", err)
	}

	url := fmt.Sprintf("%s/listings/%d/status", c.baseURL, listingID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("catalog: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// do sends req and maps the outcome onto ErrNotFound and ErrUnavailable. The
// caller owns the body of a successful response.
func (c *HTTPCatalog) do(req *http.Request) (*http.Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %s %s: %v", ErrUnavailable, req.Method, req.URL.Path, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		resp.Body.Close()
		return nil, ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s %s returned status %d", ErrUnavailable, req.Method, req.URL.Path, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		resp.Body.Close()
		return nil, fmt.Errorf("catalog: %s %s returned status %d", req.Method, req.URL.Path, resp.StatusCode)
	}
	return resp, nil
}
