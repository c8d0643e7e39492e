package category

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/Sokol111/ecommerce-product-service/pkg/http/client"
)

type httpChecker struct {
	client  *http.Client
	baseURL string
}

// NewHTTPChecker builds a Checker against the category service REST API.
// A 200 on GET /categories/{id} means the category exists, a 404 means it
// does not; anything else is an error.
func NewHTTPChecker(httpClient *http.Client, cfg client.Config) Checker {
	return &httpChecker{client: httpClient, baseURL: cfg.BaseURL}
}

func (c *httpChecker) Exists(ctx context.Context, categoryID string) (bool, error) {
	endpoint := fmt.Sprintf("%s/categories/%s", c.baseURL, url.PathEscape(categoryID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("failed to build category request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to query category service: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("category service returned status %d for %s", resp.StatusCode, categoryID)
	}
}
