package gatecli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/okian/dabline/internal/gate"
	"github.com/okian/dabline/pkg/logger"
)

// HTTPClient wraps http.Client with timeout
type HTTPClient struct {
	client *http.Client
}

// newHTTPClient creates a new HTTP client with timeout
func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{client: &http.Client{Timeout: timeout}}
}

// Do sends a bodiless request and returns the response body and status.
func (c *HTTPClient) Do(ctx context.Context, method, url string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, http.NoBody)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request %s %s: %w", method, url, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close response body", logger.Error(err))
		}
	}()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read %s: %w", url, err)
	}
	return body, resp.StatusCode, nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, client *HTTPClient, baseURL string) error {
	logger.Get().Info(ctx, "checking service health", logger.String("url", baseURL))

	_, status, err := client.Do(ctx, http.MethodGet, baseURL+"/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	// any 200 is healthy; the body is the Prometheus exposition
	if status != http.StatusOK {
		return fmt.Errorf("service health check failed with status: %d", status)
	}
	return nil
}

// runRemote asks a live service to run the gate and decodes its artifact.
func runRemote(ctx context.Context, cfg *Config) (*gate.Artifact, error) {
	client := newHTTPClient(cfg.Timeout)
	base := strings.TrimRight(cfg.BaseURL, "/")

	if err := checkServiceHealth(ctx, client, base); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRemote, err)
	}

	body, status, err := client.Do(ctx, http.MethodPost, base+"/gate/run")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRemote, err)
	}
	if status != http.StatusOK {
		var e struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		_ = json.Unmarshal(body, &e)
		return nil, fmt.Errorf("%w: status %d: %s %s", ErrRemote, status, e.Code, e.Message)
	}

	var a gate.Artifact
	if err := json.Unmarshal(body, &a); err != nil {
		return nil, fmt.Errorf("%w: decode artifact: %w", ErrRemote, err)
	}
	return &a, nil
}
