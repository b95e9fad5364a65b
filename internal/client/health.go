package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/coder/quartz"
)

// Health checks the server's /health endpoint once
func (a *API) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := a.http.Do(req)
	if err != nil {
		return err
	}
	_ = resp.Body.Close() // Ignore close errors on response body
	if resp.StatusCode != http.StatusOK {
		return &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}
	return nil
}

// WaitForHealthy polls /health every interval until it reports OK or ctx is
// done. The first probe is immediate.
func (a *API) WaitForHealthy(ctx context.Context, clock quartz.Clock, interval time.Duration) error {
	if a.Health(ctx) == nil {
		return nil
	}

	ticker := clock.NewTicker(interval, "client", "health")
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("server at %s not healthy: %w", a.baseURL, ctx.Err())
		case <-ticker.C:
			if a.Health(ctx) == nil {
				return nil
			}
		}
	}
}
