package client

import (
	"context"
	"fmt"
	"net/http"
)

// Health probes GET /health on the backend root with a short timeout. An
// unhealthy body is reported as an error.
func (c *Client) Health(ctx context.Context) (HealthStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	var out HealthStatus
	target := c.root.JoinPath("health").String()
	if err := c.doJSON(ctx, http.MethodGet, target, nil, &out); err != nil {
		return out, fmt.Errorf("checking backend health: %w", err)
	}
	if !out.Healthy() {
		return out, fmt.Errorf("backend reported status %q", out.Status)
	}
	return out, nil
}
