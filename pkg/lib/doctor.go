package lib

import "context"

// Doctor checks the client setup: API access with the configured token,
// the exec sessions transport and the terminal.
func (c *Client) Doctor(ctx context.Context) []CheckResult {
	return c.doctor.Check(ctx)
}
