package oracle

import (
	"context"
	"time"
)

// Run refreshes the configured denoms on a fixed interval until the
// context is cancelled. Poll reads are idempotent; a poll racing a
// user-initiated fetch resolves as last read wins. Callers gating a
// transaction on a price must not rely on the poller — they await a
// fresh Fetch explicitly.
func (c *Client) Run(ctx context.Context, interval time.Duration, denoms []string) {
	if interval <= 0 {
		interval = 15 * time.Second
	}

	// Prime the cache once at startup so the first render has prices.
	c.pollOnce(ctx, denoms)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.pollOnce(ctx, denoms)
		}
	}
}

func (c *Client) pollOnce(ctx context.Context, denoms []string) {
	fetchCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	got := c.FetchAll(fetchCtx, denoms)
	c.log.Debug().Int("requested", len(denoms)).Int("fetched", len(got)).Msg("price poll")

	if c.metrics != nil {
		now := c.now()
		c.mu.RLock()
		for denom, q := range c.cache {
			c.metrics.OracleQuoteAge.WithLabelValues(denom).Set(now.Sub(q.FetchedAt).Seconds())
		}
		c.mu.RUnlock()
	}
}
