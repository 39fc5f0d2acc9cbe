package crawler

import (
	"context"
	"log/slog"
	"time"
)

// work is one fetch worker: wait out the rate delay, take the next URL
// from the frontier, fetch it, and hand the exchange to the consumer.
// pop opens the frontier's busy window and release closes it only
// after the handoff, so the completion check never sees an exchange
// that is neither queued nor owned by a worker.
func (c *Crawler) work(ctx context.Context, id int) error {
	logger := c.logger.With(slog.Int("worker", id))

	for {
		if delay := c.state.currentDelay(); delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil
			case <-c.done:
				return nil
			}
		}

		rawURL, ok := c.frontier.pop()
		if !ok {
			return nil
		}

		ex := c.fetcher.Fetch(ctx, rawURL)
		if ex.Failed() {
			logger.DebugContext(ctx, "fetch failed",
				slog.String("url", rawURL),
				slog.String("reason", ex.FailureReason))
		} else {
			logger.DebugContext(ctx, "fetched",
				slog.String("url", rawURL),
				slog.Int("status", ex.StatusCode),
				slog.Int("hops", len(ex.Hops)))
		}

		select {
		case c.results <- ex:
			c.frontier.release()
		case <-c.done:
			c.frontier.release()
			return nil
		case <-ctx.Done():
			c.frontier.release()
			return nil
		}
	}
}
