package crawler

import (
	"context"
	"log/slog"
	"time"

	"github.com/seoflare/seoflare/internal/classifier"
	"github.com/seoflare/seoflare/internal/config"
	"github.com/seoflare/seoflare/internal/model"
)

const (
	// consumerTimeout is how long the consumer waits for a result
	// before declaring the crawl stuck. Completion is re-checked
	// before the verdict so a finished crawl is never reported as
	// timed out.
	consumerTimeout = 30 * time.Second

	// completionPoll is how often the consumer re-checks for
	// completion while no results arrive.
	completionPoll = 100 * time.Millisecond

	// commitInterval is multiplied by the worker count to get the
	// number of rows per write transaction.
	commitInterval = 100
)

// consume is the single persistence loop: it classifies every
// exchange, writes rows in batches, feeds fresh links back into the
// frontier, and decides when the crawl is over.
func (c *Crawler) consume(ctx context.Context) error {
	if err := c.db.BeginBatch(ctx); err != nil {
		return c.finish(StatusStopped, err)
	}

	commitEvery := commitInterval * c.settings.Threads
	rowsInBatch := 0
	deadline := time.Now().Add(consumerTimeout)

	for {
		select {
		case <-ctx.Done():
			return c.finish(StatusStopped, c.drainRemaining())

		case ex := <-c.results:
			written, err := c.process(ctx, ex)
			if err != nil {
				return c.finish(StatusStopped, err)
			}
			rowsInBatch += written
			if rowsInBatch >= commitEvery {
				if err := c.db.CommitBatch(); err != nil {
					return c.finish(StatusStopped, err)
				}
				if err := c.db.BeginBatch(ctx); err != nil {
					return c.finish(StatusStopped, err)
				}
				rowsInBatch = 0
			}
			deadline = time.Now().Add(consumerTimeout)
			if c.isComplete() {
				return c.finish(StatusCompleted, nil)
			}

		case <-time.After(completionPoll):
			if c.isComplete() {
				return c.finish(StatusCompleted, nil)
			}
			if time.Now().After(deadline) {
				if c.isComplete() {
					return c.finish(StatusCompleted, nil)
				}
				return c.finish(StatusTimedOut, ErrCrawlTimedOut)
			}
		}
	}
}

// process handles one exchange: retry bookkeeping for transient
// failures, classification, persistence, and link feedback. It returns
// the number of rows written.
func (c *Crawler) process(ctx context.Context, ex *model.Exchange) (int, error) {
	if ex.Failed() && retryable(ex.FailureReason) {
		attempts := c.state.recordAttempt(ex.RequestURL)
		if attempts < c.settings.MaxRetries {
			c.logger.DebugContext(ctx, "retrying",
				slog.String("url", ex.RequestURL),
				slog.Int("attempt", attempts))
			c.frontier.push(ex.RequestURL)
			return 0, nil
		}
		c.logger.WarnContext(ctx, "giving up on url",
			slog.String("url", ex.RequestURL),
			slog.String("reason", ex.FailureReason),
			slog.Int("attempts", attempts))
	}

	res, err := c.classifier.Classify(ex)
	if err != nil {
		c.logger.WarnContext(ctx, "classification failed",
			slog.String("url", ex.RequestURL),
			slog.String("error", err.Error()))
		res = &classifier.Result{Row: c.classifier.FailureRow(ex.RequestURL, "invalid response")}
	}

	rows := append(res.RedirectRows, res.Row)
	inserted, updated, err := c.db.InsertCrawlData(ctx, rows)
	if err != nil {
		return 0, err
	}
	c.state.appendRows(rows)
	c.logger.DebugContext(ctx, "rows persisted",
		slog.String("url", res.Row.URL),
		slog.Int64("inserted", inserted),
		slog.Int64("updated", updated))

	if len(res.Links) > 0 {
		fresh, err := c.db.GetNewURLs(ctx, res.Links)
		if err != nil {
			return 0, err
		}
		if len(fresh) > 0 {
			if err := c.db.InsertNewURLs(ctx, fresh); err != nil {
				return 0, err
			}
			c.frontier.push(fresh...)
		}
		if c.settings.HasItem(config.ItemUniqueInlinks) {
			if err := c.db.InsertInlinks(ctx, res.Row.URL, res.Links); err != nil {
				return 0, err
			}
		}
	}

	total, err := c.db.CountTotal(ctx)
	if err != nil {
		return 0, err
	}
	crawled, err := c.db.CountCrawled(ctx)
	if err != nil {
		return 0, err
	}
	c.state.setCounts(total, crawled)

	return len(rows), nil
}

// drainRemaining persists exchanges already parked in the result queue
// when the session is stopped, so fetched work is not refetched on
// resume. The run context is canceled by the time this runs, so the
// database calls get a fresh one.
func (c *Crawler) drainRemaining() error {
	ctx := context.Background()
	for {
		select {
		case ex := <-c.results:
			if _, err := c.process(ctx, ex); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

// isComplete reports whether no URL is queued, in flight, or waiting
// to be persisted. A worker stays busy from pop until its exchange is
// in the result queue, so an idle frontier means every handed-off
// exchange is already visible to the length check.
func (c *Crawler) isComplete() bool {
	return c.frontier.idle() && len(c.results) == 0
}

// retryable reports whether a failure reason is worth another attempt.
func retryable(reason string) bool {
	switch reason {
	case model.FailureTimedOut, model.FailureConnRefused, model.FailureConnection:
		return true
	default:
		return false
	}
}
