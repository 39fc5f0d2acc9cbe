package crawler

import (
	"context"

	"github.com/seoflare/seoflare/internal/database"
	"github.com/seoflare/seoflare/internal/model"
)

// GetCrawlData returns the session's crawled rows, optionally
// restricted to a report view and a column subset. It is safe to call
// while the crawl is running; the read goes through the consumer's
// open batch and sees every committed row plus the batch in progress.
func (c *Crawler) GetCrawlData(ctx context.Context, filters []database.Filter, view string, columns []string) ([]string, [][]string, error) {
	return c.db.Query(ctx, filters, view, columns)
}

// GetInlinks returns the distinct pages linking to target.
func (c *Crawler) GetInlinks(ctx context.Context, target string) ([]string, error) {
	return c.db.Inlinks(ctx, target)
}

// DrainNewRows returns the rows persisted since the previous call and
// forgets them. Polling readers use it to render incremental results
// without re-querying the whole session.
func (c *Crawler) DrainNewRows() []model.PageRow {
	return c.state.drainRows()
}
