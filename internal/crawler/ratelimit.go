package crawler

import (
	"context"
	"time"
)

const (
	// rateTick is how often throughput is measured.
	rateTick = time.Second

	// rateStep is the additive adjustment applied to the per-request
	// delay on each tick. Small steps keep the controller stable when
	// response times fluctuate.
	rateStep = 50 * time.Millisecond

	// maxDelay caps the per-request delay so a long quiet stretch
	// cannot park the workers indefinitely.
	maxDelay = 10 * time.Second
)

// controlRate measures crawl throughput once per tick and nudges the
// shared per-request delay toward the configured cap. With no cap it
// only keeps the throughput reading fresh for progress snapshots.
func (c *Crawler) controlRate(ctx context.Context) error {
	ticker := time.NewTicker(rateTick)
	defer ticker.Stop()

	target := float64(c.settings.URLsPerSecond)
	lastCrawled := c.state.crawledCount()
	lastTick := time.Now()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-c.done:
			return nil
		case now := <-ticker.C:
			crawled := c.state.crawledCount()
			elapsed := now.Sub(lastTick).Seconds()
			if elapsed <= 0 {
				continue
			}
			throughput := float64(crawled-lastCrawled) / elapsed
			c.state.setThroughput(throughput)
			lastCrawled = crawled
			lastTick = now

			if target <= 0 {
				continue
			}
			delay := c.state.currentDelay()
			switch {
			case throughput > target:
				delay += rateStep
				if delay > maxDelay {
					delay = maxDelay
				}
			case delay > 0:
				delay -= rateStep
			}
			c.state.setDelay(delay)
		}
	}
}
