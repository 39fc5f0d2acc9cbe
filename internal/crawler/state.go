package crawler

import (
	"sync"
	"time"

	"github.com/seoflare/seoflare/internal/model"
)

// Status is the lifecycle phase of a crawl session.
type Status string

const (
	// StatusIdle means the session has not started yet.
	StatusIdle Status = "idle"

	// StatusRunning means workers are actively fetching.
	StatusRunning Status = "running"

	// StatusStopped means the session was stopped before finishing;
	// pending URLs remain and the session can be resumed.
	StatusStopped Status = "stopped"

	// StatusCompleted means every discovered URL has a recorded result.
	StatusCompleted Status = "completed"

	// StatusTimedOut means no results arrived for the timeout window
	// while URLs were still outstanding.
	StatusTimedOut Status = "timed out"
)

// Progress is a point-in-time snapshot of a running session.
type Progress struct {
	// Status is the lifecycle phase at snapshot time.
	Status Status

	// URLsTotal is the number of discovered URLs.
	URLsTotal int64

	// URLsCrawled is the number of URLs with a recorded result.
	URLsCrawled int64

	// ActiveWorkers is the number of URLs being fetched right now.
	ActiveWorkers int

	// Throughput is the measured crawl rate in URLs per second.
	Throughput float64

	// Delay is the per-request pause imposed by the rate controller.
	Delay time.Duration
}

// state holds the session's shared counters behind one mutex. All
// reads go through snapshot so callers never see a half-updated view.
type state struct {
	mu          sync.Mutex
	status      Status
	urlsTotal   int64
	urlsCrawled int64
	throughput  float64
	delay       time.Duration
	attempts    map[string]int
	freshRows   []model.PageRow
}

func newState() *state {
	return &state{
		status:   StatusIdle,
		attempts: make(map[string]int),
	}
}

// snapshot returns a consistent copy of all counters.
func (s *state) snapshot() Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Progress{
		Status:      s.status,
		URLsTotal:   s.urlsTotal,
		URLsCrawled: s.urlsCrawled,
		Throughput:  s.throughput,
		Delay:       s.delay,
	}
}

func (s *state) setStatus(status Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
}

func (s *state) currentStatus() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// setCounts replaces both URL counters in one step.
func (s *state) setCounts(total, crawled int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.urlsTotal = total
	s.urlsCrawled = crawled
}

func (s *state) crawledCount() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.urlsCrawled
}

// recordAttempt increments and returns the fetch attempt count for a
// URL. The counter survives re-enqueues, so retries are bounded even
// though retried URLs carry no database row yet.
func (s *state) recordAttempt(url string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts[url]++
	return s.attempts[url]
}

func (s *state) setDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d < 0 {
		d = 0
	}
	s.delay = d
}

func (s *state) currentDelay() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.delay
}

// appendRows parks freshly persisted rows for polling readers.
func (s *state) appendRows(rows []model.PageRow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.freshRows = append(s.freshRows, rows...)
}

// drainRows hands the parked rows to the caller and clears the buffer,
// so each row is seen by exactly one poll.
func (s *state) drainRows() []model.PageRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.freshRows
	s.freshRows = nil
	return rows
}

func (s *state) setThroughput(t float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.throughput = t
}
