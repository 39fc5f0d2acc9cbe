package crawler

import "sync"

// frontier is the unbounded queue of URLs waiting to be fetched.
// Workers block in pop until a URL arrives or the frontier closes.
type frontier struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []string
	busy   int
	closed bool
}

func newFrontier() *frontier {
	f := &frontier{}
	f.cond = sync.NewCond(&f.mu)
	return f
}

// push appends URLs and wakes waiting workers. Pushing to a closed
// frontier is a no-op.
func (f *frontier) push(urls ...string) {
	if len(urls) == 0 {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.queue = append(f.queue, urls...)
	f.cond.Broadcast()
}

// pop removes and returns the next URL, blocking while the frontier is
// empty. The caller is counted busy in the same critical section that
// removes the URL, so idle never misses a URL that has left the queue
// but not yet reached the result queue; the caller must end the window
// with release. pop returns false once the frontier is closed.
func (f *frontier) pop() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for len(f.queue) == 0 && !f.closed {
		f.cond.Wait()
	}
	if f.closed {
		return "", false
	}
	u := f.queue[0]
	f.queue = f.queue[1:]
	f.busy++
	return u, true
}

// release ends the busy window opened by pop.
func (f *frontier) release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.busy--
}

// idle reports whether no URL is queued and no pop is outstanding.
func (f *frontier) idle() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queue) == 0 && f.busy == 0
}

// busyCount returns the number of outstanding pops.
func (f *frontier) busyCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.busy
}

// pending returns the number of queued URLs.
func (f *frontier) pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queue)
}

// close drains the queue and releases all blocked workers. It is safe
// to call more than once.
func (f *frontier) close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.queue = nil
	f.cond.Broadcast()
}
