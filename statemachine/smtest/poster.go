// Package smtest provides deterministic executors, scripted states and
// event recorders for testing state machines.
package smtest

import "sync"

// ManualPoster is an executor that only runs posted functions when told to.
// Tests call Drain to run everything, which keeps engine tests single-threaded
// and deterministic.
type ManualPoster struct {
	mu      sync.Mutex
	queue   []func()
	stopped bool
}

// Post enqueues fn. It returns false after Stop.
func (p *ManualPoster) Post(fn func()) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped || fn == nil {
		return false
	}

	p.queue = append(p.queue, fn)

	return true
}

// Step runs the oldest queued function and reports whether there was one.
func (p *ManualPoster) Step() bool {
	p.mu.Lock()

	if len(p.queue) == 0 {
		p.mu.Unlock()

		return false
	}

	fn := p.queue[0]
	p.queue = p.queue[1:]
	p.mu.Unlock()

	fn()

	return true
}

// Drain runs queued functions, including ones they post, until the queue is
// empty, and returns how many ran.
func (p *ManualPoster) Drain() int {
	n := 0
	for p.Step() {
		n++
	}

	return n
}

// Len returns the number of queued functions.
func (p *ManualPoster) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.queue)
}

// Stop makes further posts fail and discards the queue.
func (p *ManualPoster) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopped = true
	p.queue = nil
}
