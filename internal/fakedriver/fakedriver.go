// Package fakedriver provides an in-memory lookout.Session for tests. Pages
// are scripted by assigning elements to selectors; errors can be queued per
// selector or per element method, and every query is counted.
//
// It is internal to the lookout module.
package fakedriver

import (
	"context"
	"fmt"
	"sync"

	"github.com/cboone/lookout"
)

// Session is a scripted page. It is safe for concurrent use.
type Session struct {
	mu       sync.Mutex
	elements map[lookout.Selector][]*Element
	findErrs map[lookout.Selector][]error
	sticky   map[lookout.Selector]error
	calls    int
	onFind   func(call int)
}

var _ lookout.Session = (*Session)(nil)

// New returns an empty page.
func New() *Session {
	return &Session{
		elements: make(map[lookout.Selector][]*Element),
		findErrs: make(map[lookout.Selector][]error),
		sticky:   make(map[lookout.Selector]error),
	}
}

// Set replaces the elements matched by sel.
func (s *Session) Set(sel lookout.Selector, els ...*Element) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.elements[sel] = els
}

// FailNext queues errors returned by the next queries for sel, one per
// query.
func (s *Session) FailNext(sel lookout.Selector, errs ...error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.findErrs[sel] = append(s.findErrs[sel], errs...)
}

// FailAlways makes every query for sel return err. A nil err clears it.
func (s *Session) FailAlways(sel lookout.Selector, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.sticky, sel)
		return
	}
	s.sticky[sel] = err
}

// OnFind registers a hook run before every query with the 1-based query
// number. Hooks script pages that change over time.
func (s *Session) OnFind(fn func(call int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onFind = fn
}

// Calls returns the number of FindOne and FindAll calls so far.
func (s *Session) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// FindOne implements lookout.Session.
func (s *Session) FindOne(ctx context.Context, sel lookout.Selector) (lookout.Handle, error) {
	els, err := s.find(ctx, sel)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, fmt.Errorf("fakedriver: %s: %w", sel, lookout.ErrNoSuchElement)
	}
	return els[0], nil
}

// FindAll implements lookout.Session.
func (s *Session) FindAll(ctx context.Context, sel lookout.Selector) ([]lookout.Handle, error) {
	els, err := s.find(ctx, sel)
	if err != nil {
		return nil, err
	}
	hs := make([]lookout.Handle, len(els))
	for i, el := range els {
		hs[i] = el
	}
	return hs, nil
}

func (s *Session) find(ctx context.Context, sel lookout.Selector) ([]*Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.calls++
	call, hook := s.calls, s.onFind
	s.mu.Unlock()

	// The hook may call Set, so it runs without the lock.
	if hook != nil {
		hook(call)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.sticky[sel]; err != nil {
		return nil, err
	}
	if q := s.findErrs[sel]; len(q) > 0 {
		s.findErrs[sel] = q[1:]
		return nil, q[0]
	}
	els := make([]*Element, len(s.elements[sel]))
	copy(els, s.elements[sel])
	return els, nil
}
