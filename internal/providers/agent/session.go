package agent

import (
	"sync"

	"golang.org/x/sync/singleflight"
)

// Session owns the lazily-initialized runtime client shared by every
// capability in the process. The first invocation pays the construction cost;
// concurrent first callers are collapsed into a single construction via
// singleflight, and every later caller takes the read path. The session lives
// for the whole process; there is no per-request teardown.
type Session struct {
	build func() (*Runtime, error)

	mu      sync.RWMutex
	runtime *Runtime
	group   singleflight.Group
}

// NewSession prepares a session whose runtime is built on first use.
func NewSession(build func() (*Runtime, error)) *Session {
	return &Session{build: build}
}

// Runtime returns the shared runtime client, constructing it exactly once.
func (s *Session) Runtime() (*Runtime, error) {
	s.mu.RLock()
	rt := s.runtime
	s.mu.RUnlock()
	if rt != nil {
		return rt, nil
	}

	v, err, _ := s.group.Do("runtime", func() (any, error) {
		s.mu.RLock()
		rt := s.runtime
		s.mu.RUnlock()
		if rt != nil {
			return rt, nil
		}
		built, err := s.build()
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.runtime = built
		s.mu.Unlock()
		return built, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Runtime), nil
}
