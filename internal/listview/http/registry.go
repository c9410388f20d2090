package listviewhttp

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/odyssey-crm/internal/listview"
)

// ControllerFactory builds the controller of an entity for one client.
type ControllerFactory interface {
	NewController(ctx context.Context, entity, clientID string) (*listview.Controller, error)
}

type registryKey struct {
	client string
	entity string
}

// session guards one controller; requests of the same client and entity run
// one at a time.
type session struct {
	mu       sync.Mutex
	ctrl     *listview.Controller
	lastUsed time.Time
}

// Registry keeps a controller per client and entity.
type Registry struct {
	factory ControllerFactory
	now     func() time.Time
	builds  singleflight.Group

	mu       sync.Mutex
	sessions map[registryKey]*session
}

// NewRegistry constructs an empty Registry.
func NewRegistry(factory ControllerFactory) *Registry {
	return &Registry{
		factory:  factory,
		now:      time.Now,
		sessions: make(map[registryKey]*session),
	}
}

// With runs fn with exclusive access to the controller of client and entity,
// creating it on first use.
func (r *Registry) With(ctx context.Context, client, entity string, fn func(*listview.Controller) error) error {
	s, err := r.session(ctx, client, entity)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUsed = r.now()
	return fn(s.ctrl)
}

func (r *Registry) session(ctx context.Context, client, entity string) (*session, error) {
	key := registryKey{client: client, entity: entity}
	if s, ok := r.lookup(key); ok {
		return s, nil
	}
	// Built outside r.mu; concurrent first requests for one key share a build.
	v, err, _ := r.builds.Do(client+"\x00"+entity, func() (any, error) {
		if s, ok := r.lookup(key); ok {
			return s, nil
		}
		ctrl, err := r.factory.NewController(ctx, entity, client)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		defer r.mu.Unlock()
		if s, ok := r.sessions[key]; ok {
			return s, nil
		}
		s := &session{ctrl: ctrl, lastUsed: r.now()}
		r.sessions[key] = s
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*session), nil
}

func (r *Registry) lookup(key registryKey) (*session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[key]
	return s, ok
}

// Evict drops controllers idle for longer than maxIdle and returns how many
// were removed.
func (r *Registry) Evict(maxIdle time.Duration) int {
	cutoff := r.now().Add(-maxIdle)
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for key, s := range r.sessions {
		if !s.mu.TryLock() {
			continue
		}
		if s.lastUsed.Before(cutoff) {
			delete(r.sessions, key)
			removed++
		}
		s.mu.Unlock()
	}
	return removed
}

// Len reports the number of live controllers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// RunEviction evicts idle controllers every interval until ctx is done.
func (r *Registry) RunEviction(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Evict(maxIdle)
		}
	}
}
