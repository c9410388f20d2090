package savedviews

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/odyssey-erp/odyssey-crm/internal/listview"
)

var (
	// ErrViewNotFound is returned when deleting an unknown view.
	ErrViewNotFound = errors.New("savedviews: view not found")
	// ErrInvalidName is returned for an empty or overlong view name.
	ErrInvalidName = errors.New("savedviews: invalid view name")
	// ErrCorrupt reports a stored payload that cannot be decoded.
	ErrCorrupt = errors.New("savedviews: corrupt payload")
)

var validate = validator.New()

type saveInput struct {
	Name string `validate:"required,max=100"`
}

// Store holds the saved views of one list page. Every mutation writes the
// whole list back through the KV; a failed write leaves the list untouched.
type Store struct {
	kv  KV
	key string
	now func() time.Time

	mu    sync.RWMutex
	views []listview.SavedView
}

// Option customises a Store.
type Option func(*Store)

// WithClock overrides the creation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Open restores the views of entity from kv.
func Open(ctx context.Context, kv KV, entity string, opts ...Option) (*Store, error) {
	if kv == nil {
		return nil, errors.New("savedviews: kv required")
	}
	s := &Store{kv: kv, key: Key(entity), now: func() time.Time { return time.Now().UTC() }}
	for _, opt := range opts {
		opt(s)
	}
	payload, err := kv.Get(ctx, s.key)
	if errors.Is(err, ErrKeyNotFound) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("savedviews: load %s: %w", s.key, err)
	}
	if len(payload) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(payload, &s.views); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, s.key, err)
	}
	return s, nil
}

// Key returns the storage key of the store.
func (s *Store) Key() string { return s.key }

// List returns the views in creation order.
func (s *Store) List() []listview.SavedView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]listview.SavedView, len(s.views))
	for i, v := range s.views {
		v.Filters = v.Filters.Clone()
		out[i] = v
	}
	return out
}

// Get returns the view with id.
func (s *Store) Get(id string) (listview.SavedView, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.index(id)
	if idx < 0 {
		return listview.SavedView{}, false
	}
	v := s.views[idx]
	v.Filters = v.Filters.Clone()
	return v, true
}

// Save appends a view holding the active rules of filters.
func (s *Store) Save(ctx context.Context, name string, filters listview.Filters) (listview.SavedView, error) {
	name = strings.TrimSpace(name)
	if err := validate.Struct(saveInput{Name: name}); err != nil {
		return listview.SavedView{}, fmt.Errorf("%w: %v", ErrInvalidName, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.newID()
	if err != nil {
		return listview.SavedView{}, err
	}
	view := listview.SavedView{
		ID:        id,
		Name:      name,
		Filters:   filters.Active(),
		CreatedAt: s.now(),
	}
	next := append(slices.Clone(s.views), view)
	if err := s.persist(ctx, next); err != nil {
		return listview.SavedView{}, err
	}
	s.views = next
	return view, nil
}

// Delete removes the view with id.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.index(id)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrViewNotFound, id)
	}
	next := slices.Delete(slices.Clone(s.views), idx, idx+1)
	if err := s.persist(ctx, next); err != nil {
		return err
	}
	s.views = next
	return nil
}

func (s *Store) persist(ctx context.Context, views []listview.SavedView) error {
	if views == nil {
		views = []listview.SavedView{}
	}
	payload, err := json.Marshal(views)
	if err != nil {
		return fmt.Errorf("savedviews: encode: %w", err)
	}
	if err := s.kv.Set(ctx, s.key, payload); err != nil {
		return fmt.Errorf("savedviews: persist %s: %w", s.key, err)
	}
	return nil
}

func (s *Store) newID() (string, error) {
	for range 3 {
		id, err := uuid.NewV7()
		if err != nil {
			return "", fmt.Errorf("savedviews: generate id: %w", err)
		}
		if s.index(id.String()) < 0 {
			return id.String(), nil
		}
	}
	return "", errors.New("savedviews: could not allocate a unique id")
}

func (s *Store) index(id string) int {
	return slices.IndexFunc(s.views, func(v listview.SavedView) bool { return v.ID == id })
}
