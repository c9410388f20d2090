package remote

import (
	"context"
	"fmt"

	"github.com/odyssey-erp/odyssey-crm/internal/listview"
)

// Source binds one entity endpoint to the list pipeline. It serves as both
// the Fetcher and the Deleter of a controller.
type Source struct {
	Entity   string
	Endpoint string
	Client   *Client
	Cache    *CollectionCache
}

// Fetch loads the collection, through the cache when one is configured.
func (s *Source) Fetch(ctx context.Context) ([]listview.Row, error) {
	return s.Cache.Fetch(ctx, s.Entity, func(ctx context.Context) ([]listview.Row, error) {
		return s.Client.FetchCollection(ctx, s.Endpoint)
	})
}

// Delete removes ids remotely and invalidates the cached collection, also
// after a partial failure.
func (s *Source) Delete(ctx context.Context, ids []string) error {
	err := s.Client.DeleteMany(ctx, s.Endpoint, ids)
	if bumpErr := s.Cache.Bump(context.WithoutCancel(ctx), s.Entity); bumpErr != nil && err == nil {
		return fmt.Errorf("remote: invalidate %s: %w", s.Entity, bumpErr)
	}
	return err
}

var (
	_ listview.Fetcher = (*Source)(nil)
	_ listview.Deleter = (*Source)(nil)
)
