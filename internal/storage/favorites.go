// internal/storage/favorites.go
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"

	apperrors "pricelens/internal/common/errors"
	"pricelens/internal/common/logger"
)

var (
	ErrMissingUser    = errors.New("user id is required")
	ErrMissingProduct = errors.New("product id is required")
)

// Favorites keeps each user's favorite product IDs as a sorted JSON array
// under favorites:<user>.
type Favorites struct {
	store  Store
	logger logger.Logger
}

func NewFavorites(store Store, log logger.Logger) *Favorites {
	return &Favorites{store: store, logger: logger.ForComponent(log, "favorites")}
}

func favoritesKey(user string) string {
	return "favorites:" + user
}

func (f *Favorites) List(ctx context.Context, user string) ([]string, error) {
	user = strings.TrimSpace(user)
	if user == "" {
		return nil, ErrMissingUser
	}
	return f.load(ctx, user)
}

// Add is idempotent and returns the updated list.
func (f *Favorites) Add(ctx context.Context, user, productID string) ([]string, error) {
	return f.update(ctx, user, productID, func(set map[string]bool, id string) { set[id] = true })
}

// Remove is idempotent and returns the updated list.
func (f *Favorites) Remove(ctx context.Context, user, productID string) ([]string, error) {
	return f.update(ctx, user, productID, func(set map[string]bool, id string) { delete(set, id) })
}

func (f *Favorites) update(ctx context.Context, user, productID string, apply func(map[string]bool, string)) ([]string, error) {
	user = strings.TrimSpace(user)
	productID = strings.TrimSpace(productID)
	if user == "" {
		return nil, ErrMissingUser
	}
	if productID == "" {
		return nil, ErrMissingProduct
	}

	current, err := f.load(ctx, user)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(current)+1)
	for _, id := range current {
		set[id] = true
	}
	apply(set, productID)

	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	if len(ids) == 0 {
		if err := f.store.Delete(ctx, favoritesKey(user)); err != nil {
			return nil, f.fail("favorites.delete", user, err)
		}
		return ids, nil
	}

	data, err := json.Marshal(ids)
	if err != nil {
		return nil, err
	}
	if err := f.store.Set(ctx, favoritesKey(user), data); err != nil {
		return nil, f.fail("favorites.set", user, err)
	}
	return ids, nil
}

func (f *Favorites) load(ctx context.Context, user string) ([]string, error) {
	data, err := f.store.Get(ctx, favoritesKey(user))
	if errors.Is(err, ErrNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, f.fail("favorites.get", user, err)
	}

	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		f.logger.Warn("discarding corrupt favorites entry", map[string]interface{}{
			"user":  user,
			"error": err.Error(),
		})
		return []string{}, nil
	}
	return ids, nil
}

func (f *Favorites) fail(op, user string, err error) error {
	f.logger.Warn("favorites storage failed", map[string]interface{}{
		"op":    op,
		"user":  user,
		"error": err.Error(),
	})
	return apperrors.NewStorageFailureError(op, err)
}
