// internal/storage/favorites_test.go
package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "pricelens/internal/common/errors"
	"pricelens/internal/common/logger"
)

// ==========================
// Test Helper Functions
// ==========================

type failingStore struct {
	getErr, setErr error
	data           []byte
}

func (f *failingStore) Get(context.Context, string) ([]byte, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.data == nil {
		return nil, ErrNotFound
	}
	return f.data, nil
}

func (f *failingStore) Set(context.Context, string, []byte) error { return f.setErr }
func (f *failingStore) Delete(context.Context, string) error      { return f.setErr }
func (f *failingStore) Ping(context.Context) error                { return nil }

// ==========================
// Favorites
// ==========================

func TestFavorites_Lifecycle(t *testing.T) {
	fav := NewFavorites(NewMemoryStore("pl"), logger.NewTestLogger(t))
	ctx := context.Background()

	ids, err := fav.List(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, ids)

	ids, err = fav.Add(ctx, "u1", "sony-wh1000xm5")
	require.NoError(t, err)
	assert.Equal(t, []string{"sony-wh1000xm5"}, ids)

	ids, err = fav.Add(ctx, "u1", "apple-airpods-pro")
	require.NoError(t, err)
	assert.Equal(t, []string{"apple-airpods-pro", "sony-wh1000xm5"}, ids)

	// adding again is a no-op
	ids, err = fav.Add(ctx, "u1", "apple-airpods-pro")
	require.NoError(t, err)
	assert.Len(t, ids, 2)

	other, err := fav.List(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, other)

	ids, err = fav.Remove(ctx, "u1", "sony-wh1000xm5")
	require.NoError(t, err)
	assert.Equal(t, []string{"apple-airpods-pro"}, ids)

	ids, err = fav.Remove(ctx, "u1", "apple-airpods-pro")
	require.NoError(t, err)
	assert.Empty(t, ids)

	ids, err = fav.List(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestFavorites_RedisBacked(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	fav := NewFavorites(NewRedisStore(client, "pl"), logger.NewNoOpLogger())
	_, err := fav.Add(context.Background(), "u1", "p1")
	require.NoError(t, err)

	raw, err := mr.Get("pl:favorites:u1")
	require.NoError(t, err)
	assert.JSONEq(t, `["p1"]`, raw)

	_, err = fav.Remove(context.Background(), "u1", "p1")
	require.NoError(t, err)
	assert.False(t, mr.Exists("pl:favorites:u1"))
}

func TestFavorites_Errors(t *testing.T) {
	tests := []struct {
		name           string
		store          Store
		user, product  string
		call           string
		validateOutput func(*testing.T, error)
	}{
		{
			name:  "missing user",
			store: NewMemoryStore(""),
			user:  "  ", product: "p1", call: "add",
			validateOutput: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrMissingUser)
			},
		},
		{
			name:  "missing product",
			store: NewMemoryStore(""),
			user:  "u1", product: "", call: "remove",
			validateOutput: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrMissingProduct)
			},
		},
		{
			name:  "read failure",
			store: &failingStore{getErr: errors.New("connection refused")},
			user:  "u1", call: "list",
			validateOutput: func(t *testing.T, err error) {
				assert.Equal(t, apperrors.ErrCodeStorageFailure, apperrors.CodeOf(err))
			},
		},
		{
			name:  "write failure",
			store: &failingStore{setErr: errors.New("readonly")},
			user:  "u1", product: "p1", call: "add",
			validateOutput: func(t *testing.T, err error) {
				assert.Equal(t, apperrors.ErrCodeStorageFailure, apperrors.CodeOf(err))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fav := NewFavorites(tt.store, logger.NewTestLogger(t))
			var err error
			switch tt.call {
			case "list":
				_, err = fav.List(context.Background(), tt.user)
			case "add":
				_, err = fav.Add(context.Background(), tt.user, tt.product)
			case "remove":
				_, err = fav.Remove(context.Background(), tt.user, tt.product)
			}
			require.Error(t, err)
			tt.validateOutput(t, err)
		})
	}
}

func TestFavorites_CorruptEntryIsReset(t *testing.T) {
	fav := NewFavorites(&failingStore{data: []byte("{not json")}, logger.NewTestLogger(t))

	ids, err := fav.List(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, ids)
}
