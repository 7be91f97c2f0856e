package backend

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"pricelens/internal/common/logger"
	"pricelens/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleCompare() *models.CompareResponse {
	return &models.CompareResponse{
		Product: &models.RawProduct{ID: "p1", Name: "Widget"},
		Prices: []models.RawStoreOffer{
			{Store: models.RawStore{Name: "Amazon"}, Price: json.Number("19.99")},
			{Store: models.RawStore{Name: "Walmart"}, Price: "18.50"},
		},
	}
}

func TestCompareCache_RoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewCompareCache(client, "test", time.Minute, logger.NewTestLogger(t))
	ctx := context.Background()

	_, ok := cache.Get(ctx, "Widget")
	assert.False(t, ok)

	cache.Set(ctx, "Widget", sampleCompare())
	key := cache.Key("Widget")
	assert.True(t, strings.HasPrefix(key, "test:compare:widget:"))
	assert.True(t, mr.Exists(key))
	assert.InDelta(t, time.Minute.Seconds(), mr.TTL(key).Seconds(), 1)

	got, ok := cache.Get(ctx, "  WIDGET ")
	require.True(t, ok)
	require.Len(t, got.Prices, 2)
	assert.Equal(t, json.Number("19.99"), got.Prices[0].Price)
	assert.Equal(t, "18.50", got.Prices[1].Price)
	assert.Equal(t, "Widget", got.Product.Name)

	mr.FastForward(2 * time.Minute)
	_, ok = cache.Get(ctx, "Widget")
	assert.False(t, ok)
}

func TestCompareCache_ErrorsAreMisses(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := NewCompareCache(client, "test", time.Minute, logger.NewTestLogger(t))
	ctx := context.Background()

	mock.ExpectGet(cache.Key("Widget")).SetErr(errors.New("connection refused"))
	_, ok := cache.Get(ctx, "Widget")
	assert.False(t, ok)

	mock.ExpectGet(cache.Key("Widget")).SetVal("{not json")
	_, ok = cache.Get(ctx, "Widget")
	assert.False(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompareCache_DisabledWhenTTLZero(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewCompareCache(client, "", 0, logger.NewNoOpLogger())

	cache.Set(context.Background(), "Widget", sampleCompare())
	assert.Empty(t, mr.Keys())
}

func TestCompareCache_Key(t *testing.T) {
	cache := NewCompareCache(nil, "test", time.Minute, logger.NewNoOpLogger())

	tests := []struct {
		name string
		a, b string
		same bool
	}{
		{name: "case and spacing ignored", a: "Widget  Pro", b: "  widget pro ", same: true},
		{name: "accents ignored", a: "Café Press", b: "cafe press", same: true},
		{name: "punctuation kept", a: "C++ Primer", b: "C Primer", same: false},
		{name: "punctuation only names differ", a: "+++", b: "---", same: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.same {
				assert.Equal(t, cache.Key(tt.a), cache.Key(tt.b))
			} else {
				assert.NotEqual(t, cache.Key(tt.a), cache.Key(tt.b))
			}
		})
	}
	assert.NotEqual(t, "test:compare:", cache.Key("!!!"))
}

func TestCompareCache_KeepsDistinctProductsApart(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewCompareCache(client, "test", time.Minute, logger.NewTestLogger(t))
	ctx := context.Background()

	cache.Set(ctx, "C++ Primer", sampleCompare())
	_, ok := cache.Get(ctx, "C Primer")
	assert.False(t, ok)
	_, ok = cache.Get(ctx, "c++ primer")
	assert.True(t, ok)
}

func TestCompareCache_NilSafe(t *testing.T) {
	var cache *CompareCache
	_, ok := cache.Get(context.Background(), "x")
	assert.False(t, ok)
	cache.Set(context.Background(), "x", sampleCompare())
}
