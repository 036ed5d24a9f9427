package idempotency_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/primadev/licensehub/internal/idempotency"
)

// Runs against a live server when REDIS_TEST_URL is set.
func TestRedisStore(t *testing.T) {
	url := os.Getenv("REDIS_TEST_URL")
	if url == "" {
		t.Skip("REDIS_TEST_URL not set")
	}

	ctx := context.Background()

	client, err := idempotency.Connect(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	store := idempotency.NewRedisStore(client, time.Minute)
	key := uuid.NewString()

	got, err := store.Get(ctx, key, "/api/v1/store")
	require.NoError(t, err)
	assert.Nil(t, got)

	first := &idempotency.Response{Status: 200, ContentType: "application/json", Body: `{"orderId":"ORDER-1"}`}
	require.NoError(t, store.Save(ctx, key, "/api/v1/store", first))
	require.NoError(t, store.Save(ctx, key, "/api/v1/store", &idempotency.Response{Status: 200, Body: "second"}))

	got, err = store.Get(ctx, key, "/api/v1/store")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, first.Body, got.Body)

	other, err := store.Get(ctx, key, "/api/v1/other")
	require.NoError(t, err)
	assert.Nil(t, other)
}

func TestConnect_InvalidURL(t *testing.T) {
	_, err := idempotency.Connect(context.Background(), "redis://localhost:notaport")
	assert.Error(t, err)
}
