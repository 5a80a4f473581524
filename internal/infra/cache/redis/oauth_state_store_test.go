package redis

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"tenantauth/internal/domain/entity"
	"tenantauth/internal/domain/service"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (service.OAuthStateStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewOAuthStateStore(client), mr
}

func TestOAuthStateStore_StoreAndConsume(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()
	data := entity.OAuthState{Provider: "google", RedirectURI: "https://app.example.com/cb"}

	require.NoError(t, store.Store(ctx, "state-1", data, 10*time.Minute))
	assert.True(t, mr.Exists("oauth:state:state-1"))
	assert.Equal(t, 10*time.Minute, mr.TTL("oauth:state:state-1"))

	got, err := store.Consume(ctx, "state-1")
	require.NoError(t, err)
	assert.Equal(t, data, *got)
	assert.False(t, mr.Exists("oauth:state:state-1"))

	_, err = store.Consume(ctx, "state-1")
	assert.ErrorIs(t, err, service.ErrOAuthStateNotFound)
}

func TestOAuthStateStore_Expiry(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Store(ctx, "state-2", entity.OAuthState{Provider: "google", RedirectURI: "u"}, time.Minute))
	mr.FastForward(2 * time.Minute)

	_, err := store.Consume(ctx, "state-2")
	assert.ErrorIs(t, err, service.ErrOAuthStateNotFound)
}

func TestOAuthStateStore_UnknownAndMalformed(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	_, err := store.Consume(ctx, "missing")
	assert.ErrorIs(t, err, service.ErrOAuthStateNotFound)

	_, err = store.Consume(ctx, "")
	assert.ErrorIs(t, err, service.ErrOAuthStateNotFound)

	require.NoError(t, mr.Set("oauth:state:garbage", "not-json"))
	_, err = store.Consume(ctx, "garbage")
	assert.ErrorIs(t, err, service.ErrOAuthStateNotFound)

	require.NoError(t, mr.Set("oauth:state:partial", `{"provider":"google"}`))
	_, err = store.Consume(ctx, "partial")
	assert.ErrorIs(t, err, service.ErrOAuthStateNotFound)
}

func TestOAuthStateStore_ConcurrentConsumeSucceedsOnce(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Store(ctx, "race", entity.OAuthState{Provider: "google", RedirectURI: "u"}, time.Minute))

	var wins atomic.Int32
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.Consume(ctx, "race"); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}

func TestOAuthStateStore_RedisDown(t *testing.T) {
	store, mr := newTestStore(t)
	mr.Close()

	err := store.Store(context.Background(), "s", entity.OAuthState{Provider: "google", RedirectURI: "u"}, time.Minute)
	assert.Error(t, err)

	_, err = store.Consume(context.Background(), "s")
	require.Error(t, err)
	assert.NotErrorIs(t, err, service.ErrOAuthStateNotFound)
}
