package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unreachableConfig() Config {
	cfg := DefaultConfig()
	cfg.Host = "127.0.0.1"
	cfg.Port = 1
	cfg.MaxRetries = -1
	cfg.DialTimeout = 200 * time.Millisecond
	return cfg
}

// newTestStore returns a store backed by an in-process Redis.
func newTestStore(t *testing.T, ttl time.Duration) (*SessionStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewSessionStore(NewCacheFromClient(client, DefaultConfig()), ttl), mr
}

func TestConfig_Addr(t *testing.T) {
	assert.Equal(t, "localhost:6379", DefaultConfig().Addr())
}

func TestConfigFromURL(t *testing.T) {
	base := DefaultConfig()
	cfg, err := ConfigFromURL("redis://:s3cret@cache.internal:6380/2", base)
	require.NoError(t, err)

	assert.Equal(t, "cache.internal:6380", cfg.Addr())
	assert.Equal(t, "s3cret", cfg.Password)
	assert.Equal(t, 2, cfg.DB)
	assert.Equal(t, base.PoolSize, cfg.PoolSize)
	assert.Equal(t, base.KeyPrefix, cfg.KeyPrefix)

	_, err = ConfigFromURL("http://nope", base)
	assert.Error(t, err)
}

func TestSessionKey(t *testing.T) {
	assert.Equal(t, "session:abc:last_term", SessionKey("abc", fieldLastTerm))
}

func TestNewCache_Unreachable(t *testing.T) {
	_, err := NewCache(context.Background(), unreachableConfig())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCacheConnection)
}

func TestSessionStore_EmptySession(t *testing.T) {
	cfg := unreachableConfig()
	client := goredis.NewClient(&goredis.Options{Addr: cfg.Addr(), MaxRetries: -1})
	defer client.Close()

	store := NewSessionStore(NewCacheFromClient(client, cfg), 0)
	assert.Equal(t, TTLSessionData, store.ttl)

	term, err := store.LastSearchTerm(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, term)

	assert.ErrorIs(t, store.SetLastSearchTerm(context.Background(), "", "ann"), ErrCacheKeyEmpty)
}

func TestCache_Validation(t *testing.T) {
	cfg := unreachableConfig()
	client := goredis.NewClient(&goredis.Options{Addr: cfg.Addr(), MaxRetries: -1})
	defer client.Close()
	c := NewCacheFromClient(client, cfg)

	assert.ErrorIs(t, c.SetString(context.Background(), "", "v", time.Minute), ErrCacheKeyEmpty)
	assert.ErrorIs(t, c.SetString(context.Background(), "k", "v", -time.Second), ErrCacheInvalidTTL)
	_, err := c.GetString(context.Background(), "")
	assert.ErrorIs(t, err, ErrCacheKeyEmpty)
	assert.NoError(t, c.Delete(context.Background()))
	assert.Equal(t, "explorer:k", c.key("k"))
}

func TestSessionStore_RoundTrip(t *testing.T) {
	store, mr := newTestStore(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, store.SetLastSearchTerm(ctx, "s1", "vishesh"))
	term, err := store.LastSearchTerm(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "vishesh", term)

	require.NoError(t, store.SetLastSearchTerm(ctx, "s1", "ann"))
	term, err = store.LastSearchTerm(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "ann", term)

	got, err := mr.Get("explorer:session:s1:last_term")
	require.NoError(t, err)
	assert.Equal(t, "ann", got)
}

func TestSessionStore_MissReturnsEmpty(t *testing.T) {
	store, _ := newTestStore(t, time.Hour)

	term, err := store.LastSearchTerm(context.Background(), "unknown")
	require.NoError(t, err)
	assert.Empty(t, term)
}

func TestSessionStore_WriteRefreshesTTL(t *testing.T) {
	store, mr := newTestStore(t, time.Minute)
	ctx := context.Background()
	key := "explorer:session:s1:last_term"

	require.NoError(t, store.SetLastSearchTerm(ctx, "s1", "ann"))
	assert.Equal(t, time.Minute, mr.TTL(key))

	mr.FastForward(40 * time.Second)
	require.NoError(t, store.SetLastSearchTerm(ctx, "s1", "bob"))
	assert.Equal(t, time.Minute, mr.TTL(key))

	mr.FastForward(40 * time.Second)
	term, err := store.LastSearchTerm(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "bob", term, "second write restarted the expiry")

	mr.FastForward(time.Minute)
	term, err = store.LastSearchTerm(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, term)
}

func TestSessionStore_EmptyTermClears(t *testing.T) {
	store, mr := newTestStore(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, store.SetLastSearchTerm(ctx, "s1", "ann"))
	require.NoError(t, store.SetLastSearchTerm(ctx, "s1", ""))

	assert.False(t, mr.Exists("explorer:session:s1:last_term"))
	term, err := store.LastSearchTerm(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, term)
}
