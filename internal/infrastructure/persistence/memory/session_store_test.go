package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionStore_SetAndGet(t *testing.T) {
	ctx := context.Background()
	s := NewSessionStore(0)

	term, err := s.LastSearchTerm(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, term)

	require.NoError(t, s.SetLastSearchTerm(ctx, "s1", "ann"))
	require.NoError(t, s.SetLastSearchTerm(ctx, "s1", "bob"))
	require.NoError(t, s.SetLastSearchTerm(ctx, "s2", "cal"))

	term, _ = s.LastSearchTerm(ctx, "s1")
	assert.Equal(t, "bob", term)
	term, _ = s.LastSearchTerm(ctx, "s2")
	assert.Equal(t, "cal", term)

	assert.ErrorIs(t, s.SetLastSearchTerm(ctx, "", "x"), ErrEmptySession)
}

func TestSessionStore_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	s := NewSessionStore(time.Minute)
	s.now = func() time.Time { return now }

	require.NoError(t, s.SetLastSearchTerm(ctx, "s1", "ann"))
	require.NoError(t, s.SetLastSearchTerm(ctx, "s2", "bob"))

	now = now.Add(30 * time.Second)
	term, _ := s.LastSearchTerm(ctx, "s1")
	assert.Equal(t, "ann", term)

	now = now.Add(time.Minute)
	term, _ = s.LastSearchTerm(ctx, "s1")
	assert.Empty(t, term)

	assert.Equal(t, 1, s.Len())
	assert.Equal(t, 1, s.Sweep())
	assert.Zero(t, s.Len())
}

func TestSessionStore_EmptyTermClears(t *testing.T) {
	ctx := context.Background()
	s := NewSessionStore(time.Hour)

	require.NoError(t, s.SetLastSearchTerm(ctx, "s1", "ann"))
	require.NoError(t, s.SetLastSearchTerm(ctx, "s1", ""))

	term, err := s.LastSearchTerm(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, term)
	assert.Zero(t, s.Len())
}
