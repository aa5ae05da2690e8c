package cache

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"linked_friend_services/src/apperr"
	m "linked_friend_services/src/models"
	"linked_friend_services/src/store/memory"
)

func newTestCache(t *testing.T) (*ProfileCache, *MemoryStore, *memory.Store) {
	t.Helper()
	store := NewMemoryStore()
	users := memory.New()
	c := NewProfileCache(store, users, Options{ProfileTTL: time.Hour, FriendsTTL: 10 * time.Minute}, zap.NewNop(), nil)
	return c, store, users
}

func TestGetProfileReadThrough(t *testing.T) {
	ctx := context.Background()
	c, _, users := newTestCache(t)
	user := users.AddUser(m.User{Email: "ada@example.com", FirstName: "Ada", LastName: "Lovelace", JobTitle: "Analyst"})

	first, source, err := c.GetProfile(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, SourceRepository, source)
	assert.Equal(t, user.Profile(), first)

	second, source, err := c.GetProfile(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, SourceCache, source)
	assert.Equal(t, first, second)
}

func TestGetProfileHitSkipsRepository(t *testing.T) {
	ctx := context.Background()
	c, _, users := newTestCache(t)
	user := users.AddUser(m.User{Email: "ada@example.com", FirstName: "Ada"})

	_, _, err := c.GetProfile(ctx, user.ID)
	require.NoError(t, err)

	users.Err = errors.New("database down")
	profile, source, err := c.GetProfile(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, SourceCache, source)
	assert.Equal(t, "Ada", profile.FirstName)
}

func TestInvalidateForcesRepositoryRead(t *testing.T) {
	ctx := context.Background()
	c, _, users := newTestCache(t)
	user := users.AddUser(m.User{Email: "ada@example.com"})

	_, _, err := c.GetProfile(ctx, user.ID)
	require.NoError(t, err)

	assert.True(t, c.Invalidate(ctx, user.ID))

	_, source, err := c.GetProfile(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, SourceRepository, source)
}

func TestGetProfileDegradesWhenCacheFails(t *testing.T) {
	ctx := context.Background()
	c, store, users := newTestCache(t)
	user := users.AddUser(m.User{Email: "ada@example.com"})
	store.Err = errors.New("connection refused")

	profile, source, err := c.GetProfile(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, SourceRepository, source)
	assert.Equal(t, user.ID, profile.ID)
}

func TestGetProfileMissingUser(t *testing.T) {
	c, _, _ := newTestCache(t)

	_, _, err := c.GetProfile(context.Background(), uuid.New())
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestGetProfileIgnoresUndecodableEntry(t *testing.T) {
	ctx := context.Background()
	c, store, users := newTestCache(t)
	user := users.AddUser(m.User{Email: "ada@example.com"})
	require.NoError(t, store.Set(ctx, ProfileKey(user.ID), []byte("{not json"), time.Hour))

	_, source, err := c.GetProfile(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, SourceRepository, source)
}

func TestProfileEntryExpires(t *testing.T) {
	ctx := context.Background()
	c, store, users := newTestCache(t)
	user := users.AddUser(m.User{Email: "ada@example.com"})

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.SetClock(func() time.Time { return now })

	_, _, err := c.GetProfile(ctx, user.ID)
	require.NoError(t, err)

	now = now.Add(59 * time.Minute)
	_, source, err := c.GetProfile(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, SourceCache, source)

	now = now.Add(2 * time.Minute)
	_, source, err = c.GetProfile(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, SourceRepository, source)
}

func TestGetFriends(t *testing.T) {
	ctx := context.Background()
	c, _, users := newTestCache(t)
	b := users.AddUser(m.User{Email: "b@example.com"})
	cc := users.AddUser(m.User{Email: "c@example.com"})
	a := users.AddUser(m.User{Email: "a@example.com", Friends: []uuid.UUID{b.ID, cc.ID}})

	friends, source, err := c.GetFriends(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, SourceRepository, source)
	assert.Equal(t, []m.Profile{b.Profile(), cc.Profile()}, friends)

	friends, source, err = c.GetFriends(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, SourceCache, source)
	assert.Len(t, friends, 2)
}

func TestInvalidateUserClearsEveryNamespace(t *testing.T) {
	ctx := context.Background()
	c, store, _ := newTestCache(t)
	target := uuid.New()
	other := uuid.New()

	for _, ns := range []string{NamespaceProfile, NamespaceFriends, NamespacePosts, NamespaceFeed} {
		require.NoError(t, store.Set(ctx, Key(ns, target), []byte("{}"), 0))
		require.NoError(t, store.Set(ctx, Key(ns, other), []byte("{}"), 0))
	}
	// Push the target keys across several scan pages.
	for i := 0; i < 250; i++ {
		require.NoError(t, store.Set(ctx, fmt.Sprintf("filler:%03d", i), []byte("x"), 0))
	}

	assert.True(t, c.InvalidateUser(ctx, target))

	remaining, err := store.Keys(ctx, "*:"+target.String())
	require.NoError(t, err)
	assert.Empty(t, remaining)

	kept, err := store.Keys(ctx, "*:"+other.String())
	require.NoError(t, err)
	assert.Len(t, kept, 4)
}

func TestInvalidationFailuresAreSwallowed(t *testing.T) {
	ctx := context.Background()
	c, store, _ := newTestCache(t)
	store.Err = errors.New("connection refused")

	assert.False(t, c.Invalidate(ctx, uuid.New()))
	assert.False(t, c.InvalidateUser(ctx, uuid.New()))
}

func TestClearType(t *testing.T) {
	ctx := context.Background()
	c, store, _ := newTestCache(t)
	id := uuid.New()
	require.NoError(t, store.Set(ctx, ProfileKey(id), []byte("{}"), 0))
	require.NoError(t, store.Set(ctx, FriendsKey(id), []byte("[]"), 0))
	require.NoError(t, store.Set(ctx, Key(NamespaceFeed, id), []byte("[]"), 0))

	n, err := c.ClearType(ctx, id, NamespaceFriends)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = c.ClearType(ctx, id, "all")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = c.ClearType(ctx, id, "sessions")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestStatus(t *testing.T) {
	ctx := context.Background()
	c, store, _ := newTestCache(t)
	id := uuid.New()
	require.NoError(t, store.Set(ctx, ProfileKey(id), []byte("{}"), 0))
	require.NoError(t, store.Set(ctx, FriendsKey(id), []byte("[]"), 0))

	status := c.Status(ctx)
	assert.True(t, status.Connected)
	assert.Equal(t, 1, status.KeyCounts[NamespaceProfile])
	assert.Equal(t, 1, status.KeyCounts[NamespaceFriends])
	assert.Equal(t, 2, status.KeyCounts["total"])
	assert.Equal(t, []string{ProfileKey(id)}, status.ProfileKeys)
	assert.Equal(t, "memory", status.ServerInfo["redis_version"])

	store.Err = errors.New("connection refused")
	status = c.Status(ctx)
	assert.False(t, status.Connected)
	assert.Equal(t, "cache server unreachable", status.Error)
	assert.NotContains(t, status.Error, "connection refused")
}

func TestStatusCountsPurgeOnlyNamespaces(t *testing.T) {
	ctx := context.Background()
	c, store, _ := newTestCache(t)
	id := uuid.New()
	require.NoError(t, store.Set(ctx, Key(NamespacePosts, id), []byte("[]"), 0))
	require.NoError(t, store.Set(ctx, Key(NamespaceFeed, id), []byte("[]"), 0))

	status := c.Status(ctx)
	assert.Equal(t, 1, status.KeyCounts[NamespacePosts])
	assert.Equal(t, 1, status.KeyCounts[NamespaceFeed])

	n, err := c.ClearType(ctx, id, NamespacePosts)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, 0, c.Status(ctx).KeyCounts[NamespacePosts])
}

func TestInvalidateFriendsOf(t *testing.T) {
	ctx := context.Background()
	c, store, users := newTestCache(t)
	a := users.AddUser(m.User{Email: "a@example.com", FirstName: "Old", LastName: "Name"})
	b := users.AddUser(m.User{Email: "b@example.com", FirstName: "Bea", LastName: "Friend"})
	d := users.AddUser(m.User{Email: "d@example.com", FirstName: "Dee", LastName: "Friend"})
	users.Link(a.ID, b.ID)
	users.Link(a.ID, d.ID)

	for _, id := range []uuid.UUID{a.ID, b.ID, d.ID} {
		_, _, err := c.GetFriends(ctx, id)
		require.NoError(t, err)
	}

	assert.True(t, c.InvalidateFriendsOf(ctx, a.ID, []uuid.UUID{b.ID, d.ID}))
	_, err := store.Get(ctx, FriendsKey(b.ID))
	assert.ErrorIs(t, err, ErrMiss)
	_, err = store.Get(ctx, FriendsKey(d.ID))
	assert.ErrorIs(t, err, ErrMiss)
	_, err = store.Get(ctx, FriendsKey(a.ID))
	assert.NoError(t, err, "the updater's own list does not embed its profile")

	assert.True(t, c.InvalidateFriendsOf(ctx, a.ID, nil))

	store.Err = errors.New("connection refused")
	assert.False(t, c.InvalidateFriendsOf(ctx, a.ID, []uuid.UUID{b.ID}))
}
