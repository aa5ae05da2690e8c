package friends

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"linked_friend_services/src/apperr"
	"linked_friend_services/src/cache"
	m "linked_friend_services/src/models"
	"linked_friend_services/src/store/memory"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []m.Notification
	err  error
}

func (n *recordingNotifier) Notify(ctx context.Context, notification m.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification)
	return n.err
}

type fixture struct {
	service  *Service
	store    *memory.Store
	kv       *cache.MemoryStore
	notifier *recordingNotifier
	alice    m.User
	bob      m.User
	carol    m.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	kv := cache.NewMemoryStore()
	profiles := cache.NewProfileCache(kv, store, cache.Options{ProfileTTL: time.Hour, FriendsTTL: time.Hour}, zap.NewNop(), nil)
	notifier := &recordingNotifier{}
	return &fixture{
		service:  NewService(store, store, profiles, notifier, zap.NewNop()),
		store:    store,
		kv:       kv,
		notifier: notifier,
		alice:    store.AddUser(m.User{Email: "alice@example.com", FirstName: "Alice", LastName: "Smith"}),
		bob:      store.AddUser(m.User{Email: "bob@example.com", FirstName: "Bob", LastName: "Jones"}),
		carol:    store.AddUser(m.User{Email: "carol@example.com", FirstName: "Carol", LastName: "White"}),
	}
}

func TestSendCreatesPendingRequestAndNotifies(t *testing.T) {
	f := newFixture(t)

	view, err := f.service.Send(context.Background(), f.alice.ID, f.bob.ID)
	require.NoError(t, err)
	assert.Equal(t, m.RequestPending, view.Status)
	assert.Equal(t, f.alice.ID, view.Sender.ID)
	assert.Equal(t, f.bob.ID, view.Recipient.ID)

	require.Len(t, f.notifier.sent, 1)
	n := f.notifier.sent[0]
	assert.Equal(t, f.bob.ID, n.UserID)
	assert.Equal(t, m.NotificationFriendRequest, n.Type)
	assert.Equal(t, "Alice Smith sent you a friend request", n.Message)
	assert.Equal(t, view.ID.String(), n.Data["requestId"])
}

func TestSendRejectsReverseRequestWhilePending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.Send(ctx, f.alice.ID, f.bob.ID)
	require.NoError(t, err)

	_, err = f.service.Send(ctx, f.bob.ID, f.alice.ID)
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	_, err = f.service.Send(ctx, f.alice.ID, f.bob.ID)
	assert.True(t, apperr.Is(err, apperr.KindConflict))
}

func TestSendValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.Send(ctx, f.alice.ID, f.alice.ID)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = f.service.Send(ctx, f.alice.ID, uuid.New())
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	f.store.Link(f.alice.ID, f.carol.ID)
	_, err = f.service.Send(ctx, f.alice.ID, f.carol.ID)
	assert.True(t, apperr.Is(err, apperr.KindConflict))
}

func TestAcceptLinksBothUsersOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	view, err := f.service.Send(ctx, f.alice.ID, f.bob.ID)
	require.NoError(t, err)

	request, err := f.service.Respond(ctx, view.ID, f.bob.ID, ActionAccept)
	require.NoError(t, err)
	assert.Equal(t, m.RequestAccepted, request.Status)

	alice, err := f.store.FindByID(ctx, f.alice.ID)
	require.NoError(t, err)
	bob, err := f.store.FindByID(ctx, f.bob.ID)
	require.NoError(t, err)
	assert.True(t, alice.IsFriend(f.bob.ID))
	assert.True(t, bob.IsFriend(f.alice.ID))

	_, err = f.service.Respond(ctx, view.ID, f.bob.ID, ActionAccept)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	_, err = f.service.Respond(ctx, view.ID, f.bob.ID, ActionReject)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	stored, ok := f.store.Request(view.ID)
	require.True(t, ok)
	assert.Equal(t, m.RequestAccepted, stored.Status)

	require.Len(t, f.notifier.sent, 2)
	assert.Equal(t, m.NotificationRequestAccepted, f.notifier.sent[1].Type)
	assert.Equal(t, f.alice.ID, f.notifier.sent[1].UserID)
}

func TestAcceptInvalidatesCachedFriends(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	friends, _, err := f.service.Friends(ctx, f.alice.ID)
	require.NoError(t, err)
	assert.Empty(t, friends)

	view, err := f.service.Send(ctx, f.alice.ID, f.bob.ID)
	require.NoError(t, err)
	_, err = f.service.Respond(ctx, view.ID, f.bob.ID, ActionAccept)
	require.NoError(t, err)

	friends, source, err := f.service.Friends(ctx, f.alice.ID)
	require.NoError(t, err)
	assert.Equal(t, cache.SourceRepository, source)
	require.Len(t, friends, 1)
	assert.Equal(t, f.bob.ID, friends[0].ID)
}

func TestRespondOnlyByRecipient(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	view, err := f.service.Send(ctx, f.alice.ID, f.bob.ID)
	require.NoError(t, err)

	_, err = f.service.Respond(ctx, view.ID, f.alice.ID, ActionAccept)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = f.service.Respond(ctx, view.ID, f.bob.ID, Action("maybe"))
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestRejectLeavesUsersUnlinked(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	view, err := f.service.Send(ctx, f.alice.ID, f.bob.ID)
	require.NoError(t, err)
	request, err := f.service.Respond(ctx, view.ID, f.bob.ID, ActionReject)
	require.NoError(t, err)
	assert.Equal(t, m.RequestRejected, request.Status)

	alice, err := f.store.FindByID(ctx, f.alice.ID)
	require.NoError(t, err)
	assert.False(t, alice.IsFriend(f.bob.ID))

	// A rejected request no longer blocks a new one.
	_, err = f.service.Send(ctx, f.bob.ID, f.alice.ID)
	assert.NoError(t, err)
}

func TestRequestsListsBothDirections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.Send(ctx, f.alice.ID, f.bob.ID)
	require.NoError(t, err)
	_, err = f.service.Send(ctx, f.carol.ID, f.alice.ID)
	require.NoError(t, err)

	requests, err := f.service.Requests(ctx, f.alice.ID)
	require.NoError(t, err)
	require.Len(t, requests.Sent, 1)
	require.Len(t, requests.Received, 1)
	assert.Equal(t, "Bob", requests.Sent[0].Recipient.FirstName)
	assert.Equal(t, "Carol", requests.Received[0].Sender.FirstName)
}

func TestAddAndRemove(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	profile, err := f.service.Add(ctx, f.alice.ID, f.bob.ID)
	require.NoError(t, err)
	assert.Equal(t, f.bob.ID, profile.ID)

	_, err = f.service.Add(ctx, f.alice.ID, f.bob.ID)
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	bob, err := f.store.FindByID(ctx, f.bob.ID)
	require.NoError(t, err)
	assert.True(t, bob.IsFriend(f.alice.ID))

	require.NoError(t, f.service.Remove(ctx, f.bob.ID, f.alice.ID))
	alice, err := f.store.FindByID(ctx, f.alice.ID)
	require.NoError(t, err)
	assert.False(t, alice.IsFriend(f.bob.ID))

	err = f.service.Remove(ctx, f.bob.ID, f.alice.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestSuggestionsExcludeFriendsAndPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dave := f.store.AddUser(m.User{Email: "dave@example.com", FirstName: "Dave"})

	f.store.Link(f.alice.ID, f.bob.ID)
	_, err := f.service.Send(ctx, f.carol.ID, f.alice.ID)
	require.NoError(t, err)

	suggestions, err := f.service.Suggestions(ctx, f.alice.ID)
	require.NoError(t, err)
	require.Len(t, suggestions, 1)
	assert.Equal(t, dave.ID, suggestions[0].ID)
}

func TestNotificationFailureDoesNotFailSend(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("redis down")

	_, err := f.service.Send(context.Background(), f.alice.ID, f.bob.ID)
	assert.NoError(t, err)
}
