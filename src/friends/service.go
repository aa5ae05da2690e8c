// Package friends manages friend requests and the friendship graph.
package friends

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"linked_friend_services/src/apperr"
	"linked_friend_services/src/cache"
	m "linked_friend_services/src/models"
)

const suggestionLimit = 10

type Action string

const (
	ActionAccept Action = "accept"
	ActionReject Action = "reject"
)

type UserRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (m.User, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID, limit int) ([]m.User, error)
	AddFriendship(ctx context.Context, a, b uuid.UUID) error
	RemoveFriendship(ctx context.Context, a, b uuid.UUID) error
	ListSuggestions(ctx context.Context, exclude []uuid.UUID, limit int) ([]m.User, error)
}

type RequestRepository interface {
	FindPending(ctx context.Context, senderID, recipientID *uuid.UUID) ([]m.FriendRequest, error)
	FindPendingBetween(ctx context.Context, userID uuid.UUID, others []uuid.UUID) ([]m.FriendRequest, error)
	Insert(ctx context.Context, request m.FriendRequest) error
	UpdateStatus(ctx context.Context, requestID, recipientID uuid.UUID, status m.RequestStatus) (m.FriendRequest, error)
}

type Cache interface {
	GetFriends(ctx context.Context, userID uuid.UUID) ([]m.Profile, cache.Source, error)
	InvalidateUser(ctx context.Context, userID uuid.UUID) bool
}

type Notifier interface {
	Notify(ctx context.Context, notification m.Notification) error
}

type Service struct {
	users    UserRepository
	requests RequestRepository
	cache    Cache
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
}

func NewService(users UserRepository, requests RequestRepository, c Cache, notifier Notifier, logger *zap.Logger) *Service {
	return &Service{
		users:    users,
		requests: requests,
		cache:    c,
		notifier: notifier,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// loadPair fetches two users concurrently.
func (s *Service) loadPair(ctx context.Context, a, b uuid.UUID) (m.User, m.User, error) {
	var first, second m.User
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		first, err = s.users.FindByID(gctx, a)
		return err
	})
	g.Go(func() error {
		var err error
		second, err = s.users.FindByID(gctx, b)
		return err
	})
	if err := g.Wait(); err != nil {
		return m.User{}, m.User{}, err
	}
	return first, second, nil
}

// Send creates a pending request from sender to recipient. A pending request
// in either direction, or an existing friendship, is a conflict.
func (s *Service) Send(ctx context.Context, senderID, recipientID uuid.UUID) (m.FriendRequestView, error) {
	if senderID == recipientID {
		return m.FriendRequestView{}, apperr.Validation("Cannot send a friend request to yourself")
	}

	sender, recipient, err := s.loadPair(ctx, senderID, recipientID)
	if err != nil {
		return m.FriendRequestView{}, err
	}
	if sender.IsFriend(recipientID) {
		return m.FriendRequestView{}, apperr.Conflict("Already friends")
	}

	existing, err := s.requests.FindPendingBetween(ctx, senderID, []uuid.UUID{recipientID})
	if err != nil {
		return m.FriendRequestView{}, err
	}
	if len(existing) > 0 {
		return m.FriendRequestView{}, apperr.Conflict("Friend request already exists")
	}

	now := s.now()
	request := m.FriendRequest{
		ID:          uuid.New(),
		SenderID:    senderID,
		RecipientID: recipientID,
		Status:      m.RequestPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.requests.Insert(ctx, request); err != nil {
		return m.FriendRequestView{}, err
	}

	s.notify(ctx, m.Notification{
		UserID:  recipientID,
		Type:    m.NotificationFriendRequest,
		Message: fmt.Sprintf("%s sent you a friend request", sender.FullName()),
		Data: map[string]string{
			"requestId":  request.ID.String(),
			"senderId":   senderID.String(),
			"senderName": sender.FullName(),
		},
		CreatedAt: now,
	})

	return m.FriendRequestView{
		ID:        request.ID,
		Sender:    sender.Profile(),
		Recipient: recipient.Profile(),
		Status:    request.Status,
		CreatedAt: request.CreatedAt,
	}, nil
}

// Respond accepts or rejects a pending request addressed to recipientID.
// Resolved requests are not found.
func (s *Service) Respond(ctx context.Context, requestID, recipientID uuid.UUID, action Action) (m.FriendRequest, error) {
	var status m.RequestStatus
	switch action {
	case ActionAccept:
		status = m.RequestAccepted
	case ActionReject:
		status = m.RequestRejected
	default:
		return m.FriendRequest{}, apperr.Validation("Invalid action. Must be 'accept' or 'reject'")
	}

	request, err := s.requests.UpdateStatus(ctx, requestID, recipientID, status)
	if err != nil {
		return m.FriendRequest{}, err
	}
	if status != m.RequestAccepted {
		return request, nil
	}

	s.cache.InvalidateUser(ctx, request.SenderID)
	s.cache.InvalidateUser(ctx, request.RecipientID)

	recipient, err := s.users.FindByID(ctx, recipientID)
	if err != nil {
		s.logger.Warn("Skipping acceptance notification", zap.Stringer("request_id", requestID), zap.Error(err))
		return request, nil
	}
	s.notify(ctx, m.Notification{
		UserID:  request.SenderID,
		Type:    m.NotificationRequestAccepted,
		Message: fmt.Sprintf("%s accepted your friend request", recipient.FullName()),
		Data: map[string]string{
			"friendId":   recipientID.String(),
			"friendName": recipient.FullName(),
		},
		CreatedAt: s.now(),
	})
	return request, nil
}

// Requests lists the pending requests userID has sent and received.
func (s *Service) Requests(ctx context.Context, userID uuid.UUID) (m.FriendRequests, error) {
	var sent, received []m.FriendRequest
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sent, err = s.requests.FindPending(gctx, &userID, nil)
		return err
	})
	g.Go(func() error {
		var err error
		received, err = s.requests.FindPending(gctx, nil, &userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return m.FriendRequests{}, err
	}

	counterparts := make([]uuid.UUID, 0, len(sent)+len(received)+1)
	counterparts = append(counterparts, userID)
	for _, r := range sent {
		counterparts = append(counterparts, r.RecipientID)
	}
	for _, r := range received {
		counterparts = append(counterparts, r.SenderID)
	}
	users, err := s.users.FindByIDs(ctx, counterparts, 0)
	if err != nil {
		return m.FriendRequests{}, err
	}
	profiles := make(map[uuid.UUID]m.Profile, len(users))
	for _, u := range users {
		profiles[u.ID] = u.Profile()
	}

	view := func(r m.FriendRequest) m.FriendRequestView {
		return m.FriendRequestView{
			ID:        r.ID,
			Sender:    profileOrID(profiles, r.SenderID),
			Recipient: profileOrID(profiles, r.RecipientID),
			Status:    r.Status,
			CreatedAt: r.CreatedAt,
		}
	}
	out := m.FriendRequests{
		Sent:     make([]m.FriendRequestView, 0, len(sent)),
		Received: make([]m.FriendRequestView, 0, len(received)),
	}
	for _, r := range sent {
		out.Sent = append(out.Sent, view(r))
	}
	for _, r := range received {
		out.Received = append(out.Received, view(r))
	}
	return out, nil
}

func profileOrID(profiles map[uuid.UUID]m.Profile, id uuid.UUID) m.Profile {
	if p, ok := profiles[id]; ok {
		return p
	}
	return m.Profile{ID: id}
}

func (s *Service) Friends(ctx context.Context, userID uuid.UUID) ([]m.Profile, cache.Source, error) {
	return s.cache.GetFriends(ctx, userID)
}

// Add links two users directly without a request.
func (s *Service) Add(ctx context.Context, userID, friendID uuid.UUID) (m.Profile, error) {
	if userID == friendID {
		return m.Profile{}, apperr.Validation("Cannot add yourself as a friend")
	}

	user, friend, err := s.loadPair(ctx, userID, friendID)
	if err != nil {
		return m.Profile{}, err
	}
	if user.IsFriend(friendID) {
		return m.Profile{}, apperr.Conflict("Already friends")
	}
	if err := s.users.AddFriendship(ctx, userID, friendID); err != nil {
		return m.Profile{}, err
	}

	s.cache.InvalidateUser(ctx, userID)
	s.cache.InvalidateUser(ctx, friendID)
	return friend.Profile(), nil
}

func (s *Service) Remove(ctx context.Context, userID, friendID uuid.UUID) error {
	if err := s.users.RemoveFriendship(ctx, userID, friendID); err != nil {
		return err
	}
	s.cache.InvalidateUser(ctx, userID)
	s.cache.InvalidateUser(ctx, friendID)
	return nil
}

// Suggestions returns up to ten users who are neither friends of userID nor
// on the other end of a pending request.
func (s *Service) Suggestions(ctx context.Context, userID uuid.UUID) ([]m.Profile, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	var sent, received []m.FriendRequest
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sent, err = s.requests.FindPending(gctx, &userID, nil)
		return err
	})
	g.Go(func() error {
		var err error
		received, err = s.requests.FindPending(gctx, nil, &userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	exclude := append([]uuid.UUID{userID}, user.Friends...)
	for _, r := range append(sent, received...) {
		exclude = append(exclude, r.Counterpart(userID))
	}

	users, err := s.users.ListSuggestions(ctx, exclude, suggestionLimit)
	if err != nil {
		return nil, err
	}
	out := make([]m.Profile, 0, len(users))
	for _, u := range users {
		out = append(out, u.Profile())
	}
	return out, nil
}

func (s *Service) notify(ctx context.Context, notification m.Notification) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, notification); err != nil {
		s.logger.Error("Failed to record notification",
			zap.Stringer("user_id", notification.UserID),
			zap.String("type", string(notification.Type)),
			zap.Error(err))
	}
}
