package search

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"linked_friend_services/src/apperr"
	m "linked_friend_services/src/models"
)

const (
	MinQueryLength = 2
	resultLimit    = 20
)

type UserRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (m.User, error)
}

type RequestRepository interface {
	FindPendingBetween(ctx context.Context, userID uuid.UUID, others []uuid.UUID) ([]m.FriendRequest, error)
}

// Service searches users and annotates each hit with its relationship to
// the caller. When the primary index fails it retries on the fallback.
type Service struct {
	primary  Index
	fallback Index
	users    UserRepository
	requests RequestRepository
	logger   *zap.Logger
}

func NewService(primary, fallback Index, users UserRepository, requests RequestRepository, logger *zap.Logger) *Service {
	return &Service{primary: primary, fallback: fallback, users: users, requests: requests, logger: logger}
}

func (s *Service) IndexUser(ctx context.Context, profile m.Profile) error {
	return s.primary.IndexUser(ctx, profile)
}

func (s *Service) Search(ctx context.Context, userID uuid.UUID, query string) ([]m.SearchResult, error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < MinQueryLength {
		return nil, apperr.Validation("Search query must be at least 2 characters")
	}

	var (
		user    m.User
		matches []m.Profile
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		user, err = s.users.FindByID(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		matches, err = s.find(gctx, query, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(matches))
	for _, p := range matches {
		ids = append(ids, p.ID)
	}
	statuses := make(map[uuid.UUID]m.SearchStatus)
	if len(ids) > 0 {
		pending, err := s.requests.FindPendingBetween(ctx, userID, ids)
		if err != nil {
			return nil, err
		}
		for _, r := range pending {
			if r.SenderID == userID {
				statuses[r.RecipientID] = m.SearchPending
			} else {
				statuses[r.SenderID] = m.SearchReceived
			}
		}
	}

	results := make([]m.SearchResult, 0, len(matches))
	for _, p := range matches {
		status := m.SearchNone
		switch {
		case user.IsFriend(p.ID):
			status = m.SearchFriend
		case statuses[p.ID] != "":
			status = statuses[p.ID]
		}
		results = append(results, m.SearchResult{Profile: p, Status: status})
	}
	return results, nil
}

func (s *Service) find(ctx context.Context, query string, exclude uuid.UUID) ([]m.Profile, error) {
	matches, err := s.primary.Search(ctx, query, exclude, resultLimit)
	if err == nil || s.fallback == nil {
		return matches, err
	}
	s.logger.Warn("Search index unavailable, using repository", zap.Error(err))
	return s.fallback.Search(ctx, query, exclude, resultLimit)
}
