// Package network resolves a user's friends-of-friends, scored by how many
// friends they share with the requester.
package network

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"linked_friend_services/src/metrics"
	m "linked_friend_services/src/models"
)

const (
	DefaultCandidateLimit = 20

	MessageNoFriends     = "Add friends to see your network connections"
	MessageNoConnections = "No network connections found yet"
)

type UserRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (m.User, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID, limit int) ([]m.User, error)
	FindFriendLists(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID][]uuid.UUID, error)
}

type RequestRepository interface {
	FindPendingBetween(ctx context.Context, userID uuid.UUID, others []uuid.UUID) ([]m.FriendRequest, error)
}

// Result is an ordered candidate list. Message is set only when the list is
// empty for a known reason.
type Result struct {
	Connections []m.NetworkCandidate `json:"connections"`
	Message     string               `json:"message,omitempty"`
}

type Resolver struct {
	users    UserRepository
	requests RequestRepository
	limit    int
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

func NewResolver(users UserRepository, requests RequestRepository, limit int, logger *zap.Logger, mtr *metrics.Metrics) *Resolver {
	if limit <= 0 {
		limit = DefaultCandidateLimit
	}
	return &Resolver{users: users, requests: requests, limit: limit, logger: logger, metrics: mtr}
}

// Resolve returns the friends-of-friends of userID, most mutual friends
// first. Only the first limit candidates, in discovery order, are scored:
// the result is a bounded candidate pool, not a global top-K.
func (r *Resolver) Resolve(ctx context.Context, userID uuid.UUID) (Result, error) {
	start := time.Now()

	user, err := r.users.FindByID(ctx, userID)
	if err != nil {
		return Result{}, err
	}
	if len(user.Friends) == 0 {
		return Result{Connections: []m.NetworkCandidate{}, Message: MessageNoFriends}, nil
	}

	friendLists, err := r.users.FindFriendLists(ctx, user.Friends)
	if err != nil {
		return Result{}, err
	}

	direct := toSet(user.Friends)
	candidates := collectCandidates(userID, user.Friends, direct, friendLists)
	if len(candidates) == 0 {
		return Result{Connections: []m.NetworkCandidate{}, Message: MessageNoConnections}, nil
	}

	var (
		pending  []m.FriendRequest
		profiles []m.User
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		pending, err = r.requests.FindPendingBetween(gctx, userID, candidates)
		return err
	})
	g.Go(func() error {
		var err error
		profiles, err = r.users.FindByIDs(gctx, candidates, r.limit)
		return err
	})
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	statuses := make(map[uuid.UUID]m.CandidateStatus, len(pending))
	for _, req := range pending {
		if req.SenderID == userID {
			statuses[req.RecipientID] = m.CandidatePending
		} else {
			statuses[req.SenderID] = m.CandidateReceived
		}
	}

	connections := make([]m.NetworkCandidate, 0, len(profiles))
	for _, candidate := range profiles {
		connections = append(connections, m.NetworkCandidate{
			Profile:            candidate.Profile(),
			MutualFriendsCount: countMutual(direct, candidate.Friends),
			Status:             statuses[candidate.ID],
		})
	}
	sort.SliceStable(connections, func(i, j int) bool {
		return connections[i].MutualFriendsCount > connections[j].MutualFriendsCount
	})

	r.metrics.ObserveResolve(time.Since(start), len(connections))
	r.logger.Debug("Resolved network",
		zap.Stringer("user_id", userID),
		zap.Int("candidates", len(candidates)),
		zap.Int("returned", len(connections)))

	return Result{Connections: connections}, nil
}

// collectCandidates returns the distinct friends of friends, excluding the
// user and the user's direct friends, in first-seen order.
func collectCandidates(userID uuid.UUID, friends []uuid.UUID, direct map[uuid.UUID]struct{}, friendLists map[uuid.UUID][]uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{})
	var out []uuid.UUID
	for _, friend := range friends {
		for _, id := range friendLists[friend] {
			if id == userID {
				continue
			}
			if _, ok := direct[id]; ok {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

func countMutual(direct map[uuid.UUID]struct{}, friends []uuid.UUID) int {
	n := 0
	for id := range toSet(friends) {
		if _, ok := direct[id]; ok {
			n++
		}
	}
	return n
}

func toSet(ids []uuid.UUID) map[uuid.UUID]struct{} {
	set := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
