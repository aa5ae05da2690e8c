// Package memory holds in-process implementations of the repositories in
// package store, used by tests across the service.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"linked_friend_services/src/apperr"
	m "linked_friend_services/src/models"
)

// Store keeps users, friendships, friend requests and notifications behind a
// single lock so friendship edges stay symmetric.
type Store struct {
	mu            sync.RWMutex
	users         map[uuid.UUID]m.User
	order         []uuid.UUID
	friends       map[uuid.UUID][]uuid.UUID
	requests      map[uuid.UUID]m.FriendRequest
	requestOrder  []uuid.UUID
	notifications []m.Notification

	// Err, when set, is returned by every call.
	Err error
}

func New() *Store {
	return &Store{
		users:    make(map[uuid.UUID]m.User),
		friends:  make(map[uuid.UUID][]uuid.UUID),
		requests: make(map[uuid.UUID]m.FriendRequest),
	}
}

// AddUser seeds a user, assigning an id when none is set.
func (s *Store) AddUser(user m.User) m.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
		user.UpdatedAt = user.CreatedAt
	}
	if _, ok := s.users[user.ID]; !ok {
		s.order = append(s.order, user.ID)
	}
	friends := user.Friends
	user.Friends = nil
	s.users[user.ID] = user
	for _, friend := range friends {
		s.link(user.ID, friend)
	}
	return s.withFriends(user.ID)
}

// Link seeds a friendship without going through a request.
func (s *Store) Link(a, b uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.link(a, b)
}

func (s *Store) link(a, b uuid.UUID) {
	s.friends[a] = appendUnique(s.friends[a], b)
	s.friends[b] = appendUnique(s.friends[b], a)
}

func (s *Store) unlink(a, b uuid.UUID) bool {
	before := len(s.friends[a])
	s.friends[a] = without(s.friends[a], b)
	s.friends[b] = without(s.friends[b], a)
	return len(s.friends[a]) != before
}

func (s *Store) withFriends(id uuid.UUID) m.User {
	user := s.users[id]
	user.Friends = append([]uuid.UUID(nil), s.friends[id]...)
	return user
}

func (s *Store) FindByID(ctx context.Context, id uuid.UUID) (m.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return m.User{}, s.Err
	}
	if _, ok := s.users[id]; !ok {
		return m.User{}, apperr.NotFound("User")
	}
	return s.withFriends(id), nil
}

func (s *Store) FindByEmail(ctx context.Context, email string) (m.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return m.User{}, s.Err
	}
	for _, id := range s.order {
		if strings.EqualFold(s.users[id].Email, email) {
			return s.withFriends(id), nil
		}
	}
	return m.User{}, apperr.NotFound("User")
}

func (s *Store) FindByIDs(ctx context.Context, ids []uuid.UUID, limit int) ([]m.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, s.Err
	}
	users := []m.User{}
	for _, id := range ids {
		if limit > 0 && len(users) == limit {
			break
		}
		if _, ok := s.users[id]; ok {
			users = append(users, s.withFriends(id))
		}
	}
	return users, nil
}

func (s *Store) FindFriendLists(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID][]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, s.Err
	}
	lists := make(map[uuid.UUID][]uuid.UUID, len(ids))
	for _, id := range ids {
		if _, ok := s.users[id]; ok {
			lists[id] = append([]uuid.UUID(nil), s.friends[id]...)
		}
	}
	return lists, nil
}

func (s *Store) Create(ctx context.Context, user m.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return apperr.Conflict("Email already registered")
		}
	}
	user.Friends = nil
	s.users[user.ID] = user
	s.order = append(s.order, user.ID)
	return nil
}

func (s *Store) UpdateProfile(ctx context.Context, id uuid.UUID, update m.ProfileUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	user, ok := s.users[id]
	if !ok {
		return apperr.NotFound("User")
	}
	if update.FirstName != nil {
		user.FirstName = *update.FirstName
	}
	if update.LastName != nil {
		user.LastName = *update.LastName
	}
	if update.JobTitle != nil {
		user.JobTitle = *update.JobTitle
	}
	if update.Location != nil {
		user.Location = *update.Location
	}
	user.UpdatedAt = time.Now().UTC()
	s.users[id] = user
	return nil
}

func (s *Store) AddFriendship(ctx context.Context, a, b uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.link(a, b)
	return nil
}

func (s *Store) RemoveFriendship(ctx context.Context, a, b uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if !s.unlink(a, b) {
		return apperr.NotFound("Friendship")
	}
	return nil
}

func (s *Store) Search(ctx context.Context, query string, exclude uuid.UUID, limit int) ([]m.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, s.Err
	}
	needle := strings.ToLower(query)
	users := []m.User{}
	for _, id := range s.order {
		if id == exclude {
			continue
		}
		u := s.users[id]
		haystack := strings.ToLower(strings.Join([]string{u.FirstName, u.LastName, u.JobTitle, u.Location, u.Email}, "\n"))
		if strings.Contains(haystack, needle) {
			users = append(users, s.withFriends(id))
		}
	}
	sort.SliceStable(users, func(i, j int) bool {
		return users[i].FirstName+users[i].LastName < users[j].FirstName+users[j].LastName
	})
	if limit > 0 && len(users) > limit {
		users = users[:limit]
	}
	return users, nil
}

func (s *Store) ListSuggestions(ctx context.Context, exclude []uuid.UUID, limit int) ([]m.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, s.Err
	}
	skip := make(map[uuid.UUID]bool, len(exclude))
	for _, id := range exclude {
		skip[id] = true
	}
	users := []m.User{}
	for _, id := range s.order {
		if skip[id] {
			continue
		}
		if len(users) == limit {
			break
		}
		users = append(users, s.withFriends(id))
	}
	return users, nil
}

func (s *Store) ListPage(ctx context.Context, offset, limit int) ([]m.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, s.Err
	}
	users := []m.User{}
	for i := offset; i < len(s.order) && len(users) < limit; i++ {
		users = append(users, s.withFriends(s.order[i]))
	}
	return users, nil
}

func appendUnique(ids []uuid.UUID, id uuid.UUID) []uuid.UUID {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}

func without(ids []uuid.UUID, id uuid.UUID) []uuid.UUID {
	out := ids[:0:0]
	for _, existing := range ids {
		if existing != id {
			out = append(out, existing)
		}
	}
	return out
}
