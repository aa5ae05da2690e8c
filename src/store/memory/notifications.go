package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	m "linked_friend_services/src/models"
)

// Notifications is the notification repository view of a Store.
type Notifications struct {
	s *Store
}

func (s *Store) Notifications() *Notifications {
	return &Notifications{s: s}
}

func (n *Notifications) Insert(ctx context.Context, notification m.Notification) error {
	n.s.mu.Lock()
	defer n.s.mu.Unlock()
	if n.s.Err != nil {
		return n.s.Err
	}
	n.s.notifications = append(n.s.notifications, notification)
	return nil
}

func (n *Notifications) ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]m.Notification, error) {
	n.s.mu.RLock()
	defer n.s.mu.RUnlock()
	if n.s.Err != nil {
		return nil, n.s.Err
	}
	out := []m.Notification{}
	for _, notification := range n.s.notifications {
		if notification.UserID == userID {
			out = append(out, notification)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (n *Notifications) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	n.s.mu.Lock()
	defer n.s.mu.Unlock()
	if n.s.Err != nil {
		return 0, n.s.Err
	}
	var count int64
	for i := range n.s.notifications {
		if n.s.notifications[i].UserID == userID && !n.s.notifications[i].Read {
			n.s.notifications[i].Read = true
			count++
		}
	}
	return count, nil
}
