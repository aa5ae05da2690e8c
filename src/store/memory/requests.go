package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"linked_friend_services/src/apperr"
	m "linked_friend_services/src/models"
)

func (s *Store) FindPending(ctx context.Context, senderID, recipientID *uuid.UUID) ([]m.FriendRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, s.Err
	}
	out := []m.FriendRequest{}
	for _, id := range s.requestOrder {
		r := s.requests[id]
		if r.Status != m.RequestPending {
			continue
		}
		if senderID != nil && r.SenderID != *senderID {
			continue
		}
		if recipientID != nil && r.RecipientID != *recipientID {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *Store) FindPendingBetween(ctx context.Context, userID uuid.UUID, others []uuid.UUID) ([]m.FriendRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, s.Err
	}
	wanted := make(map[uuid.UUID]bool, len(others))
	for _, id := range others {
		wanted[id] = true
	}
	out := []m.FriendRequest{}
	for _, id := range s.requestOrder {
		r := s.requests[id]
		if r.Status != m.RequestPending {
			continue
		}
		if (r.SenderID == userID && wanted[r.RecipientID]) || (r.RecipientID == userID && wanted[r.SenderID]) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Store) Insert(ctx context.Context, request m.FriendRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	for _, existing := range s.requests {
		if existing.Status != m.RequestPending {
			continue
		}
		samePair := (existing.SenderID == request.SenderID && existing.RecipientID == request.RecipientID) ||
			(existing.SenderID == request.RecipientID && existing.RecipientID == request.SenderID)
		if samePair {
			return apperr.Conflict("Friend request already exists")
		}
	}
	s.requests[request.ID] = request
	s.requestOrder = append(s.requestOrder, request.ID)
	return nil
}

func (s *Store) UpdateStatus(ctx context.Context, requestID, recipientID uuid.UUID, status m.RequestStatus) (m.FriendRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return m.FriendRequest{}, s.Err
	}
	r, ok := s.requests[requestID]
	if !ok || r.RecipientID != recipientID || r.Status != m.RequestPending {
		return m.FriendRequest{}, apperr.NotFound("Friend request")
	}
	r.Status = status
	r.UpdatedAt = time.Now().UTC()
	s.requests[requestID] = r
	if status == m.RequestAccepted {
		s.link(r.SenderID, r.RecipientID)
	}
	return r, nil
}

// Request returns the stored request regardless of status.
func (s *Store) Request(id uuid.UUID) (m.FriendRequest, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.requests[id]
	return r, ok
}
