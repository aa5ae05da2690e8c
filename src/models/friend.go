package models

import (
	"time"

	"github.com/google/uuid"
)

type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestAccepted RequestStatus = "accepted"
	RequestRejected RequestStatus = "rejected"
)

type FriendRequest struct {
	ID          uuid.UUID     `json:"id"`
	SenderID    uuid.UUID     `json:"senderId"`
	RecipientID uuid.UUID     `json:"recipientId"`
	Status      RequestStatus `json:"status"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// Counterpart returns the endpoint of the request that is not userID.
func (r FriendRequest) Counterpart(userID uuid.UUID) uuid.UUID {
	if r.SenderID == userID {
		return r.RecipientID
	}
	return r.SenderID
}

type FriendRequestView struct {
	ID        uuid.UUID     `json:"id"`
	Sender    Profile       `json:"sender"`
	Recipient Profile       `json:"recipient"`
	Status    RequestStatus `json:"status"`
	CreatedAt time.Time     `json:"createdAt"`
}

type FriendRequests struct {
	Sent     []FriendRequestView `json:"sentRequests"`
	Received []FriendRequestView `json:"receivedRequests"`
}
