package models

type CandidateStatus string

const (
	// CandidatePending marks a candidate the requester already sent a request to.
	CandidatePending CandidateStatus = "pending"
	// CandidateReceived marks a candidate who sent the requester a request.
	CandidateReceived CandidateStatus = "received"
)

type NetworkCandidate struct {
	Profile
	MutualFriendsCount int             `json:"mutualFriendsCount"`
	Status             CandidateStatus `json:"status,omitempty"`
}
