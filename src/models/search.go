package models

type SearchStatus string

const (
	SearchFriend   SearchStatus = "friend"
	SearchPending  SearchStatus = "pending"
	SearchReceived SearchStatus = "received"
	SearchNone     SearchStatus = "none"
)

type SearchResult struct {
	Profile
	Status SearchStatus `json:"status"`
}
