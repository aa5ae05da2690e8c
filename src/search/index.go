// Package search finds users by name, title, location or email.
package search

import (
	"context"

	"github.com/google/uuid"

	m "linked_friend_services/src/models"
)

// Index is a searchable store of user profiles.
type Index interface {
	IndexUser(ctx context.Context, profile m.Profile) error
	Search(ctx context.Context, query string, exclude uuid.UUID, limit int) ([]m.Profile, error)
}

type UserSearcher interface {
	Search(ctx context.Context, query string, exclude uuid.UUID, limit int) ([]m.User, error)
}

// RepositoryIndex searches the user table directly. Indexing is a no-op since
// the table is the source of truth.
type RepositoryIndex struct {
	users UserSearcher
}

func NewRepositoryIndex(users UserSearcher) *RepositoryIndex {
	return &RepositoryIndex{users: users}
}

func (i *RepositoryIndex) IndexUser(ctx context.Context, profile m.Profile) error {
	return nil
}

func (i *RepositoryIndex) Search(ctx context.Context, query string, exclude uuid.UUID, limit int) ([]m.Profile, error) {
	users, err := i.users.Search(ctx, query, exclude, limit)
	if err != nil {
		return nil, err
	}
	profiles := make([]m.Profile, 0, len(users))
	for _, u := range users {
		profiles = append(profiles, u.Profile())
	}
	return profiles, nil
}
