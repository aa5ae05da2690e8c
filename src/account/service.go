// Package account handles registration, login and profile edits.
package account

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"linked_friend_services/src/apperr"
	"linked_friend_services/src/auth"
	m "linked_friend_services/src/models"
)

type Registration struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=6,max=72"`
	FirstName string `json:"firstName" validate:"required,max=100"`
	LastName  string `json:"lastName" validate:"required,max=100"`
	JobTitle  string `json:"jobTitle" validate:"max=200"`
	Location  string `json:"location" validate:"max=200"`
}

type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type UserRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (m.User, error)
	FindByEmail(ctx context.Context, email string) (m.User, error)
	Create(ctx context.Context, user m.User) error
	UpdateProfile(ctx context.Context, id uuid.UUID, update m.ProfileUpdate) error
}

type Cache interface {
	Invalidate(ctx context.Context, userID uuid.UUID) bool
	InvalidateFriendsOf(ctx context.Context, userID uuid.UUID, friendIDs []uuid.UUID) bool
}

type Indexer interface {
	IndexUser(ctx context.Context, profile m.Profile) error
}

type Tokens interface {
	Issue(user m.User) (string, error)
}

type Service struct {
	users  UserRepository
	cache  Cache
	index  Indexer
	tokens Tokens
	logger *zap.Logger
	hash   func(string) (string, error)
}

func NewService(users UserRepository, c Cache, index Indexer, tokens Tokens, logger *zap.Logger) *Service {
	return &Service{users: users, cache: c, index: index, tokens: tokens, logger: logger, hash: auth.HashPassword}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) Register(ctx context.Context, reg Registration) (m.Profile, error) {
	email := normalizeEmail(reg.Email)

	_, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return m.Profile{}, apperr.Conflict("Email already registered")
	case !apperr.Is(err, apperr.KindNotFound):
		return m.Profile{}, err
	}

	hash, err := s.hash(reg.Password)
	if err != nil {
		return m.Profile{}, apperr.Internal("hash password", err)
	}

	now := time.Now().UTC()
	user := m.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(reg.FirstName),
		LastName:     strings.TrimSpace(reg.LastName),
		JobTitle:     strings.TrimSpace(reg.JobTitle),
		Location:     strings.TrimSpace(reg.Location),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return m.Profile{}, err
	}

	s.reindex(ctx, user.Profile())
	s.logger.Info("Registered user", zap.Stringer("user_id", user.ID))
	return user.Profile(), nil
}

// Login returns a session token for valid credentials. Unknown emails and
// wrong passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, creds Credentials) (string, m.Profile, error) {
	invalid := apperr.Unauthorized("Invalid email or password")

	user, err := s.users.FindByEmail(ctx, normalizeEmail(creds.Email))
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return "", m.Profile{}, invalid
		}
		return "", m.Profile{}, err
	}
	if !auth.CheckPassword(user.PasswordHash, creds.Password) {
		return "", m.Profile{}, invalid
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return "", m.Profile{}, apperr.Internal("issue token", err)
	}
	return token, user.Profile(), nil
}

// UpdateProfile applies the non-nil fields of update. The cached profile, and
// every cached friends list that embeds it, is dropped before the new one is
// returned.
func (s *Service) UpdateProfile(ctx context.Context, userID uuid.UUID, update m.ProfileUpdate) (m.Profile, error) {
	if update == (m.ProfileUpdate{}) {
		return m.Profile{}, apperr.Validation("No fields to update")
	}
	if err := s.users.UpdateProfile(ctx, userID, update); err != nil {
		return m.Profile{}, err
	}
	s.cache.Invalidate(ctx, userID)

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return m.Profile{}, err
	}
	s.cache.InvalidateFriendsOf(ctx, userID, user.Friends)
	s.reindex(ctx, user.Profile())
	return user.Profile(), nil
}

func (s *Service) reindex(ctx context.Context, profile m.Profile) {
	if s.index == nil {
		return
	}
	if err := s.index.IndexUser(ctx, profile); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn("Failed to index user", zap.Stringer("user_id", profile.ID), zap.Error(err))
	}
}
