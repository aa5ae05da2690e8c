package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	m "linked_friend_services/src/models"
)

type Settings struct {
	Secret   string
	Issuer   string
	Audience string
	TTL      time.Duration
}

// UserClaims are the private claims carried next to the registered ones.
type UserClaims struct {
	Email string `json:"email"`
}

func (c *UserClaims) Validate(ctx context.Context) error {
	return nil
}

type tokenClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// TokenIssuer signs HS256 session tokens whose subject is the user id.
type TokenIssuer struct {
	settings Settings
	now      func() time.Time
}

func NewTokenIssuer(settings Settings) (*TokenIssuer, error) {
	if settings.Secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	return &TokenIssuer{settings: settings, now: time.Now}, nil
}

func (i *TokenIssuer) Issue(user m.User) (string, error) {
	now := i.now()
	claims := tokenClaims{
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.settings.Issuer,
			Subject:   user.ID.String(),
			Audience:  jwt.ClaimStrings{i.settings.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.settings.TTL)),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(i.settings.Secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// NewValidator builds the validator used by Middleware for tokens minted by
// TokenIssuer.
func NewValidator(settings Settings) (*validator.Validator, error) {
	secret := []byte(settings.Secret)
	keyFunc := func(ctx context.Context) (interface{}, error) {
		return secret, nil
	}
	return validator.New(
		keyFunc,
		validator.HS256,
		settings.Issuer,
		[]string{settings.Audience},
		validator.WithCustomClaims(func() validator.CustomClaims {
			return &UserClaims{}
		}),
		validator.WithAllowedClockSkew(30*time.Second),
	)
}
