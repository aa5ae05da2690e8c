package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	jwtmiddleware "github.com/auth0/go-jwt-middleware/v2"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"linked_friend_services/src/apperr"
)

const tokenParam = "token"

// Middleware rejects requests without a valid bearer token. The token may
// also arrive as a "token" query parameter, for websocket clients that
// cannot set headers. Cookies are never read, so a browser cannot attach
// credentials to a cross-site request on its own.
func Middleware(v *validator.Validator, logger *zap.Logger) func(http.Handler) http.Handler {
	errorHandler := func(w http.ResponseWriter, r *http.Request, err error) {
		if !errors.Is(err, jwtmiddleware.ErrJWTMissing) {
			logger.Debug("Rejected token", zap.String("path", r.URL.Path), zap.Error(err))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": false,
			"message": "Unauthorized",
		})
	}

	mw := jwtmiddleware.New(
		v.ValidateToken,
		jwtmiddleware.WithErrorHandler(errorHandler),
		jwtmiddleware.WithTokenExtractor(jwtmiddleware.MultiTokenExtractor(
			jwtmiddleware.AuthHeaderTokenExtractor,
			jwtmiddleware.ParameterTokenExtractor(tokenParam),
		)),
	)
	return mw.CheckJWT
}

// UserID returns the authenticated user's id from a request context that
// passed through Middleware.
func UserID(ctx context.Context) (uuid.UUID, error) {
	claims, ok := ctx.Value(jwtmiddleware.ContextKey{}).(*validator.ValidatedClaims)
	if !ok {
		return uuid.Nil, apperr.Unauthorized("")
	}
	id, err := uuid.Parse(claims.RegisteredClaims.Subject)
	if err != nil {
		return uuid.Nil, apperr.Unauthorized("Invalid token subject")
	}
	return id, nil
}

// WithUserID returns a context carrying claims for id, as Middleware would
// after validating a token.
func WithUserID(ctx context.Context, id uuid.UUID) context.Context {
	claims := &validator.ValidatedClaims{
		RegisteredClaims: validator.RegisteredClaims{Subject: id.String()},
	}
	return context.WithValue(ctx, jwtmiddleware.ContextKey{}, claims)
}
