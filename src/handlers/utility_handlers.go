package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"linked_friend_services/src/apperr"
	"linked_friend_services/src/auth"
)

const maxBodyBytes = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func WriteJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// WriteError maps err to its HTTP status. Internal errors are logged and
// replaced by fallback so no detail reaches the client.
func WriteError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error, fallback string) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error(fallback,
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	WriteJSON(w, status, map[string]interface{}{
		"success": false,
		"message": apperr.PublicMessage(err, fallback),
	})
}

// decodeAndValidate reads a JSON body into dst and runs its validate tags.
func decodeAndValidate(r *http.Request, dst interface{}) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := decoder.Decode(dst); err != nil {
		return apperr.Validation("Invalid request body")
	}
	if err := validate.Struct(dst); err != nil {
		return apperr.Validation(validationMessage(err))
	}
	return nil
}

func validationMessage(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return "Invalid request body"
	}
	fe := fieldErrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", fe.Field())
	case "uuid":
		return fmt.Sprintf("%s must be a valid id", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	}
	return fmt.Sprintf("%s is invalid", fe.Field())
}

// callerID resolves the authenticated user or writes a 401.
func callerID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (uuid.UUID, bool) {
	id, err := auth.UserID(r.Context())
	if err != nil {
		WriteError(w, r, logger, err, "Unauthorized")
		return uuid.Nil, false
	}
	return id, true
}

// pathID parses the {id} route variable.
func pathID(r *http.Request, resource string) (uuid.UUID, error) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		return uuid.Nil, apperr.Validation(fmt.Sprintf("Invalid %s id", resource))
	}
	return id, nil
}

func methodNotAllowed(w http.ResponseWriter) {
	WriteJSON(w, http.StatusMethodNotAllowed, map[string]interface{}{
		"success": false,
		"message": "Method not allowed",
	})
}

func GETHandlerRoot(w http.ResponseWriter, r *http.Request) {
	welcome := "Welcome to Linked Friend Services.\nRequest one of the following routes to query data:\n /auth/profile\n /friends\n /friends/network\n /users/search\n"

	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte(welcome))
}

// HealthEndpointHandler runs each named check. Any failure turns the
// response into a 503 listing the failing components.
func HealthEndpointHandler(checks map[string]func(context.Context) error, logger *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		components := make(map[string]string, len(checks))
		healthy := true
		for name, check := range checks {
			if err := check(ctx); err != nil {
				logger.Warn("Health check failed", zap.String("component", name), zap.Error(err))
				components[name] = "down"
				healthy = false
				continue
			}
			components[name] = "up"
		}

		status := http.StatusOK
		if !healthy {
			status = http.StatusServiceUnavailable
		}
		WriteJSON(w, status, map[string]interface{}{
			"success":    healthy,
			"components": components,
		})
	})
}
