package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"linked_friend_services/src/account"
	"linked_friend_services/src/cache"
	m "linked_friend_services/src/models"
)

func RegisterEndpointHandler(accounts *account.Service, logger *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		POSTRegister(w, r, accounts, logger)
	})
}

func POSTRegister(w http.ResponseWriter, r *http.Request, accounts *account.Service, logger *zap.Logger) {
	var registration account.Registration
	if err := decodeAndValidate(r, &registration); err != nil {
		WriteError(w, r, logger, err, "Registration failed")
		return
	}

	profile, err := accounts.Register(r.Context(), registration)
	if err != nil {
		WriteError(w, r, logger, err, "Registration failed")
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"user":    profile,
	})
}

func LoginEndpointHandler(accounts *account.Service, logger *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		POSTLogin(w, r, accounts, logger)
	})
}

func POSTLogin(w http.ResponseWriter, r *http.Request, accounts *account.Service, logger *zap.Logger) {
	var creds account.Credentials
	if err := decodeAndValidate(r, &creds); err != nil {
		WriteError(w, r, logger, err, "Login failed")
		return
	}

	token, profile, err := accounts.Login(r.Context(), creds)
	if err != nil {
		WriteError(w, r, logger, err, "Login failed")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"user":    profile,
		"token":   token,
	})
}

func ProfileEndpointHandler(accounts *account.Service, profiles *cache.ProfileCache, logger *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := callerID(w, r, logger)
		if !ok {
			return
		}

		switch r.Method {
		case http.MethodGet:
			profile, source, err := profiles.GetProfile(r.Context(), userID)
			if err != nil {
				WriteError(w, r, logger, err, "Failed to fetch profile")
				return
			}
			GETProfile(w, profile, source)
		case http.MethodPatch:
			PATCHProfile(w, r, accounts, logger, userID)
		default:
			methodNotAllowed(w)
		}
	})
}

// GETProfile writes the profile along with where it was served from.
func GETProfile(w http.ResponseWriter, profile m.Profile, source cache.Source) {
	cached := source == cache.SourceCache
	if cached {
		w.Header().Set("X-Cache-Status", "HIT")
		w.Header().Set("X-Cache-Source", "redis")
		w.Header().Set("Cache-Control", "private, max-age=60")
	} else {
		w.Header().Set("X-Cache-Status", "MISS")
		w.Header().Set("X-Cache-Source", "database")
		w.Header().Set("Cache-Control", "private, no-cache")
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"user":    profile,
		"cached":  cached,
	})
}

func PATCHProfile(w http.ResponseWriter, r *http.Request, accounts *account.Service, logger *zap.Logger, userID uuid.UUID) {
	var update m.ProfileUpdate
	if err := decodeAndValidate(r, &update); err != nil {
		WriteError(w, r, logger, err, "Failed to update profile")
		return
	}

	profile, err := accounts.UpdateProfile(r.Context(), userID, update)
	if err != nil {
		WriteError(w, r, logger, err, "Failed to update profile")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Profile updated",
		"user":    profile,
	})
}
