package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"linked_friend_services/src/cache"
)

func RedisStatusEndpointHandler(profiles *cache.ProfileCache, logger *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := callerID(w, r, logger); !ok {
			return
		}
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}

		status := profiles.Status(r.Context())
		if !status.Connected {
			WriteJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
				"success": false,
				"message": "Redis is not connected",
				"redis":   status,
			})
			return
		}

		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"redis": map[string]interface{}{
				"connected":           true,
				"userProfilesInCache": status.KeyCounts[cache.NamespaceProfile],
				"keys":                status.ProfileKeys,
				"serverInfo":          status.ServerInfo,
				"cacheStats":          status.KeyCounts,
			},
		})
	})
}

// ClearCacheEndpointHandler drops the caller's cached entries, optionally
// limited to one namespace via ?type=.
func ClearCacheEndpointHandler(profiles *cache.ProfileCache, logger *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := callerID(w, r, logger)
		if !ok {
			return
		}
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}

		cacheType := r.URL.Query().Get("type")
		removed, err := profiles.ClearType(r.Context(), userID, cacheType)
		if err != nil {
			WriteError(w, r, logger, err, "Failed to clear cache")
			return
		}
		if cacheType == "" {
			cacheType = "all"
		}

		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"success":     true,
			"message":     "Cache cleared successfully",
			"keysRemoved": removed,
			"cacheType":   cacheType,
		})
	})
}
