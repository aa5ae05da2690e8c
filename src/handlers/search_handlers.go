package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"linked_friend_services/src/search"
)

func SearchEndpointHandler(svc *search.Service, logger *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := callerID(w, r, logger)
		if !ok {
			return
		}
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}

		results, err := svc.Search(r.Context(), userID, r.URL.Query().Get("query"))
		if err != nil {
			WriteError(w, r, logger, err, "Failed to search users")
			return
		}

		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"users":   results,
		})
	})
}
