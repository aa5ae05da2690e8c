package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"linked_friend_services/src/notify"
)

func NotificationsEndpointHandler(svc *notify.Service, logger *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := callerID(w, r, logger)
		if !ok {
			return
		}
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}

		notifications, err := svc.List(r.Context(), userID)
		if err != nil {
			WriteError(w, r, logger, err, "Failed to fetch notifications")
			return
		}

		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"success":       true,
			"notifications": notifications,
		})
	})
}

func ReadAllNotificationsEndpointHandler(svc *notify.Service, logger *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := callerID(w, r, logger)
		if !ok {
			return
		}
		if r.Method != http.MethodPatch {
			methodNotAllowed(w)
			return
		}

		updated, err := svc.MarkAllRead(r.Context(), userID)
		if err != nil {
			WriteError(w, r, logger, err, "Failed to mark all notifications as read")
			return
		}

		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"message": "All notifications marked as read",
			"updated": updated,
		})
	})
}
