package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"linked_friend_services/src/friends"
	"linked_friend_services/src/network"
)

type addFriendRequest struct {
	FriendID string `json:"friendId" validate:"required,uuid"`
}

// FriendEndpointHandler serves GET /friends and DELETE /friends/{id}.
func FriendEndpointHandler(svc *friends.Service, logger *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := callerID(w, r, logger)
		if !ok {
			return
		}

		switch r.Method {
		case http.MethodGet:
			GETFriendsByUserID(w, r, svc, logger, userID)
		case http.MethodDelete:
			RemoveUserFromFriendList(w, r, svc, logger, userID)
		default:
			methodNotAllowed(w)
		}
	})
}

func GETFriendsByUserID(w http.ResponseWriter, r *http.Request, svc *friends.Service, logger *zap.Logger, userID uuid.UUID) {
	list, _, err := svc.Friends(r.Context(), userID)
	if err != nil {
		WriteError(w, r, logger, err, "Failed to fetch friends")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"friends": list,
	})
}

func RemoveUserFromFriendList(w http.ResponseWriter, r *http.Request, svc *friends.Service, logger *zap.Logger, userID uuid.UUID) {
	friendID, err := pathID(r, "friend")
	if err != nil {
		WriteError(w, r, logger, err, "Failed to remove friend")
		return
	}

	if err := svc.Remove(r.Context(), userID, friendID); err != nil {
		WriteError(w, r, logger, err, "Failed to remove friend")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Friend removed",
	})
}

func AddFriendEndpointHandler(svc *friends.Service, logger *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := callerID(w, r, logger)
		if !ok {
			return
		}
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}

		var body addFriendRequest
		if err := decodeAndValidate(r, &body); err != nil {
			WriteError(w, r, logger, err, "Failed to add friend")
			return
		}

		friend, err := svc.Add(r.Context(), userID, uuid.MustParse(body.FriendID))
		if err != nil {
			WriteError(w, r, logger, err, "Failed to add friend")
			return
		}

		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"message": "Friend added successfully",
			"friend":  friend,
		})
	})
}

func NetworkEndpointHandler(resolver *network.Resolver, logger *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := callerID(w, r, logger)
		if !ok {
			return
		}
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}

		result, err := resolver.Resolve(r.Context(), userID)
		if err != nil {
			WriteError(w, r, logger, err, "Failed to fetch network connections")
			return
		}

		body := map[string]interface{}{
			"success":     true,
			"connections": result.Connections,
		}
		if result.Message != "" {
			body["message"] = result.Message
		}
		WriteJSON(w, http.StatusOK, body)
	})
}

func SuggestionsEndpointHandler(svc *friends.Service, logger *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := callerID(w, r, logger)
		if !ok {
			return
		}
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}

		suggestions, err := svc.Suggestions(r.Context(), userID)
		if err != nil {
			WriteError(w, r, logger, err, "Failed to fetch suggestions")
			return
		}

		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"success":     true,
			"suggestions": suggestions,
		})
	})
}
