package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"linked_friend_services/src/friends"
)

type sendRequestBody struct {
	RecipientID string `json:"recipientId" validate:"required,uuid"`
}

type respondRequestBody struct {
	Action string `json:"action" validate:"required,oneof=accept reject"`
}

// FriendRequestEndpointHandler serves GET and POST /friends/requests.
func FriendRequestEndpointHandler(svc *friends.Service, logger *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := callerID(w, r, logger)
		if !ok {
			return
		}

		switch r.Method {
		case http.MethodGet:
			GETFriendRequests(w, r, svc, logger, userID)
		case http.MethodPost:
			POSTFriendRequest(w, r, svc, logger, userID)
		default:
			methodNotAllowed(w)
		}
	})
}

func GETFriendRequests(w http.ResponseWriter, r *http.Request, svc *friends.Service, logger *zap.Logger, userID uuid.UUID) {
	requests, err := svc.Requests(r.Context(), userID)
	if err != nil {
		WriteError(w, r, logger, err, "Failed to fetch friend requests")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":          true,
		"sentRequests":     requests.Sent,
		"receivedRequests": requests.Received,
	})
}

func POSTFriendRequest(w http.ResponseWriter, r *http.Request, svc *friends.Service, logger *zap.Logger, senderID uuid.UUID) {
	var body sendRequestBody
	if err := decodeAndValidate(r, &body); err != nil {
		WriteError(w, r, logger, err, "Failed to send friend request")
		return
	}

	request, err := svc.Send(r.Context(), senderID, uuid.MustParse(body.RecipientID))
	if err != nil {
		WriteError(w, r, logger, err, "Failed to send friend request")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Friend request sent",
		"request": request,
	})
}

// FriendRequestResponseEndpointHandler serves PATCH /friends/requests/{id}.
func FriendRequestResponseEndpointHandler(svc *friends.Service, logger *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := callerID(w, r, logger)
		if !ok {
			return
		}
		if r.Method != http.MethodPatch {
			methodNotAllowed(w)
			return
		}

		requestID, err := pathID(r, "friend request")
		if err != nil {
			WriteError(w, r, logger, err, "Failed to process friend request")
			return
		}
		var body respondRequestBody
		if err := decodeAndValidate(r, &body); err != nil {
			WriteError(w, r, logger, err, "Failed to process friend request")
			return
		}

		action := friends.Action(body.Action)
		if _, err := svc.Respond(r.Context(), requestID, userID, action); err != nil {
			WriteError(w, r, logger, err, "Failed to process friend request")
			return
		}

		message := "Friend request rejected"
		if action == friends.ActionAccept {
			message = "Friend request accepted"
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"message": message,
		})
	})
}
