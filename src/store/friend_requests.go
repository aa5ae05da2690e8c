package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"linked_friend_services/src/apperr"
	m "linked_friend_services/src/models"
)

type FriendRequestRepository struct {
	connPool *m.PGPool
}

func NewFriendRequestRepository(connPool *m.PGPool) *FriendRequestRepository {
	return &FriendRequestRepository{connPool: connPool}
}

const requestColumns = `request_id, sender_id, recipient_id, status, created_at, updated_at`

func scanRequest(row pgx.Row) (m.FriendRequest, error) {
	var request m.FriendRequest
	err := row.Scan(&request.ID, &request.SenderID, &request.RecipientID, &request.Status,
		&request.CreatedAt, &request.UpdatedAt)
	return request, err
}

// FindPending lists pending requests, optionally narrowed by sender and/or
// recipient. A nil id matches any user.
func (repo *FriendRequestRepository) FindPending(ctx context.Context, senderID, recipientID *uuid.UUID) ([]m.FriendRequest, error) {
	query := `SELECT ` + requestColumns + `
			FROM friend_requests
			WHERE status = 'pending'
			  AND ($1::uuid IS NULL OR sender_id = $1)
			  AND ($2::uuid IS NULL OR recipient_id = $2)
			ORDER BY created_at`

	return repo.queryRequests(ctx, "find pending requests", query, senderID, recipientID)
}

// FindPendingBetween lists pending requests in either direction between
// userID and any member of others.
func (repo *FriendRequestRepository) FindPendingBetween(ctx context.Context, userID uuid.UUID, others []uuid.UUID) ([]m.FriendRequest, error) {
	if len(others) == 0 {
		return []m.FriendRequest{}, nil
	}

	query := `SELECT ` + requestColumns + `
			FROM friend_requests
			WHERE status = 'pending'
			  AND ((sender_id = $1 AND recipient_id = ANY($2::uuid[]))
			    OR (recipient_id = $1 AND sender_id = ANY($2::uuid[])))
			ORDER BY created_at`

	return repo.queryRequests(ctx, "find pending requests between", query, userID, others)
}

// Insert stores a new pending request. The partial unique index on the
// unordered pair turns a racing duplicate into a Conflict.
func (repo *FriendRequestRepository) Insert(ctx context.Context, request m.FriendRequest) error {
	query := `INSERT INTO friend_requests (` + requestColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := repo.connPool.Pool.Exec(ctx, query, request.ID, request.SenderID, request.RecipientID,
		request.Status, request.CreatedAt, request.UpdatedAt)
	if isUniqueViolation(err) {
		return apperr.Conflict("Friend request already exists")
	}
	if err != nil {
		return wrap("insert friend request", err)
	}
	return nil
}

// UpdateStatus moves a pending request addressed to recipientID into a
// terminal status. Accepting links both users in the same transaction.
// Requests that are missing, already resolved or addressed to someone else
// are NotFound.
func (repo *FriendRequestRepository) UpdateStatus(ctx context.Context, requestID, recipientID uuid.UUID, status m.RequestStatus) (m.FriendRequest, error) {
	query := `UPDATE friend_requests
			SET status = $3, updated_at = $4
			WHERE request_id = $1 AND recipient_id = $2 AND status = 'pending'
			RETURNING ` + requestColumns

	var request m.FriendRequest
	err := repo.connPool.InTx(ctx, func(tx pgx.Tx) error {
		var err error
		request, err = scanRequest(tx.QueryRow(ctx, query, requestID, recipientID, status, time.Now().UTC()))
		if err != nil {
			return err
		}
		if status == m.RequestAccepted {
			return addEdge(ctx, tx, request.SenderID, request.RecipientID)
		}
		return nil
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return m.FriendRequest{}, apperr.NotFound("Friend request")
	}
	if err != nil {
		return m.FriendRequest{}, wrap("update friend request", err)
	}
	return request, nil
}

func (repo *FriendRequestRepository) queryRequests(ctx context.Context, op string, query string, args ...any) ([]m.FriendRequest, error) {
	rows, err := repo.connPool.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer rows.Close()

	requests := []m.FriendRequest{}
	for rows.Next() {
		request, err := scanRequest(rows)
		if err != nil {
			return nil, wrap(op, err)
		}
		requests = append(requests, request)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(op, err)
	}
	return requests, nil
}
