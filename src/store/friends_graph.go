package store

import (
	"context"

	"github.com/google/uuid"
)

// addEdge writes both directions of a friendship. Callers run it inside a
// transaction so the adjacency stays symmetric.
func addEdge(ctx context.Context, q querier, a, b uuid.UUID) error {
	_, err := q.Exec(ctx, `
		INSERT INTO friends (user_id, friend_id)
		VALUES ($1, $2), ($2, $1)
		ON CONFLICT (user_id, friend_id) DO NOTHING`, a, b)
	return err
}

func removeEdge(ctx context.Context, q querier, a, b uuid.UUID) (int64, error) {
	tag, err := q.Exec(ctx, `
		DELETE FROM friends
		WHERE (user_id = $1 AND friend_id = $2)
		   OR (user_id = $2 AND friend_id = $1)`, a, b)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
