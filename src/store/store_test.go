package store

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linked_friend_services/src/apperr"
)

func TestParseIDs(t *testing.T) {
	a, b := uuid.New(), uuid.New()

	ids, err := parseIDs([]string{a.String(), b.String()})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{a, b}, ids)

	_, err = parseIDs([]string{"not-a-uuid"})
	assert.Error(t, err)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, isUniqueViolation(errors.New("boom")))
}

func TestWrapKeepsApplicationErrors(t *testing.T) {
	notFound := apperr.NotFound("User")
	assert.Same(t, notFound, wrap("find user", notFound))

	err := wrap("find user", errors.New("conn reset"))
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `50\% off\_now`, escapeLike("50% off_now"))
}
