package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"linked_friend_services/src/apperr"
	m "linked_friend_services/src/models"
)

type UserRepository struct {
	connPool *m.PGPool
}

func NewUserRepository(connPool *m.PGPool) *UserRepository {
	return &UserRepository{connPool: connPool}
}

const userColumns = `u.user_id, u.email, u.password_hash, u.first_name, u.last_name, u.job_title,
		u.location, u.created_at, u.updated_at,
		COALESCE(array_agg(f.friend_id::text ORDER BY f.friends_since, f.friend_id)
			FILTER (WHERE f.friend_id IS NOT NULL), '{}')`

func scanUser(row pgx.Row) (m.User, error) {
	var user m.User
	var friends []string

	err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.FirstName, &user.LastName,
		&user.JobTitle, &user.Location, &user.CreatedAt, &user.UpdatedAt, &friends)
	if err != nil {
		return m.User{}, err
	}

	user.Friends, err = parseIDs(friends)
	if err != nil {
		return m.User{}, err
	}
	return user, nil
}

func (repo *UserRepository) FindByID(ctx context.Context, id uuid.UUID) (m.User, error) {
	query := `SELECT ` + userColumns + `
			FROM users u
			LEFT JOIN friends f ON f.user_id = u.user_id
			WHERE u.user_id = $1
			GROUP BY u.user_id`

	user, err := scanUser(repo.connPool.Pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return m.User{}, apperr.NotFound("User")
	}
	if err != nil {
		return m.User{}, wrap("find user by id", err)
	}
	return user, nil
}

func (repo *UserRepository) FindByEmail(ctx context.Context, email string) (m.User, error) {
	query := `SELECT ` + userColumns + `
			FROM users u
			LEFT JOIN friends f ON f.user_id = u.user_id
			WHERE lower(u.email) = lower($1)
			GROUP BY u.user_id`

	user, err := scanUser(repo.connPool.Pool.QueryRow(ctx, query, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return m.User{}, apperr.NotFound("User")
	}
	if err != nil {
		return m.User{}, wrap("find user by email", err)
	}
	return user, nil
}

// FindByIDs returns users in the order their ids were given. A positive limit
// truncates the result after that many rows.
func (repo *UserRepository) FindByIDs(ctx context.Context, ids []uuid.UUID, limit int) ([]m.User, error) {
	if len(ids) == 0 {
		return []m.User{}, nil
	}

	query := `SELECT ` + userColumns + `
			FROM users u
			LEFT JOIN friends f ON f.user_id = u.user_id
			WHERE u.user_id = ANY($1::uuid[])
			GROUP BY u.user_id
			ORDER BY array_position($1::uuid[], u.user_id)`
	args := []any{ids}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	return repo.queryUsers(ctx, "find users by ids", query, args...)
}

// FindFriendLists is the {id, friends} projection of FindByIDs.
func (repo *UserRepository) FindFriendLists(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID][]uuid.UUID, error) {
	lists := make(map[uuid.UUID][]uuid.UUID, len(ids))
	if len(ids) == 0 {
		return lists, nil
	}

	query := `SELECT u.user_id,
				COALESCE(array_agg(f.friend_id::text ORDER BY f.friends_since, f.friend_id)
					FILTER (WHERE f.friend_id IS NOT NULL), '{}')
			FROM users u
			LEFT JOIN friends f ON f.user_id = u.user_id
			WHERE u.user_id = ANY($1::uuid[])
			GROUP BY u.user_id`

	rows, err := repo.connPool.Pool.Query(ctx, query, ids)
	if err != nil {
		return nil, wrap("find friend lists", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		var raw []string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, wrap("scan friend list", err)
		}
		friends, err := parseIDs(raw)
		if err != nil {
			return nil, wrap("parse friend list", err)
		}
		lists[id] = friends
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("find friend lists", err)
	}
	return lists, nil
}

func (repo *UserRepository) Create(ctx context.Context, user m.User) error {
	query := `INSERT INTO users (user_id, email, password_hash, first_name, last_name, job_title, location, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := repo.connPool.Pool.Exec(ctx, query, user.ID, user.Email, user.PasswordHash, user.FirstName,
		user.LastName, user.JobTitle, user.Location, user.CreatedAt, user.UpdatedAt)
	if isUniqueViolation(err) {
		return apperr.Conflict("Email already registered")
	}
	if err != nil {
		return wrap("create user", err)
	}
	return nil
}

func (repo *UserRepository) UpdateProfile(ctx context.Context, id uuid.UUID, update m.ProfileUpdate) error {
	query := `UPDATE users
			SET first_name = COALESCE($2, first_name),
				last_name = COALESCE($3, last_name),
				job_title = COALESCE($4, job_title),
				location = COALESCE($5, location),
				updated_at = $6
			WHERE user_id = $1`

	tag, err := repo.connPool.Pool.Exec(ctx, query, id, update.FirstName, update.LastName,
		update.JobTitle, update.Location, time.Now().UTC())
	if err != nil {
		return wrap("update profile", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("User")
	}
	return nil
}

// AddFriendship links a and b in both directions atomically.
func (repo *UserRepository) AddFriendship(ctx context.Context, a, b uuid.UUID) error {
	err := repo.connPool.InTx(ctx, func(tx pgx.Tx) error {
		return addEdge(ctx, tx, a, b)
	})
	if err != nil {
		return wrap("add friendship", err)
	}
	return nil
}

func (repo *UserRepository) RemoveFriendship(ctx context.Context, a, b uuid.UUID) error {
	var removed int64
	err := repo.connPool.InTx(ctx, func(tx pgx.Tx) error {
		var err error
		removed, err = removeEdge(ctx, tx, a, b)
		return err
	})
	if err != nil {
		return wrap("remove friendship", err)
	}
	if removed == 0 {
		return apperr.NotFound("Friendship")
	}
	return nil
}

// Search matches users whose name, job title, location or email contain query.
func (repo *UserRepository) Search(ctx context.Context, query string, exclude uuid.UUID, limit int) ([]m.User, error) {
	sqlQuery := `SELECT ` + userColumns + `
			FROM users u
			LEFT JOIN friends f ON f.user_id = u.user_id
			WHERE u.user_id <> $1
			  AND (u.first_name ILIKE $2 OR u.last_name ILIKE $2 OR u.job_title ILIKE $2
			       OR u.location ILIKE $2 OR u.email ILIKE $2)
			GROUP BY u.user_id
			ORDER BY u.first_name, u.last_name
			LIMIT $3`

	return repo.queryUsers(ctx, "search users", sqlQuery, exclude, "%"+escapeLike(query)+"%", limit)
}

// ListSuggestions returns users outside exclude, oldest accounts first.
func (repo *UserRepository) ListSuggestions(ctx context.Context, exclude []uuid.UUID, limit int) ([]m.User, error) {
	query := `SELECT ` + userColumns + `
			FROM users u
			LEFT JOIN friends f ON f.user_id = u.user_id
			WHERE NOT (u.user_id = ANY($1::uuid[]))
			GROUP BY u.user_id
			ORDER BY u.created_at, u.user_id
			LIMIT $2`

	return repo.queryUsers(ctx, "list suggestions", query, exclude, limit)
}

// ListPage walks all users in creation order.
func (repo *UserRepository) ListPage(ctx context.Context, offset, limit int) ([]m.User, error) {
	query := `SELECT ` + userColumns + `
			FROM users u
			LEFT JOIN friends f ON f.user_id = u.user_id
			GROUP BY u.user_id
			ORDER BY u.created_at, u.user_id
			OFFSET $1 LIMIT $2`

	return repo.queryUsers(ctx, "list users", query, offset, limit)
}

func (repo *UserRepository) queryUsers(ctx context.Context, op string, query string, args ...any) ([]m.User, error) {
	rows, err := repo.connPool.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer rows.Close()

	users := []m.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, wrap(op, err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(op, err)
	}
	return users, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
