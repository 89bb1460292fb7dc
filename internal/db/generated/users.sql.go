package dbgen

import (
	"context"
	"database/sql"
)

const createUser = `-- name: CreateUser :one
INSERT INTO users (email, display_name, role, home_facility_id, password_hash)
VALUES (?, ?, ?, ?, ?)
RETURNING id, email, display_name, role, home_facility_id, password_hash, created_at
`

type CreateUserParams struct {
	Email          string         `json:"email"`
	DisplayName    string         `json:"display_name"`
	Role           string         `json:"role"`
	HomeFacilityID sql.NullInt64  `json:"home_facility_id"`
	PasswordHash   sql.NullString `json:"password_hash"`
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRowContext(ctx, createUser,
		arg.Email,
		arg.DisplayName,
		arg.Role,
		arg.HomeFacilityID,
		arg.PasswordHash,
	)
	var i User
	err := row.Scan(
		&i.ID,
		&i.Email,
		&i.DisplayName,
		&i.Role,
		&i.HomeFacilityID,
		&i.PasswordHash,
		&i.CreatedAt,
	)
	return i, err
}

const getUser = `-- name: GetUser :one
SELECT id, email, display_name, role, home_facility_id, password_hash, created_at
FROM users
WHERE id = ?
`

func (q *Queries) GetUser(ctx context.Context, id int64) (User, error) {
	row := q.db.QueryRowContext(ctx, getUser, id)
	var i User
	err := row.Scan(
		&i.ID,
		&i.Email,
		&i.DisplayName,
		&i.Role,
		&i.HomeFacilityID,
		&i.PasswordHash,
		&i.CreatedAt,
	)
	return i, err
}

const getUserByEmail = `-- name: GetUserByEmail :one
SELECT id, email, display_name, role, home_facility_id, password_hash, created_at
FROM users
WHERE email = ? COLLATE NOCASE
`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := q.db.QueryRowContext(ctx, getUserByEmail, email)
	var i User
	err := row.Scan(
		&i.ID,
		&i.Email,
		&i.DisplayName,
		&i.Role,
		&i.HomeFacilityID,
		&i.PasswordHash,
		&i.CreatedAt,
	)
	return i, err
}
