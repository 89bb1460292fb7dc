// Package identity resolves users and issues role-tagged access tokens.
package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/codr1/Courtside/internal/apperr"
	dbgen "github.com/codr1/Courtside/internal/db/generated"
)

type Role string

const (
	RoleCustomer Role = "customer"
	RoleOwner    Role = "owner"
	RoleAdmin    Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleOwner, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID          int64  `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Role        Role   `json:"role"`
	// HomeFacilityID is zero when the user is not attached to a facility.
	HomeFacilityID int64 `json:"home_facility_id,omitempty"`
}

// CanOperateFacility reports whether the user may act on behalf of a facility.
func (u User) CanOperateFacility(facilityID int64) bool {
	switch u.Role {
	case RoleAdmin:
		return true
	case RoleOwner:
		return u.HomeFacilityID != 0 && u.HomeFacilityID == facilityID
	}
	return false
}

type Directory interface {
	GetUser(ctx context.Context, id int64) (User, error)
}

type Store struct {
	q *dbgen.Queries
}

func NewStore(q *dbgen.Queries) *Store {
	return &Store{q: q}
}

func (s *Store) GetUser(ctx context.Context, id int64) (User, error) {
	row, err := s.q.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, apperr.NotFound("user", id)
		}
		return User{}, fmt.Errorf("get user %d: %w", id, err)
	}
	return userFromRow(row), nil
}

func (s *Store) userByEmail(ctx context.Context, email string) (dbgen.User, bool, error) {
	row, err := s.q.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return dbgen.User{}, false, nil
		}
		return dbgen.User{}, false, fmt.Errorf("get user by email: %w", err)
	}
	return row, true, nil
}

// CreateUser registers a user with an optional password.
func (s *Store) CreateUser(ctx context.Context, email, displayName string, role Role, homeFacilityID int64, password string) (User, error) {
	if !role.Valid() {
		return User{}, apperr.New(apperr.KindInvalidInput, "unknown role %q", role)
	}

	params := dbgen.CreateUserParams{
		Email:       email,
		DisplayName: displayName,
		Role:        string(role),
	}
	if homeFacilityID != 0 {
		params.HomeFacilityID = sql.NullInt64{Int64: homeFacilityID, Valid: true}
	}
	if password != "" {
		hash, err := HashPassword(password)
		if err != nil {
			return User{}, fmt.Errorf("hash password: %w", err)
		}
		params.PasswordHash = sql.NullString{String: hash, Valid: true}
	}

	row, err := s.q.CreateUser(ctx, params)
	if err != nil {
		return User{}, fmt.Errorf("create user: %w", err)
	}
	return userFromRow(row), nil
}

func userFromRow(row dbgen.User) User {
	user := User{
		ID:          row.ID,
		Email:       row.Email,
		DisplayName: row.DisplayName,
		Role:        Role(row.Role),
	}
	if row.HomeFacilityID.Valid {
		user.HomeFacilityID = row.HomeFacilityID.Int64
	}
	return user
}
