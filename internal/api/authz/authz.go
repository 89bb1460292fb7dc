package authz

import (
	"context"
	"errors"

	"github.com/codr1/Courtside/internal/identity"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
)

type AuthUser struct {
	ID             int64
	Role           identity.Role
	HomeFacilityID *int64
}

type userContextKey struct{}

// FromClaims builds the request user from a verified token.
func FromClaims(claims *identity.Claims) (*AuthUser, error) {
	id, err := claims.UserID()
	if err != nil {
		return nil, err
	}
	user := &AuthUser{ID: id, Role: claims.Role}
	if claims.HomeFacilityID != 0 {
		home := claims.HomeFacilityID
		user.HomeFacilityID = &home
	}
	return user, nil
}

func ContextWithUser(ctx context.Context, user *AuthUser) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// UserFromContext retrieves the AuthUser stored in ctx.
// It returns nil if ctx is nil, if no user is stored, or if the stored value has a different type.
func UserFromContext(ctx context.Context) *AuthUser {
	if ctx == nil {
		return nil
	}

	user, ok := ctx.Value(userContextKey{}).(*AuthUser)
	if !ok {
		return nil
	}

	return user
}

func IsAdmin(user *AuthUser) bool {
	return user != nil && user.Role == identity.RoleAdmin
}

// RequireUser returns the signed-in user or ErrUnauthenticated.
func RequireUser(ctx context.Context) (*AuthUser, error) {
	user := UserFromContext(ctx)
	if user == nil {
		return nil, ErrUnauthenticated
	}
	return user, nil
}

// RequireRole allows the request when the user holds one of roles.
func RequireRole(ctx context.Context, roles ...identity.Role) error {
	user, err := RequireUser(ctx)
	if err != nil {
		return err
	}
	for _, role := range roles {
		if user.Role == role {
			return nil
		}
	}
	return ErrForbidden
}

// RequireFacilityAccess lets admins through everywhere and owners through at
// their home facility only. Customers never operate a facility.
func RequireFacilityAccess(ctx context.Context, requestedFacilityID int64) error {
	user, err := RequireUser(ctx)
	if err != nil {
		return err
	}

	switch user.Role {
	case identity.RoleAdmin:
		return nil
	case identity.RoleOwner:
		if user.HomeFacilityID != nil && *user.HomeFacilityID == requestedFacilityID {
			return nil
		}
	}
	return ErrForbidden
}
