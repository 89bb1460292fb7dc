package identity

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/codr1/Courtside/internal/apperr"
	"github.com/codr1/Courtside/internal/clock"
)

// Credentials carry the role the caller is signing in as.
type Credentials struct {
	Role     Role   `json:"role"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RoleToken struct {
	Token     string    `json:"token"`
	Role      Role      `json:"role"`
	UserID    int64     `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Claims struct {
	Role           Role  `json:"role"`
	HomeFacilityID int64 `json:"home_facility_id,omitempty"`
	jwt.RegisteredClaims
}

// UserID returns the subject as a user id.
func (c *Claims) UserID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.New(apperr.KindUnauthorized, "invalid token subject")
	}
	return id, nil
}

type Authenticator struct {
	store  *Store
	secret []byte
	ttl    time.Duration
	clock  clock.Clock
}

func NewAuthenticator(store *Store, secret string, ttl time.Duration, clk clock.Clock) *Authenticator {
	return &Authenticator{
		store:  store,
		secret: []byte(secret),
		ttl:    ttl,
		clock:  clock.OrReal(clk),
	}
}

// Authenticate checks the credentials for the requested role and returns a
// signed token tagged with that role. Unknown users, role mismatches and bad
// passwords all report the same Unauthorized error.
func (a *Authenticator) Authenticate(ctx context.Context, creds Credentials) (RoleToken, error) {
	logger := log.Ctx(ctx).With().
		Str("component", "identity").
		Str("role", string(creds.Role)).
		Logger()

	denied := apperr.New(apperr.KindUnauthorized, "invalid credentials")

	if !creds.Role.Valid() {
		return RoleToken{}, apperr.New(apperr.KindInvalidInput, "unknown role %q", creds.Role)
	}
	email := strings.TrimSpace(creds.Email)
	if email == "" || creds.Password == "" {
		return RoleToken{}, denied
	}

	row, found, err := a.store.userByEmail(ctx, email)
	if err != nil {
		return RoleToken{}, err
	}
	if !found || !row.PasswordHash.Valid {
		logger.Debug().Msg("Authentication rejected: unknown user or no password")
		return RoleToken{}, denied
	}
	if Role(row.Role) != creds.Role {
		logger.Debug().Int64("user_id", row.ID).Msg("Authentication rejected: role mismatch")
		return RoleToken{}, denied
	}
	if !VerifyPassword(row.PasswordHash.String, creds.Password) {
		logger.Debug().Int64("user_id", row.ID).Msg("Authentication rejected: bad password")
		return RoleToken{}, denied
	}

	user := userFromRow(row)
	now := a.clock.Now()
	expiresAt := now.Add(a.ttl)
	claims := Claims{
		Role:           user.Role,
		HomeFacilityID: user.HomeFacilityID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return RoleToken{}, fmt.Errorf("sign token: %w", err)
	}

	logger.Info().Int64("user_id", user.ID).Msg("User authenticated")
	return RoleToken{Token: signed, Role: user.Role, UserID: user.ID, ExpiresAt: expiresAt}, nil
}

// ParseToken validates signature and expiry and returns the tagged claims.
func (a *Authenticator) ParseToken(token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithTimeFunc(a.clock.Now))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnauthorized, err, "invalid token")
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, apperr.New(apperr.KindUnauthorized, "invalid token")
	}
	if !claims.Role.Valid() {
		return nil, apperr.New(apperr.KindUnauthorized, "invalid token role")
	}
	return claims, nil
}

// HashPassword wraps bcrypt.GenerateFromPassword for local auth storage.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword wraps bcrypt.CompareHashAndPassword for local auth checks.
func VerifyPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// IsUnauthorized reports whether err is an authentication failure.
func IsUnauthorized(err error) bool {
	return errors.Is(err, apperr.ErrUnauthorized)
}
