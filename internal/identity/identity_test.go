package identity

import (
	"context"
	"testing"
	"time"

	"github.com/codr1/Courtside/internal/apperr"
	"github.com/codr1/Courtside/internal/testutil"
)

func TestAuthenticateIssuesRoleTaggedToken(t *testing.T) {
	database := testutil.NewTestDB(t)
	venue := testutil.SeedVenue(t, database, "UTC", "06:00", "22:00")
	store := NewStore(database.Queries)
	ctx := context.Background()

	owner, err := store.CreateUser(ctx, "owner@example.com", "Olive Owner", RoleOwner, venue.Facility.ID, "s3cret-pass")
	if err != nil {
		t.Fatalf("create owner: %v", err)
	}

	clk := testutil.NewClock(time.Date(2030, time.March, 4, 9, 0, 0, 0, time.UTC))
	auth := NewAuthenticator(store, "test-secret", time.Hour, clk)

	token, err := auth.Authenticate(ctx, Credentials{Role: RoleOwner, Email: "OWNER@example.com", Password: "s3cret-pass"})
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if token.Role != RoleOwner || token.UserID != owner.ID {
		t.Fatalf("token: got role=%s user=%d", token.Role, token.UserID)
	}

	claims, err := auth.ParseToken(token.Token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	userID, err := claims.UserID()
	if err != nil {
		t.Fatalf("claims user id: %v", err)
	}
	if userID != owner.ID || claims.Role != RoleOwner || claims.HomeFacilityID != venue.Facility.ID {
		t.Fatalf("claims: got user=%d role=%s facility=%d", userID, claims.Role, claims.HomeFacilityID)
	}

	clk.Advance(2 * time.Hour)
	if _, err := auth.ParseToken(token.Token); !IsUnauthorized(err) {
		t.Fatalf("expected expired token to be unauthorized, got %v", err)
	}
}

func TestAuthenticateRejections(t *testing.T) {
	database := testutil.NewTestDB(t)
	store := NewStore(database.Queries)
	ctx := context.Background()

	if _, err := store.CreateUser(ctx, "player@example.com", "Pat Player", RoleCustomer, 0, "correct-horse"); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := store.CreateUser(ctx, "nopass@example.com", "No Pass", RoleCustomer, 0, ""); err != nil {
		t.Fatalf("create user: %v", err)
	}
	auth := NewAuthenticator(store, "test-secret", time.Hour, nil)

	cases := []struct {
		name  string
		creds Credentials
		kind  apperr.Kind
	}{
		{"wrong password", Credentials{Role: RoleCustomer, Email: "player@example.com", Password: "nope"}, apperr.KindUnauthorized},
		{"wrong role", Credentials{Role: RoleAdmin, Email: "player@example.com", Password: "correct-horse"}, apperr.KindUnauthorized},
		{"unknown user", Credentials{Role: RoleCustomer, Email: "ghost@example.com", Password: "x"}, apperr.KindUnauthorized},
		{"no password set", Credentials{Role: RoleCustomer, Email: "nopass@example.com", Password: "x"}, apperr.KindUnauthorized},
		{"unknown role", Credentials{Role: "coach", Email: "player@example.com", Password: "correct-horse"}, apperr.KindInvalidInput},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := auth.Authenticate(ctx, tc.creds)
			if !apperr.IsKind(err, tc.kind) {
				t.Fatalf("expected %s, got %v", tc.kind, err)
			}
		})
	}
}

func TestParseTokenRejectsForeignSignature(t *testing.T) {
	database := testutil.NewTestDB(t)
	store := NewStore(database.Queries)
	ctx := context.Background()

	if _, err := store.CreateUser(ctx, "admin@example.com", "Ada Admin", RoleAdmin, 0, "pw"); err != nil {
		t.Fatalf("create user: %v", err)
	}
	issuer := NewAuthenticator(store, "secret-a", time.Hour, nil)
	verifier := NewAuthenticator(store, "secret-b", time.Hour, nil)

	token, err := issuer.Authenticate(ctx, Credentials{Role: RoleAdmin, Email: "admin@example.com", Password: "pw"})
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if _, err := verifier.ParseToken(token.Token); !IsUnauthorized(err) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestCanOperateFacility(t *testing.T) {
	cases := []struct {
		name string
		user User
		want bool
	}{
		{"admin anywhere", User{Role: RoleAdmin}, true},
		{"owner of facility", User{Role: RoleOwner, HomeFacilityID: 7}, true},
		{"owner elsewhere", User{Role: RoleOwner, HomeFacilityID: 8}, false},
		{"owner without facility", User{Role: RoleOwner}, false},
		{"customer", User{Role: RoleCustomer, HomeFacilityID: 7}, false},
	}
	for _, tc := range cases {
		if got := tc.user.CanOperateFacility(7); got != tc.want {
			t.Fatalf("%s: got %v want %v", tc.name, got, tc.want)
		}
	}
}
