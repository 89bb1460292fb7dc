// internal/api/auth/handlers.go
package auth

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/codr1/Courtside/internal/api/apiutil"
	"github.com/codr1/Courtside/internal/apperr"
	"github.com/codr1/Courtside/internal/identity"
	"github.com/codr1/Courtside/internal/ratelimit"
)

var (
	authenticator *identity.Authenticator
	users         identity.Directory
	limiter       *ratelimit.Limiter
	trustProxy    bool
)

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(a *identity.Authenticator, directory identity.Directory, l *ratelimit.Limiter, behindProxy bool) {
	authenticator = a
	users = directory
	limiter = l
	trustProxy = behindProxy
}

// POST /api/v1/auth/token
func HandleToken(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if authenticator == nil {
		logger.Error().Msg("Authenticator not initialized")
		apiutil.WriteError(w, r, errors.New("authenticator not initialized"))
		return
	}

	var creds identity.Credentials
	if !apiutil.DecodeBody(w, r, &creds) {
		return
	}

	ip := ratelimit.GetClientIP(r, trustProxy)
	if limiter != nil {
		if result := limiter.Check(creds.Email, ip); !result.Allowed {
			ratelimit.LogLimitExceeded(creds.Email, ip, result.Reason)
			w.Header().Set("Retry-After", strconv.Itoa(int(result.RetryAfter.Seconds())+1))
			apiutil.Respond(w, r, http.StatusTooManyRequests, apiutil.ErrorResponse{
				Error:   "rate_limited",
				Message: "too many failed sign-in attempts, try again later",
			})
			return
		}
	}

	token, err := authenticator.Authenticate(r.Context(), creds)
	if err != nil {
		if identity.IsUnauthorized(err) && limiter != nil {
			if limiter.RecordFailure(creds.Email, ip) {
				logger.Warn().
					Str("identifier", ratelimit.SanitizeIdentifier(creds.Email)).
					Str("ip", ip).
					Msg("Account locked after repeated sign-in failures")
			}
		}
		apiutil.WriteError(w, r, err)
		return
	}

	if limiter != nil {
		limiter.Reset(creds.Email)
	}
	apiutil.Respond(w, r, http.StatusOK, token)
}

// GET /api/v1/auth/me
func HandleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := apiutil.RequireUser(w, r)
	if !ok {
		return
	}
	if users == nil {
		apiutil.WriteError(w, r, errors.New("user directory not initialized"))
		return
	}

	profile, err := users.GetUser(r.Context(), user.ID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			// Token outlived the account.
			err = apperr.New(apperr.KindUnauthorized, "user no longer exists")
		}
		apiutil.WriteError(w, r, err)
		return
	}
	apiutil.Respond(w, r, http.StatusOK, profile)
}
