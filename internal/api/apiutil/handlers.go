package apiutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/codr1/Courtside/internal/api/authz"
	"github.com/codr1/Courtside/internal/apperr"
	"github.com/codr1/Courtside/internal/identity"
)

type FieldError struct {
	Field  string
	Reason string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func DecodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return fmt.Errorf("missing request body")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return err
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

// DecodeBody decodes r into dst and writes a 400 on failure.
func DecodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := DecodeJSON(r, dst); err != nil {
		WriteError(w, r, apperr.Wrap(apperr.KindInvalidInput, err, "invalid request body: %v", err))
		return false
	}
	return true
}

func WriteJSON(w http.ResponseWriter, status int, payload any) error {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	if err := encoder.Encode(payload); err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err := w.Write(buf.Bytes())
	return err
}

// Respond writes payload and logs a failed write.
func Respond(w http.ResponseWriter, r *http.Request, status int, payload any) {
	if err := WriteJSON(w, status, payload); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to write response")
	}
}

// StatusForKind maps an error kind to its HTTP status.
func StatusForKind(kind apperr.Kind) int {
	switch kind {
	case apperr.KindInvalidInterval, apperr.KindInvalidInput, apperr.KindInvalidTeam:
		return http.StatusBadRequest
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	case apperr.KindNotOwner:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindInvalidParticipant:
		return http.StatusUnprocessableEntity
	case apperr.KindSlotUnavailable,
		apperr.KindInvalidTransition,
		apperr.KindRosterFull,
		apperr.KindAlreadyInMatch,
		apperr.KindCreatorCannotLeave,
		apperr.KindDuplicateRating,
		apperr.KindMatchNotCompleted,
		apperr.KindOutsideCheckInWindow:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// WriteError renders err as an ErrorResponse. Business errors keep their
// message; anything unclassified is logged and reported as internal.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	logger := log.Ctx(r.Context())

	var (
		status int
		body   ErrorResponse
	)
	switch {
	case errors.Is(err, authz.ErrUnauthenticated):
		status = http.StatusUnauthorized
		body = ErrorResponse{Error: string(apperr.KindUnauthorized), Message: "authentication required"}
	case errors.Is(err, authz.ErrForbidden):
		status = http.StatusForbidden
		body = ErrorResponse{Error: "forbidden", Message: "access denied"}
	default:
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			status = StatusForKind(appErr.Kind)
			body = ErrorResponse{Error: string(appErr.Kind), Message: appErr.Error()}
		} else {
			logger.Error().Err(err).Msg("Request failed")
			status = http.StatusInternalServerError
			body = ErrorResponse{Error: "internal", Message: "internal server error"}
		}
	}

	if err := WriteJSON(w, status, body); err != nil {
		logger.Error().Err(err).Msg("Failed to write error response")
	}
}

// RequireUser returns the signed-in user, writing a 401 when there is none.
func RequireUser(w http.ResponseWriter, r *http.Request) (*authz.AuthUser, bool) {
	user, err := authz.RequireUser(r.Context())
	if err != nil {
		log.Ctx(r.Context()).Debug().Str("path", r.URL.Path).Msg("Request rejected: unauthenticated")
		WriteError(w, r, err)
		return nil, false
	}
	return user, true
}

func RequireRole(w http.ResponseWriter, r *http.Request, roles ...identity.Role) bool {
	if err := authz.RequireRole(r.Context(), roles...); err != nil {
		logEvent := log.Ctx(r.Context()).Warn()
		if user := authz.UserFromContext(r.Context()); user != nil {
			logEvent = logEvent.Int64("user_id", user.ID)
		}
		logEvent.Err(err).Msg("Role check failed")
		WriteError(w, r, err)
		return false
	}
	return true
}

func RequireFacilityAccess(w http.ResponseWriter, r *http.Request, facilityID int64) bool {
	logger := log.Ctx(r.Context())
	user := authz.UserFromContext(r.Context())
	if err := authz.RequireFacilityAccess(r.Context(), facilityID); err != nil {
		logEvent := logger.Warn().Int64("facility_id", facilityID)
		if user != nil {
			logEvent = logEvent.Int64("user_id", user.ID)
		}
		switch {
		case errors.Is(err, authz.ErrUnauthenticated):
			logEvent.Msg("Facility access denied: unauthenticated")
		case errors.Is(err, authz.ErrForbidden):
			logEvent.Msg("Facility access denied: forbidden")
		default:
			logEvent.Err(err).Msg("Facility access denied: error")
		}
		WriteError(w, r, err)
		return false
	}
	return true
}
