// Package apperr defines the stable failure kinds returned by the booking and
// match engines. Callers branch on Kind, never on Message.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindInvalidInterval      Kind = "invalid_interval"
	KindSlotUnavailable      Kind = "slot_unavailable"
	KindInvalidTransition    Kind = "invalid_transition"
	KindNotOwner             Kind = "not_owner"
	KindRosterFull           Kind = "roster_full"
	KindAlreadyInMatch       Kind = "already_in_match"
	KindInvalidTeam          Kind = "invalid_team"
	KindCreatorCannotLeave   Kind = "creator_cannot_leave"
	KindOutsideCheckInWindow Kind = "outside_check_in_window"
	KindDuplicateRating      Kind = "duplicate_rating"
	KindInvalidParticipant   Kind = "invalid_participant"
	KindMatchNotCompleted    Kind = "match_not_completed"
	KindNotFound             Kind = "not_found"
	KindInvalidInput         Kind = "invalid_input"
	KindUnauthorized         Kind = "unauthorized"
)

// Sentinels for errors.Is. Matching compares kinds only.
var (
	ErrInvalidInterval      = &Error{Kind: KindInvalidInterval, Message: "invalid interval"}
	ErrSlotUnavailable      = &Error{Kind: KindSlotUnavailable, Message: "slot unavailable"}
	ErrInvalidTransition    = &Error{Kind: KindInvalidTransition, Message: "invalid transition"}
	ErrNotOwner             = &Error{Kind: KindNotOwner, Message: "not owner"}
	ErrRosterFull           = &Error{Kind: KindRosterFull, Message: "roster full"}
	ErrAlreadyInMatch       = &Error{Kind: KindAlreadyInMatch, Message: "already in match"}
	ErrInvalidTeam          = &Error{Kind: KindInvalidTeam, Message: "invalid team"}
	ErrCreatorCannotLeave   = &Error{Kind: KindCreatorCannotLeave, Message: "creator cannot leave"}
	ErrOutsideCheckInWindow = &Error{Kind: KindOutsideCheckInWindow, Message: "outside check-in window"}
	ErrDuplicateRating      = &Error{Kind: KindDuplicateRating, Message: "duplicate rating"}
	ErrInvalidParticipant   = &Error{Kind: KindInvalidParticipant, Message: "invalid participant"}
	ErrMatchNotCompleted    = &Error{Kind: KindMatchNotCompleted, Message: "match not completed"}
	ErrNotFound             = &Error{Kind: KindNotFound, Message: "not found"}
	ErrInvalidInput         = &Error{Kind: KindInvalidInput, Message: "invalid input"}
	ErrUnauthorized         = &Error{Kind: KindUnauthorized, Message: "unauthorized"}
)

// Error is a business-rule failure with a stable kind and a human-readable message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap keeps err as the cause while reporting kind.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// Transition reports an illegal state change, naming both states.
func Transition(entity string, id int64, from, to string) *Error {
	return New(KindInvalidTransition, "%s %d: cannot transition from %s to %s", entity, id, from, to)
}

func NotFound(entity string, id int64) *Error {
	return New(KindNotFound, "%s %d not found", entity, id)
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind, true
	}
	return "", false
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
