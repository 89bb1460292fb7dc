package apiutil

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/codr1/Courtside/internal/apperr"
)

func ParsePositiveInt64Field(raw string, field string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("%s is required", field)
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value <= 0 {
		return 0, fmt.Errorf("%s must be greater than 0", field)
	}
	return value, nil
}

// PathID parses a positive id path value, writing a 400 when it is malformed.
func PathID(w http.ResponseWriter, r *http.Request, key string) (int64, bool) {
	id, err := ParsePositiveInt64Field(r.PathValue(key), key)
	if err != nil {
		WriteError(w, r, apperr.Wrap(apperr.KindInvalidInput, err, "%v", err))
		return 0, false
	}
	return id, true
}

// RequiredQuery returns a trimmed query value, writing a 400 when it is empty.
func RequiredQuery(w http.ResponseWriter, r *http.Request, key string) (string, bool) {
	value := strings.TrimSpace(r.URL.Query().Get(key))
	if value == "" {
		WriteError(w, r, apperr.New(apperr.KindInvalidInput, "%s is required", key))
		return "", false
	}
	return value, true
}
