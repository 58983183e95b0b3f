package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Exception is an expected, user-facing failure. Two exceptions match under
// errors.Is when they share a Kind, so a sentinel can be refined with a
// specific message and still be recognised by callers.
type Exception struct {
	Kind       string
	Message    string
	StatusCode int
}

func (e *Exception) Error() string {
	return e.Message
}

func (e *Exception) Is(target error) bool {
	t, ok := target.(*Exception)
	return ok && t.Kind == e.Kind
}

// With returns a copy of e carrying a more specific message.
func (e *Exception) With(format string, args ...any) *Exception {
	return &Exception{
		Kind:       e.Kind,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: e.StatusCode,
	}
}

func StatusCode(err error) int {
	var appErr *Exception
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}

// Message returns the user-facing text for err. Unexpected errors are not
// leaked to callers.
func Message(err error) string {
	var appErr *Exception
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return ErrStorage.Message
}
