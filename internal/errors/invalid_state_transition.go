package errors

import "net/http"

var ErrInvalidStateTransition = &Exception{
	Kind:       "invalid_state_transition",
	Message:    "invalid state transition",
	StatusCode: http.StatusConflict,
}
