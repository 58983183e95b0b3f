package errors

import "net/http"

var ErrAuthorization = &Exception{
	Kind:       "authorization",
	Message:    "actor is not allowed to perform this operation",
	StatusCode: http.StatusForbidden,
}
