package errors

import "net/http"

var ErrNotFound = &Exception{
	Kind:       "not_found",
	Message:    "resource not found",
	StatusCode: http.StatusNotFound,
}
