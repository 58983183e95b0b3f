package errors

import "net/http"

var ErrStorage = &Exception{
	Kind:       "storage",
	Message:    "storage failure",
	StatusCode: http.StatusInternalServerError,
}
