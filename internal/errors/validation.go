package errors

import "net/http"

var ErrValidation = &Exception{
	Kind:       "validation",
	Message:    "invalid input",
	StatusCode: http.StatusBadRequest,
}
