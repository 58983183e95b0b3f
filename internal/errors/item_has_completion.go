package errors

import "net/http"

var ErrItemHasCompletion = &Exception{
	Kind:       "item_has_completion",
	Message:    "checklist item already has a completion",
	StatusCode: http.StatusConflict,
}
