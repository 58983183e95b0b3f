package errors

import "net/http"

var ErrPhotoRequired = &Exception{
	Kind:       "photo_required",
	Message:    "a photo is required to complete this item",
	StatusCode: http.StatusUnprocessableEntity,
}
