package errors

import "net/http"

var ErrDuplicateBid = &Exception{
	Kind:       "duplicate_bid",
	Message:    "bidder already has a bid on this task",
	StatusCode: http.StatusConflict,
}
