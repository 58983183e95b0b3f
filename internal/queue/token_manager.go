package queue

import (
	"context"
	"errors"
)

// TokenManager bounds the number of notifications waiting for delivery.
// A token is acquired before a notification is queued and released once a
// worker has finished with it.
type TokenManager interface {
	AcquireToken(ctx context.Context) error

	ReleaseToken(ctx context.Context) error

	InitializeTokens(ctx context.Context, count int) error
}

var ErrNoTokenAvailable = errors.New("no queue token available")
