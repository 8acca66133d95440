// Package notify delivers composed announcement posts.
package notify

import (
	"context"
	"errors"
)

var (
	ErrUnauthorized   = errors.New("posting API rejected credentials")
	ErrDeliveryFailed = errors.New("delivery failed")
)

// Notifier publishes a single post and returns the identifier assigned to
// it by the remote side.
type Notifier interface {
	Notify(ctx context.Context, text string) (string, error)
}
