package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrUnavailable is returned when a remote backend does not answer.
var ErrUnavailable = errors.New("cache backend unavailable")

// Remote backends get connectAttempts pings, connectDelay apart at first and
// doubling after each failure.
var (
	connectAttempts = 3
	connectDelay    = time.Second
)

// waitReady pings a freshly connected backend until it answers.
func waitReady(ctx context.Context, ping func(context.Context) error) error {
	delay := connectDelay
	var err error
	for i := 0; i < connectAttempts; i++ {
		if err = ping(ctx); err == nil {
			return nil
		}
		if i == connectAttempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
			delay *= 2
		}
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
