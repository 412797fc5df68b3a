// Package signal provides build interruption handling.
// SIGINT and SIGTERM interrupt the running build step; blocking waits observe
// the interruption through the context returned by WithSignalCancel.
package signal

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// ErrInterrupted is the cancellation cause set when the build receives SIGINT or SIGTERM.
var ErrInterrupted = errors.New("build interrupted")

var (
	// mu protects the blocked state
	mu sync.Mutex
	// blockCount tracks nested blocking calls
	blockCount int
	// pending holds cancellations to run when signals are unblocked
	pending []context.CancelCauseFunc
)

// WithSignalCancel returns a context that is cancelled with ErrInterrupted when
// SIGINT or SIGTERM is received.
func WithSignalCancel(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancelCause(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case <-sigChan:
			mu.Lock()
			if blockCount > 0 {
				pending = append(pending, cancel)
				mu.Unlock()
				return
			}
			mu.Unlock()
			cancel(ErrInterrupted)
		case <-ctx.Done():
		}
	}()

	return ctx, func() { cancel(context.Canceled) }
}

// BlockSignals defers interruption during critical sections such as database
// migrations or archive cleanup. Calls can be nested.
func BlockSignals() {
	mu.Lock()
	defer mu.Unlock()
	blockCount++
}

// UnblockSignals re-enables interruption.
// If a signal was received while blocked, the pending cancellation is executed.
func UnblockSignals() {
	mu.Lock()
	defer mu.Unlock()
	if blockCount > 0 {
		blockCount--
	}
	if blockCount == 0 {
		for _, cancel := range pending {
			cancel(ErrInterrupted)
		}
		pending = nil
	}
}

// Sleep waits for d or until ctx is done, whichever comes first.
// It returns the context's cancellation cause when interrupted.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return context.Cause(ctx)
	}
}

// IsInterrupted reports whether err is the result of a build interruption.
func IsInterrupted(err error) bool {
	return errors.Is(err, ErrInterrupted)
}
