package build

import (
	"context"
	"fmt"
)

// Channel runs work on the build agent that owns the workspace. The tool and
// its automation endpoint live on that agent, so every COM call goes through it.
type Channel interface {
	Call(ctx context.Context, fn func(ctx context.Context) error) error
}

// Call runs fn on ch and returns its typed result.
func Call[T any](ctx context.Context, ch Channel, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := ch.Call(ctx, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

// LocalChannel runs callables in the current process.
type LocalChannel struct{}

// Call runs fn inline, converting a panic into an error the way a remote
// channel reports a failed callable.
func (LocalChannel) Call(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if err := ctx.Err(); err != nil {
		return context.Cause(ctx)
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("remote call failed: %v", r)
		}
	}()
	return fn(ctx)
}
