// Package loop runs a task repeatedly, with a per-round interval the task
// itself decides. The process simulator and the store autosave run on it.
package loop

import (
	"context"
	"fmt"
	"time"
)

type Next struct {
	// if not nil, breaks with error
	err error

	// if quit == true and err == nil, breaks without error
	quit bool

	// otherwise, continue loop after interval.
	interval time.Duration
}

func (n Next) String() string {
	if n.err != nil {
		return fmt.Sprintf("[break] with error: %v", n.err)
	}
	if n.quit {
		return "[break] without error"
	}
	return fmt.Sprintf("[continue] interval: %s", n.interval)
}

// continue loop, sleeping interval before the next round.
func Continue(interval time.Duration) Next {
	return Next{interval: interval}
}

// break loop. Pass nil to break without error.
func Break(err error) Next {
	return Next{quit: true, err: err}
}

// Task is one round of a loop: given the value of the previous round, it
// returns the next value and whether (and when) to go on.
//
// The zero Next equals Continue(0): "go next ASAP".
type Task[T any] func(context.Context, T) (T, Next)

// Start runs task in a loop until it Breaks or ctx is done.
//
// The first round is task(ctx, init); every later round receives the value
// the previous round returned. The last value is returned together with the
// Break error (nil for Break(nil)) or ctx.Err().
func Start[T any](ctx context.Context, init T, task Task[T]) (T, error) {
	select {
	case <-ctx.Done():
		return init, ctx.Err()
	default:
	}

	value := init
	for {
		v, n := task(ctx, value)
		if n.err != nil {
			return v, n.err
		}
		if n.quit {
			return v, nil
		}
		value = v

		timer := time.NewTimer(n.interval)
		select {
		case <-ctx.Done():
			// shutting down has priority over the pending round.
			if !timer.Stop() {
				<-timer.C // drain. see: time.Timer.Stop's document
			}
			return value, ctx.Err()
		case <-timer.C:
		}
	}
}
