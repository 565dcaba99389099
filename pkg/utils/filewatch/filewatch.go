package filewatch

import (
	"context"
	"fmt"

	"github.com/fsnotify/fsnotify"
)

// UntilModifyContext returns a context canceled when one of the target files
// is modified (written, created, removed, or renamed).
//
// The returned cancel function stops watching. When watching cannot be
// started, (nil, nil, error) is returned.
func UntilModifyContext(ctx context.Context, targetFilePath ...string) (context.Context, func(), error) {
	cctx, cancel := context.WithCancelCause(ctx)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		cancel(err)
		return nil, nil, err
	}
	for _, f := range targetFilePath {
		if err := w.Add(f); err != nil {
			w.Close()
			cancel(err)
			return nil, nil, err
		}
	}

	go func() {
		defer w.Close()
		select {
		case <-cctx.Done():
		case event, ok := <-w.Events:
			if ok {
				cancel(fmt.Errorf("%s is updated (%s)", event.Name, event.Op))
			}
		case err, ok := <-w.Errors:
			if ok {
				cancel(err)
			}
		}
	}()

	return cctx, func() { cancel(nil) }, nil
}
