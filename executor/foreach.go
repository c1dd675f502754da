package executor

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// ForEach calls fn concurrently for every item and waits for all of them.
// A failing item does not cancel the others; every error is returned,
// joined and labelled with the item's name.
func ForEach[T any](ctx context.Context, items []T, name func(T) string, fn func(context.Context, T) error) error {
	errs := make([]error, len(items))

	var g errgroup.Group
	for i, it := range items {
		g.Go(func() error {
			if err := fn(ctx, it); err != nil {
				errs[i] = fmt.Errorf("%s: %w", name(it), err)
			}
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(errs...)
}
