package app

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

const defaultMaxConcurrency = 8

// fanOut runs fn for every item with at most limit in flight. Each call owns its result
// slot, and a panic in one item is recorded as that item's failure under identify(item).
func fanOut[T any](ctx context.Context, limit int, items []T, identify func(T) ItemResult, fn func(context.Context, T) ItemResult) []ItemResult {
	if limit <= 0 {
		limit = defaultMaxConcurrency
	}

	results := make([]ItemResult, len(items))
	var g errgroup.Group
	g.SetLimit(limit)

	for i := range items {
		i := i
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					results[i] = identify(items[i])
					results[i].Err = fmt.Errorf("panic while processing item: %v", r)
				}
			}()
			results[i] = fn(ctx, items[i])
			return nil
		})
	}

	_ = g.Wait()
	return results
}
