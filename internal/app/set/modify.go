package set

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// ModifyResult carries the snapshot Modify worked from and the member
// set it converged the store to.
type ModifyResult[T any] struct {
	Original []T
	Changed  []T
}

// Modify snapshots the members, hands them to fn, and converges the
// store to fn's result with the minimal set of add and remove calls,
// issued concurrently. Additions go out as one batch; each removal is
// its own call. The TTL is refreshed once after convergence.
//
// The snapshot and the converging writes are not wrapped in a store
// transaction. A concurrent writer can slip between them and have its
// update lost or duplicated; this is an accepted race, and callers who
// need stronger guarantees must serialize access themselves.
func (c *Collection[T]) Modify(ctx context.Context, fn func(members []T) []T) (ModifyResult[T], error) {
	raws, err := c.store.SMembers(ctx, c.id)
	if err != nil {
		return ModifyResult[T]{}, err
	}
	original, err := c.decodeAll(raws)
	if err != nil {
		return ModifyResult[T]{}, err
	}

	working := make([]T, len(original))
	copy(working, original)
	changed := fn(working)

	before := make(map[string]struct{}, len(raws))
	for _, raw := range raws {
		before[raw] = struct{}{}
	}
	after := make(map[string]struct{}, len(changed))
	var toAdd []string
	for _, member := range changed {
		raw, err := c.schema.Encode(member)
		if err != nil {
			return ModifyResult[T]{}, err
		}
		after[raw] = struct{}{}
		if _, ok := before[raw]; !ok {
			toAdd = append(toAdd, raw)
		}
	}
	var toRem []string
	for _, raw := range raws {
		if _, ok := after[raw]; !ok {
			toRem = append(toRem, raw)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	if len(toAdd) > 0 {
		g.Go(func() error {
			_, err := c.store.SAdd(gctx, c.id, toAdd...)
			return err
		})
	}
	for _, raw := range toRem {
		g.Go(func() error {
			_, err := c.store.SRem(gctx, c.id, raw)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return ModifyResult[T]{}, err
	}
	c.refreshTTL(ctx)

	return ModifyResult[T]{Original: original, Changed: changed}, nil
}
