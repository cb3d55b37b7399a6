package set

import (
	"context"
	"fmt"
	"strings"
)

// Operand identifies one participant in a multi-key set operation:
// either a raw store key, or another collection handle whose namespace
// and schema type can be checked before the store is touched.
type Operand struct {
	key        string
	namespace  string
	schemaType string
	raw        bool
}

// Key treats an existing store key as an operand. Raw keys carry no
// namespace or type metadata, so they bypass the cross-slot guard; the
// caller vouches for their placement.
func Key(key string) Operand {
	return Operand{key: key, raw: true}
}

// Operand exposes the collection as a set-operation participant.
func (c *Collection[T]) Operand() Operand {
	return Operand{key: c.id, namespace: c.namespace, schemaType: c.schema.Type()}
}

// operandKeys validates cross-slot safety and returns the full key list,
// this collection's key first. The backing store refuses multi-key
// operations spanning routing groups; failing here, before any store
// call is issued, reproduces that constraint with a diagnosable error.
func (c *Collection[T]) operandKeys(ops []Operand) ([]string, error) {
	keys := make([]string, 0, len(ops)+1)
	keys = append(keys, c.id)
	for _, op := range ops {
		if !op.raw && (op.namespace != c.namespace || op.schemaType != c.schema.Type()) {
			return nil, fmt.Errorf("%w: operand %q has type %q in namespace %q, this collection has type %q in namespace %q",
				ErrCrossSlot, op.key, op.schemaType, op.namespace, c.schema.Type(), c.namespace)
		}
		keys = append(keys, op.key)
	}
	return keys, nil
}

func (c *Collection[T]) combine(ctx context.Context, fn func(context.Context, ...string) ([]string, error), ops []Operand) ([]T, error) {
	keys, err := c.operandKeys(ops)
	if err != nil {
		return nil, err
	}
	raws, err := fn(ctx, keys...)
	if err != nil {
		return nil, err
	}
	return c.decodeAll(raws)
}

func (c *Collection[T]) combineStore(ctx context.Context, fn func(context.Context, string, ...string) (int64, error), dest string, ops []Operand) (*Collection[T], error) {
	if strings.TrimSpace(dest) == "" {
		return nil, ErrDestinationRequired
	}
	keys, err := c.operandKeys(ops)
	if err != nil {
		return nil, err
	}
	if _, err := fn(ctx, dest, keys...); err != nil {
		return nil, err
	}
	out := &Collection[T]{
		id:        dest,
		schema:    c.schema,
		store:     c.store,
		ids:       c.ids,
		namespace: c.namespace,
		expiry:    c.expiry,
		logger:    c.logger,
	}
	out.refreshTTL(ctx)
	return out, nil
}

// Union returns the materialized union of this collection and the
// operands, every member decoded at the latest schema version.
func (c *Collection[T]) Union(ctx context.Context, ops ...Operand) ([]T, error) {
	return c.combine(ctx, c.store.SUnion, ops)
}

// UnionStore computes the union and persists it under a freshly
// generated key sharing this collection's schema, namespace, and expiry.
func (c *Collection[T]) UnionStore(ctx context.Context, ops ...Operand) (*Collection[T], error) {
	dest, err := c.newKey()
	if err != nil {
		return nil, err
	}
	return c.combineStore(ctx, c.store.SUnionStore, dest, ops)
}

// UnionStoreAt is UnionStore with a caller-supplied destination key.
func (c *Collection[T]) UnionStoreAt(ctx context.Context, dest string, ops ...Operand) (*Collection[T], error) {
	return c.combineStore(ctx, c.store.SUnionStore, dest, ops)
}

// Inter returns the materialized intersection.
func (c *Collection[T]) Inter(ctx context.Context, ops ...Operand) ([]T, error) {
	return c.combine(ctx, c.store.SInter, ops)
}

// InterStore computes the intersection and persists it under a freshly
// generated key.
func (c *Collection[T]) InterStore(ctx context.Context, ops ...Operand) (*Collection[T], error) {
	dest, err := c.newKey()
	if err != nil {
		return nil, err
	}
	return c.combineStore(ctx, c.store.SInterStore, dest, ops)
}

// InterStoreAt is InterStore with a caller-supplied destination key.
func (c *Collection[T]) InterStoreAt(ctx context.Context, dest string, ops ...Operand) (*Collection[T], error) {
	return c.combineStore(ctx, c.store.SInterStore, dest, ops)
}

// Diff returns the materialized difference: members of this collection
// present in none of the operands.
func (c *Collection[T]) Diff(ctx context.Context, ops ...Operand) ([]T, error) {
	return c.combine(ctx, c.store.SDiff, ops)
}

// DiffStore computes the difference and persists it under a freshly
// generated key.
func (c *Collection[T]) DiffStore(ctx context.Context, ops ...Operand) (*Collection[T], error) {
	dest, err := c.newKey()
	if err != nil {
		return nil, err
	}
	return c.combineStore(ctx, c.store.SDiffStore, dest, ops)
}

// DiffStoreAt is DiffStore with a caller-supplied destination key.
func (c *Collection[T]) DiffStoreAt(ctx context.Context, dest string, ops ...Operand) (*Collection[T], error) {
	return c.combineStore(ctx, c.store.SDiffStore, dest, ops)
}

// Onion is deliberately unsupported.
func (c *Collection[T]) Onion(...Operand) error {
	return ErrOnionUnsupported
}
