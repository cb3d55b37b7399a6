package set

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/classam/redis-tance/internal/domain"
)

// Collection is a named, schema-bound, optionally expiring set of
// validated members stored under one composite key. The handle is
// cheap: construction performs no I/O, and the key's existence in the
// store is independent of the handle's lifetime.
type Collection[T any] struct {
	id        string
	schema    Schema[T]
	store     SetCommands
	ids       IDGenerator
	namespace string
	expiry    time.Duration
	logger    *slog.Logger
}

type settings struct {
	id        string
	namespace string
	expiry    time.Duration
	logger    *slog.Logger
}

// Option adjusts a collection at construction time.
type Option func(*settings)

// WithID pins the collection to an existing store key instead of
// generating a fresh one.
func WithID(id string) Option {
	return func(s *settings) { s.id = id }
}

// WithNamespace partitions the collection. Collections in different
// namespaces are never combinable, even when their types match.
func WithNamespace(namespace string) Option {
	return func(s *settings) { s.namespace = namespace }
}

// WithExpiry sets a TTL on the backing key, refreshed by every mutating
// operation.
func WithExpiry(ttl time.Duration) Option {
	return func(s *settings) { s.expiry = ttl }
}

// WithLogger overrides the process-default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) { s.logger = logger }
}

func New[T any](store SetCommands, schema Schema[T], ids IDGenerator, opts ...Option) (*Collection[T], error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if schema == nil {
		return nil, ErrSchemaRequired
	}
	if ids == nil {
		return nil, ErrIDGeneratorRequired
	}
	s := settings{namespace: domain.DefaultNamespace, logger: slog.Default()}
	for _, opt := range opts {
		opt(&s)
	}
	if s.namespace == "" {
		s.namespace = domain.DefaultNamespace
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	c := &Collection[T]{
		id:        s.id,
		schema:    schema,
		store:     store,
		ids:       ids,
		namespace: s.namespace,
		expiry:    s.expiry,
		logger:    s.logger,
	}
	if c.id == "" {
		id, err := c.newKey()
		if err != nil {
			return nil, err
		}
		c.id = id
	}
	return c, nil
}

func (c *Collection[T]) ID() string {
	return c.id
}

func (c *Collection[T]) Namespace() string {
	return c.namespace
}

func (c *Collection[T]) SchemaType() string {
	return c.schema.Type()
}

func (c *Collection[T]) Expiry() time.Duration {
	return c.expiry
}

func (c *Collection[T]) newKey() (string, error) {
	suffix, err := c.ids.NewID()
	if err != nil {
		return "", fmt.Errorf("generate collection key: %w", err)
	}
	return domain.SetKey(c.schema.Type(), c.namespace, suffix), nil
}

// Add validates and inserts one member.
func (c *Collection[T]) Add(ctx context.Context, member T) error {
	raw, err := c.schema.Encode(member)
	if err != nil {
		return err
	}
	if _, err := c.store.SAdd(ctx, c.id, raw); err != nil {
		return err
	}
	c.refreshTTL(ctx)
	return nil
}

// AddAll validates every member, then inserts them in one batch call.
// Validation failures surface before anything is written.
func (c *Collection[T]) AddAll(ctx context.Context, members []T) error {
	if len(members) == 0 {
		return ErrNoMembers
	}
	raws := make([]string, 0, len(members))
	for _, member := range members {
		raw, err := c.schema.Encode(member)
		if err != nil {
			return err
		}
		raws = append(raws, raw)
	}
	if _, err := c.store.SAdd(ctx, c.id, raws...); err != nil {
		return err
	}
	c.refreshTTL(ctx)
	return nil
}

// Members returns every member at the latest schema version. Order is
// unspecified.
func (c *Collection[T]) Members(ctx context.Context) ([]T, error) {
	raws, err := c.store.SMembers(ctx, c.id)
	if err != nil {
		return nil, err
	}
	return c.decodeAll(raws)
}

// RandMember returns up to count randomly sampled members.
func (c *Collection[T]) RandMember(ctx context.Context, count int) ([]T, error) {
	raws, err := c.store.SRandMember(ctx, c.id, count)
	if err != nil {
		return nil, err
	}
	return c.decodeAll(raws)
}

// Rem removes one member. Removing a non-member is a no-op at the store
// level.
func (c *Collection[T]) Rem(ctx context.Context, member T) error {
	raw, err := c.schema.Encode(member)
	if err != nil {
		return err
	}
	if _, err := c.store.SRem(ctx, c.id, raw); err != nil {
		return err
	}
	c.refreshTTL(ctx)
	return nil
}

// Contains reports whether the member is in the collection.
func (c *Collection[T]) Contains(ctx context.Context, member T) (bool, error) {
	raw, err := c.schema.Encode(member)
	if err != nil {
		return false, err
	}
	return c.store.SIsMember(ctx, c.id, raw)
}

// Count returns the collection's cardinality.
func (c *Collection[T]) Count(ctx context.Context) (int64, error) {
	return c.store.SCard(ctx, c.id)
}

// Delete removes the backing key entirely. The handle carries no
// validity guarantee afterwards.
func (c *Collection[T]) Delete(ctx context.Context) error {
	_, err := c.store.Del(ctx, c.id)
	return err
}

// Clear is Delete under another name: removing the key empties the set.
func (c *Collection[T]) Clear(ctx context.Context) error {
	return c.Delete(ctx)
}

func (c *Collection[T]) decodeAll(raws []string) ([]T, error) {
	out := make([]T, 0, len(raws))
	for _, raw := range raws {
		if raw == "" {
			continue
		}
		member, err := c.schema.Decode(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, member)
	}
	return out, nil
}

// refreshTTL re-arms the key's expiry after a mutating operation. A
// refresh failure never rolls back the primary write; it is logged and
// swallowed.
func (c *Collection[T]) refreshTTL(ctx context.Context) {
	if c.expiry <= 0 {
		return
	}
	if _, err := c.store.Expire(ctx, c.id, c.expiry); err != nil {
		c.logger.WarnContext(ctx, "ttl refresh failed", "key", c.id, "error", err)
	}
}
