package set

import (
	"context"
	"time"
)

// Schema encodes members for storage and decodes stored members back at
// the latest schema version. Versioned document chains and the trivial
// plain-string schema both satisfy it; which one a collection carries is
// fixed at construction.
type Schema[T any] interface {
	Type() string
	Encode(member T) (string, error)
	Decode(raw string) (T, error)
}

// IDGenerator supplies the unique suffix for generated collection keys.
type IDGenerator interface {
	NewID() (string, error)
}

// SetCommands is the capability surface the backing key-value store must
// provide. Every call is a remote request; transport and server errors
// propagate unchanged, and no retry logic is layered on top.
type SetCommands interface {
	SAdd(ctx context.Context, key string, members ...string) (int64, error)
	SMembers(ctx context.Context, key string) ([]string, error)
	SRandMember(ctx context.Context, key string, count int) ([]string, error)
	SRem(ctx context.Context, key, member string) (int64, error)
	SIsMember(ctx context.Context, key, member string) (bool, error)
	SCard(ctx context.Context, key string) (int64, error)
	SUnion(ctx context.Context, keys ...string) ([]string, error)
	SUnionStore(ctx context.Context, dest string, keys ...string) (int64, error)
	SInter(ctx context.Context, keys ...string) ([]string, error)
	SInterStore(ctx context.Context, dest string, keys ...string) (int64, error)
	SDiff(ctx context.Context, keys ...string) ([]string, error)
	SDiffStore(ctx context.Context, dest string, keys ...string) (int64, error)
	Del(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)
}
