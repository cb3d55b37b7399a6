package tance

import (
	"log/slog"
	"time"

	"github.com/classam/redis-tance/internal/app/schema"
	"github.com/classam/redis-tance/internal/app/set"
	"github.com/classam/redis-tance/internal/domain"
	"github.com/classam/redis-tance/internal/infra/canonicaljson"
	"github.com/classam/redis-tance/internal/infra/ident"
	"github.com/classam/redis-tance/internal/infra/jsonpatch"
	"github.com/classam/redis-tance/internal/infra/jsonschema"
	"github.com/classam/redis-tance/internal/infra/memstore"
	"github.com/classam/redis-tance/internal/infra/sqlitestore"
)

// Document is a schemaless JSON object. Version-aware chains inject the
// id, type, and version metadata fields on the write path.
type Document = domain.Document

// Chain is an ordered sequence of schema versions for one document type.
type Chain = schema.Chain

// UpgradeFunc migrates a document from one schema version to the next.
type UpgradeFunc = schema.UpgradeFunc

// Collection is a schema-bound, namespaced set of validated members.
type Collection[T any] = set.Collection[T]

// ModifyResult carries a Modify call's snapshot and converged members.
type ModifyResult[T any] = set.ModifyResult[T]

// Operand names one participant of a union, intersection, or difference.
type Operand = set.Operand

// CollectionOption adjusts a collection at construction time.
type CollectionOption = set.Option

// Key treats an existing store key as a set-operation operand.
func Key(key string) Operand { return set.Key(key) }

// WithKey pins a collection to an existing store key.
func WithKey(key string) CollectionOption { return set.WithID(key) }

// WithNamespace partitions a collection away from same-typed collections.
func WithNamespace(namespace string) CollectionOption { return set.WithNamespace(namespace) }

// WithExpiry sets a TTL refreshed on every mutating operation.
func WithExpiry(ttl time.Duration) CollectionOption { return set.WithExpiry(ttl) }

// WithLogger overrides the process-default logger.
func WithLogger(logger *slog.Logger) CollectionOption { return set.WithLogger(logger) }

// UpgradeWithPatch builds an UpgradeFunc from a declarative RFC 6902
// JSON patch.
func UpgradeWithPatch(patch []byte) (UpgradeFunc, error) { return jsonpatch.Upgrade(patch) }

// Config selects the backing store.
type Config struct {
	// StorePath is the sqlite file backing the store.
	StorePath string
	// InMemory swaps the sqlite store for a process-local one; handy in
	// tests and throwaway tooling.
	InMemory bool
}

// Client owns the store connection and wires collections and chains to
// it.
type Client struct {
	store  set.SetCommands
	ids    set.IDGenerator
	closer func() error
}

func Open(cfg Config) (*Client, error) {
	ids := ident.NewULIDGenerator()
	if cfg.InMemory {
		return &Client{store: memstore.New(), ids: ids, closer: func() error { return nil }}, nil
	}
	store, err := sqlitestore.Open(cfg.StorePath)
	if err != nil {
		return nil, err
	}
	return &Client{store: store, ids: ids, closer: store.Close}, nil
}

func (c *Client) Close() error {
	return c.closer()
}

// NewChain starts an empty schema chain for docType. Add versions before
// binding it to a collection.
func (c *Client) NewChain(docType string) *Chain {
	return schema.NewChain(docType, jsonschema.Compiler{}, canonicaljson.Canonicalizer{})
}

// NewCollection binds a schema chain to a fresh or pinned store key.
func (c *Client) NewCollection(chain *Chain, opts ...CollectionOption) (*Collection[Document], error) {
	return set.New[Document](c.store, chain, c.ids, opts...)
}

// NewStringSet builds a collection of unstructured string members under
// the given type name.
func (c *Client) NewStringSet(name string, opts ...CollectionOption) (*Collection[string], error) {
	return set.New[string](c.store, schema.NewPlain(name), c.ids, opts...)
}
