package tance

import (
	"github.com/classam/redis-tance/internal/app/schema"
	"github.com/classam/redis-tance/internal/app/set"
)

// Sentinel errors surfaced by the collection and schema layers. Match
// with errors.Is; wrapped messages carry the diagnostic detail.
var (
	ErrInvalidDocument  = schema.ErrInvalidDocument
	ErrMigration        = schema.ErrMigration
	ErrCrossSlot        = set.ErrCrossSlot
	ErrOnionUnsupported = set.ErrOnionUnsupported
	ErrNoMembers        = set.ErrNoMembers
	ErrStoreRequired    = set.ErrStoreRequired
)
