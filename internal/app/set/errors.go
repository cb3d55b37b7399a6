package set

import "errors"

var ErrStoreRequired = errors.New("backing store client is required")
var ErrSchemaRequired = errors.New("schema is required")
var ErrIDGeneratorRequired = errors.New("id generator is required")
var ErrNoMembers = errors.New("at least one member is required")
var ErrDestinationRequired = errors.New("destination key is required")
var ErrCrossSlot = errors.New("cross-slot set operation")
var ErrOnionUnsupported = errors.New("onion is not a supported set operation")
