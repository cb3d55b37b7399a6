package schema

import "errors"

var ErrInvalidDocument = errors.New("document failed schema validation")
var ErrMigration = errors.New("document migration failed")
