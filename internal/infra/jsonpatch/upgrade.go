package jsonpatch

import (
	"encoding/json"
	"fmt"

	jsonpatchv5 "github.com/evanphx/json-patch/v5"

	"github.com/classam/redis-tance/internal/app/schema"
	"github.com/classam/redis-tance/internal/domain"
)

// Upgrade builds a schema upgrade func from a declarative RFC 6902 JSON
// patch, so simple migrations (add a field with a default, rename, drop)
// can live as data next to the schema definition instead of as code. The
// patch is decoded eagerly; a malformed patch fails at registration.
func Upgrade(patch []byte) (schema.UpgradeFunc, error) {
	decoded, err := jsonpatchv5.DecodePatch(patch)
	if err != nil {
		return nil, fmt.Errorf("decode upgrade patch: %w", err)
	}
	return func(doc domain.Document) (domain.Document, error) {
		encoded, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("encode document for patch: %w", err)
		}
		patched, err := decoded.Apply(encoded)
		if err != nil {
			return nil, fmt.Errorf("apply upgrade patch: %w", err)
		}
		var out domain.Document
		if err := json.Unmarshal(patched, &out); err != nil {
			return nil, fmt.Errorf("decode patched document: %w", err)
		}
		return out, nil
	}, nil
}
