package canonicaljson

import (
	"fmt"

	"github.com/go-json-experiment/json/jsontext"
)

// Canonicalizer normalizes JSON (RFC 8785 style: sorted keys, canonical
// number forms) so equal logical documents serialize to identical bytes.
// Set membership in the backing store compares members byte for byte,
// which makes this normalization load-bearing, not cosmetic.
type Canonicalizer struct{}

func (Canonicalizer) Canonicalize(input []byte) ([]byte, error) {
	value := jsontext.Value(append([]byte(nil), input...))
	if err := value.Canonicalize(); err != nil {
		return nil, fmt.Errorf("canonicalize json: %w", err)
	}
	return []byte(value), nil
}
