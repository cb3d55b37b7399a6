package domain

import "encoding/json"

// Document is a schemaless JSON object as handled by the schema layer.
// Version-aware schemas inject the metadata fields below on the write
// path; callers own every other field.
type Document = map[string]any

const (
	FieldID      = "id"
	FieldType    = "type"
	FieldVersion = "version"
)

// CloneDoc returns a shallow copy of doc. The schema layer stamps
// metadata onto copies so caller-held documents are never mutated.
func CloneDoc(doc Document) Document {
	if doc == nil {
		return nil
	}
	out := make(Document, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}

// DocVersion reads the document's declared schema version. ok is false
// when the field is absent or not numeric. Decoded JSON carries numbers
// as float64, while caller-built documents usually carry int; both count.
func DocVersion(doc Document) (int, bool) {
	raw, present := doc[FieldVersion]
	if !present {
		return 0, false
	}
	switch v := raw.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return int(n), true
	default:
		return 0, false
	}
}
