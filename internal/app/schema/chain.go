package schema

import (
	"encoding/json"
	"fmt"

	"github.com/classam/redis-tance/internal/domain"
)

// UpgradeFunc migrates a document valid under the previous schema
// version into one valid under the next. Upgrade funcs must be pure; the
// chain stamps the version field after each step.
type UpgradeFunc func(domain.Document) (domain.Document, error)

// Identity returns the document unchanged. It is the usual upgrade func
// for a chain's first version.
func Identity(doc domain.Document) (domain.Document, error) {
	return doc, nil
}

// Version is one link in a chain: a compiled schema definition plus the
// upgrade func from the version before it. Numbers are 1-based, assigned
// at registration, and immutable.
type Version struct {
	Number     int
	Definition []byte

	compiled Compiled
	upgrade  UpgradeFunc
}

// Chain is an ordered, append-only sequence of schema versions for one
// document type. It validates documents against the version they
// declare, serializes them canonically, and migrates older documents
// forward to the latest version. Configure a chain once at startup; it
// is not safe for concurrent mutation.
type Chain struct {
	docType       string
	compiler      Compiler
	canonicalizer Canonicalizer
	versions      []Version
}

func NewChain(docType string, compiler Compiler, canonicalizer Canonicalizer) *Chain {
	return &Chain{
		docType:       docType,
		compiler:      compiler,
		canonicalizer: canonicalizer,
	}
}

func (c *Chain) Type() string {
	return c.docType
}

// CurrentVersion is the number of the last-added version, 0 while empty.
func (c *Chain) CurrentVersion() int {
	return len(c.versions)
}

// AddVersion appends a schema version numbered one past the current
// latest. The definition is compiled eagerly so a malformed schema fails
// at registration, not on first use. upgrade may be nil for the first
// version; it defaults to Identity.
func (c *Chain) AddVersion(definition []byte, upgrade UpgradeFunc) error {
	number := len(c.versions) + 1
	compiled, err := c.compiler.Compile(definition)
	if err != nil {
		return fmt.Errorf("compile schema version %d for type %q: %w", number, c.docType, err)
	}
	if upgrade == nil {
		upgrade = Identity
	}
	c.versions = append(c.versions, Version{
		Number:     number,
		Definition: definition,
		compiled:   compiled,
		upgrade:    upgrade,
	})
	return nil
}

func (c *Chain) versionAt(number int) (Version, bool) {
	if number < 1 || number > len(c.versions) {
		return Version{}, false
	}
	return c.versions[number-1], true
}

// Validate checks the document against the schema version it declares,
// falling back to the latest when none is declared. The returned error
// wraps ErrInvalidDocument and carries the validator's diagnostics.
func (c *Chain) Validate(doc domain.Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}
	if len(c.versions) == 0 {
		return fmt.Errorf("%w: schema chain %q has no versions", ErrInvalidDocument, c.docType)
	}
	number := c.CurrentVersion()
	if declared, ok := domain.DocVersion(doc); ok {
		number = declared
	}
	version, ok := c.versionAt(number)
	if !ok {
		return fmt.Errorf("%w: type %q has no schema version %d", ErrInvalidDocument, c.docType, number)
	}
	if err := version.compiled.Validate(doc); err != nil {
		return fmt.Errorf("%w: type %q version %d: %v", ErrInvalidDocument, c.docType, version.Number, err)
	}
	return nil
}

// IsValid reports whether Validate succeeds.
func (c *Chain) IsValid(doc domain.Document) bool {
	return c.Validate(doc) == nil
}

// Upgrade migrates a document to the latest version, applying each
// intermediate upgrade func in order. Every step's output is stamped
// with its new version number and validated before the next step runs; a
// document that fails mid-chain is never returned. A document already at
// the latest version comes back unchanged.
func (c *Chain) Upgrade(doc domain.Document) (domain.Document, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: document is nil", ErrMigration)
	}
	from, ok := domain.DocVersion(doc)
	if !ok {
		return nil, fmt.Errorf("%w: type %q document declares no version", ErrMigration, c.docType)
	}
	current := c.CurrentVersion()
	if from < 1 || from > current {
		return nil, fmt.Errorf("%w: type %q version %d is outside chain range 1..%d", ErrMigration, c.docType, from, current)
	}
	for next := from + 1; next <= current; next++ {
		version, _ := c.versionAt(next)
		upgraded, err := version.upgrade(doc)
		if err != nil {
			return nil, fmt.Errorf("%w: type %q upgrade to version %d: %v", ErrMigration, c.docType, next, err)
		}
		if upgraded == nil {
			return nil, fmt.Errorf("%w: type %q upgrade to version %d returned no document", ErrMigration, c.docType, next)
		}
		upgraded[domain.FieldVersion] = next
		if err := c.Validate(upgraded); err != nil {
			return nil, fmt.Errorf("%w: type %q upgrade to version %d produced an invalid document: %v", ErrMigration, c.docType, next, err)
		}
		doc = upgraded
	}
	return doc, nil
}

// Serialize encodes a document canonically, so equal logical documents
// serialize to identical bytes regardless of field order.
func (c *Chain) Serialize(doc domain.Document) (string, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}
	canonical, err := c.canonicalizer.Canonicalize(raw)
	if err != nil {
		return "", err
	}
	return string(canonical), nil
}

// Deserialize is the inverse of Serialize. An empty input decodes to a
// nil document (absent member passthrough).
func (c *Chain) Deserialize(raw string) (domain.Document, error) {
	if raw == "" {
		return nil, nil
	}
	var doc domain.Document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return doc, nil
}

// Encode is the write path: stamp type and version metadata, validate,
// serialize. The caller's document is not mutated; a declared version is
// respected, an undeclared one defaults to the latest. A caller-supplied
// id field passes through untouched so encoding stays deterministic.
func (c *Chain) Encode(doc domain.Document) (string, error) {
	if doc == nil {
		return "", fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}
	stamped := domain.CloneDoc(doc)
	stamped[domain.FieldType] = c.docType
	if _, ok := domain.DocVersion(stamped); !ok {
		stamped[domain.FieldVersion] = c.CurrentVersion()
	}
	if err := c.Validate(stamped); err != nil {
		return "", err
	}
	return c.Serialize(stamped)
}

// Decode is the read path: deserialize, then upgrade, so callers only
// ever observe documents at the latest version regardless of when they
// were written.
func (c *Chain) Decode(raw string) (domain.Document, error) {
	doc, err := c.Deserialize(raw)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, nil
	}
	return c.Upgrade(doc)
}
