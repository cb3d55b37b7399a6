package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/classam/redis-tance/internal/domain"
)

type fakeCompiler struct {
	compileErr error
}

func (f fakeCompiler) Compile(definition []byte) (Compiled, error) {
	if f.compileErr != nil {
		return nil, f.compileErr
	}
	var parsed struct {
		Required []string `json:"required"`
	}
	if err := json.Unmarshal(definition, &parsed); err != nil {
		return nil, err
	}
	return requiredFields(parsed.Required), nil
}

type requiredFields []string

func (r requiredFields) Validate(doc any) error {
	fields, ok := doc.(map[string]any)
	if !ok {
		return fmt.Errorf("expected object, got %T", doc)
	}
	var missing []string
	for _, field := range r {
		if _, ok := fields[field]; !ok {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))
	}
	return nil
}

type identityCanonicalizer struct{}

func (identityCanonicalizer) Canonicalize(input []byte) ([]byte, error) {
	return input, nil
}

func employeeDefinition(required ...string) []byte {
	definition := map[string]any{
		"type":     "object",
		"required": required,
	}
	encoded, _ := json.Marshal(definition)
	return encoded
}

// employeeChain builds the canonical three-version test chain: v1 wants
// a name, v2 adds a salary with a default, v3 adds a computed fullname.
func employeeChain(t *testing.T) *Chain {
	t.Helper()
	chain := NewChain("employee", fakeCompiler{}, identityCanonicalizer{})
	if err := chain.AddVersion(employeeDefinition("firstname", "lastname"), nil); err != nil {
		t.Fatalf("add v1: %v", err)
	}
	err := chain.AddVersion(employeeDefinition("firstname", "lastname", "salary"), func(doc domain.Document) (domain.Document, error) {
		out := domain.CloneDoc(doc)
		out["salary"] = 30000
		return out, nil
	})
	if err != nil {
		t.Fatalf("add v2: %v", err)
	}
	err = chain.AddVersion(employeeDefinition("firstname", "lastname", "salary", "fullname"), func(doc domain.Document) (domain.Document, error) {
		out := domain.CloneDoc(doc)
		out["fullname"] = fmt.Sprintf("%v %v", doc["firstname"], doc["lastname"])
		return out, nil
	})
	if err != nil {
		t.Fatalf("add v3: %v", err)
	}
	return chain
}

func TestAddVersionAssignsSequentialNumbers(t *testing.T) {
	chain := employeeChain(t)
	if chain.CurrentVersion() != 3 {
		t.Fatalf("expected current version 3, got %d", chain.CurrentVersion())
	}
}

func TestAddVersionCompileFailure(t *testing.T) {
	compileErr := errors.New("bad schema")
	chain := NewChain("employee", fakeCompiler{compileErr: compileErr}, identityCanonicalizer{})
	if err := chain.AddVersion([]byte(`{}`), nil); !errors.Is(err, compileErr) {
		t.Fatalf("expected compile error, got %v", err)
	}
	if chain.CurrentVersion() != 0 {
		t.Fatalf("failed version must not be appended, current is %d", chain.CurrentVersion())
	}
}

func TestValidateSelectsDeclaredVersion(t *testing.T) {
	chain := employeeChain(t)
	v1Doc := domain.Document{"version": 1, "firstname": "Charles", "lastname": "Huckbreimer"}
	if err := chain.Validate(v1Doc); err != nil {
		t.Fatalf("v1 document must validate against v1: %v", err)
	}
}

func TestValidateDefaultsToLatest(t *testing.T) {
	chain := employeeChain(t)
	doc := domain.Document{"firstname": "Charles", "lastname": "Huckbreimer"}
	err := chain.Validate(doc)
	if !errors.Is(err, ErrInvalidDocument) {
		t.Fatalf("expected ErrInvalidDocument against latest version, got %v", err)
	}
	if !strings.Contains(err.Error(), "salary") {
		t.Fatalf("error must name the failed constraint, got %q", err)
	}
}

func TestValidateUnknownVersion(t *testing.T) {
	chain := employeeChain(t)
	doc := domain.Document{"version": 7, "firstname": "Charles", "lastname": "Huckbreimer"}
	if err := chain.Validate(doc); !errors.Is(err, ErrInvalidDocument) {
		t.Fatalf("expected ErrInvalidDocument for unknown version, got %v", err)
	}
}

func TestValidateNilDocument(t *testing.T) {
	chain := employeeChain(t)
	if err := chain.Validate(nil); !errors.Is(err, ErrInvalidDocument) {
		t.Fatalf("expected ErrInvalidDocument for nil document, got %v", err)
	}
}

func TestIsValidFalseWhenRequiredFieldMissingAtEveryVersion(t *testing.T) {
	chain := employeeChain(t)
	for version := 1; version <= chain.CurrentVersion(); version++ {
		doc := domain.Document{"version": version, "lastname": "Huckbreimer"}
		if chain.IsValid(doc) {
			t.Fatalf("document missing firstname must be invalid at version %d", version)
		}
	}
}

func TestUpgradeWalksTheWholeChain(t *testing.T) {
	chain := employeeChain(t)
	doc := domain.Document{"version": 1, "firstname": "Charles", "lastname": "Huckbreimer"}
	upgraded, err := chain.Upgrade(doc)
	if err != nil {
		t.Fatalf("upgrade: %v", err)
	}
	if version, _ := domain.DocVersion(upgraded); version != 3 {
		t.Fatalf("expected version 3, got %d", version)
	}
	if upgraded["salary"] != 30000 {
		t.Fatalf("expected salary 30000, got %v", upgraded["salary"])
	}
	if upgraded["fullname"] != "Charles Huckbreimer" {
		t.Fatalf("expected computed fullname, got %v", upgraded["fullname"])
	}
	if upgraded["firstname"] != "Charles" || upgraded["lastname"] != "Huckbreimer" {
		t.Fatalf("original fields must survive, got %v", upgraded)
	}
}

func TestUpgradeIdempotentAtCurrentVersion(t *testing.T) {
	chain := employeeChain(t)
	doc := domain.Document{"version": 1, "firstname": "Charles", "lastname": "Huckbreimer"}
	once, err := chain.Upgrade(doc)
	if err != nil {
		t.Fatalf("first upgrade: %v", err)
	}
	twice, err := chain.Upgrade(once)
	if err != nil {
		t.Fatalf("second upgrade: %v", err)
	}
	first, _ := chain.Serialize(once)
	second, _ := chain.Serialize(twice)
	if first != second {
		t.Fatalf("upgrade at current version must be a no-op: %q vs %q", first, second)
	}
}

func TestUpgradeRejectsBadVersions(t *testing.T) {
	chain := employeeChain(t)
	tests := []struct {
		name string
		doc  domain.Document
	}{
		{name: "missing", doc: domain.Document{"firstname": "Charles", "lastname": "Huckbreimer"}},
		{name: "zero", doc: domain.Document{"version": 0, "firstname": "Charles", "lastname": "Huckbreimer"}},
		{name: "negative", doc: domain.Document{"version": -2, "firstname": "Charles", "lastname": "Huckbreimer"}},
		{name: "above current", doc: domain.Document{"version": 4, "firstname": "Charles", "lastname": "Huckbreimer"}},
	}
	for _, tt := range tests {
		if _, err := chain.Upgrade(tt.doc); !errors.Is(err, ErrMigration) {
			t.Fatalf("%s: expected ErrMigration, got %v", tt.name, err)
		}
	}
}

func TestUpgradeRejectsInvalidIntermediateOutput(t *testing.T) {
	chain := NewChain("employee", fakeCompiler{}, identityCanonicalizer{})
	if err := chain.AddVersion(employeeDefinition("firstname"), nil); err != nil {
		t.Fatalf("add v1: %v", err)
	}
	err := chain.AddVersion(employeeDefinition("firstname", "salary"), func(doc domain.Document) (domain.Document, error) {
		// Broken on purpose: drops the field v2 requires.
		out := domain.CloneDoc(doc)
		delete(out, "firstname")
		return out, nil
	})
	if err != nil {
		t.Fatalf("add v2: %v", err)
	}

	doc := domain.Document{"version": 1, "firstname": "Charles"}
	if _, err := chain.Upgrade(doc); !errors.Is(err, ErrMigration) {
		t.Fatalf("expected ErrMigration for invalid upgrade output, got %v", err)
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	chain := employeeChain(t)
	doc := domain.Document{"version": 1, "firstname": "Charles", "lastname": "Huckbreimer"}
	first, err := chain.Serialize(doc)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	decoded, err := chain.Deserialize(first)
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	second, err := chain.Serialize(decoded)
	if err != nil {
		t.Fatalf("re-serialize: %v", err)
	}
	if first != second {
		t.Fatalf("round trip must be stable: %q vs %q", first, second)
	}
	if version, _ := domain.DocVersion(decoded); version != 1 {
		t.Fatalf("round trip must keep the version, got %d", version)
	}
}

func TestEncodeStampsMetadata(t *testing.T) {
	chain := employeeChain(t)
	doc := domain.Document{
		"firstname": "Charles",
		"lastname":  "Huckbreimer",
		"salary":    30000,
		"fullname":  "Charles Huckbreimer",
	}
	raw, err := chain.Encode(doc)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	stored, err := chain.Deserialize(raw)
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	if stored["type"] != "employee" {
		t.Fatalf("expected stamped type, got %v", stored["type"])
	}
	if version, _ := domain.DocVersion(stored); version != 3 {
		t.Fatalf("expected stamped latest version, got %d", version)
	}
	if _, ok := doc["type"]; ok {
		t.Fatal("encode must not mutate the caller's document")
	}
}

func TestEncodeRejectsInvalidDocument(t *testing.T) {
	chain := employeeChain(t)
	_, err := chain.Encode(domain.Document{"firstname": "Charles"})
	if !errors.Is(err, ErrInvalidDocument) {
		t.Fatalf("expected ErrInvalidDocument, got %v", err)
	}
}

func TestEncodeRejectsNilDocument(t *testing.T) {
	chain := employeeChain(t)
	if _, err := chain.Encode(nil); !errors.Is(err, ErrInvalidDocument) {
		t.Fatalf("expected ErrInvalidDocument, got %v", err)
	}
}

func TestDecodeUpgradesToLatest(t *testing.T) {
	chain := employeeChain(t)
	v1Doc := domain.Document{"version": 1, "firstname": "Charles", "lastname": "Huckbreimer"}
	raw, err := chain.Serialize(v1Doc)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	decoded, err := chain.Decode(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if version, _ := domain.DocVersion(decoded); version != chain.CurrentVersion() {
		t.Fatalf("decode must upgrade to latest, got version %d", version)
	}
	if decoded["fullname"] != "Charles Huckbreimer" {
		t.Fatalf("expected upgraded fields, got %v", decoded)
	}
}

func TestDecodeEmptyPassthrough(t *testing.T) {
	chain := employeeChain(t)
	decoded, err := chain.Decode("")
	if err != nil {
		t.Fatalf("decode empty: %v", err)
	}
	if decoded != nil {
		t.Fatalf("expected nil document for empty input, got %v", decoded)
	}
}

func TestPlainPassthrough(t *testing.T) {
	plain := NewPlain("string")
	if plain.Type() != "string" {
		t.Fatalf("expected type string, got %q", plain.Type())
	}
	raw, err := plain.Encode("banana")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	member, err := plain.Decode(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if member != "banana" {
		t.Fatalf("expected banana, got %q", member)
	}
}
