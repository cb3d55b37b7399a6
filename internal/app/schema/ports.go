package schema

// Compiler turns a raw JSON-schema definition into a reusable validator.
type Compiler interface {
	Compile(definition []byte) (Compiled, error)
}

// Compiled validates decoded documents against one schema definition.
// Returned errors carry the validator's diagnostic detail.
type Compiled interface {
	Validate(doc any) error
}

// Canonicalizer normalizes encoded JSON so equal logical documents are
// byte-equal, which store-level set membership depends on.
type Canonicalizer interface {
	Canonicalize(input []byte) ([]byte, error)
}
