package jsonschema

import (
	"bytes"
	"fmt"

	jsonschemav5 "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/classam/redis-tance/internal/app/schema"
)

// Compiler compiles JSON-schema definitions for the schema chain.
type Compiler struct{}

func (Compiler) Compile(definition []byte) (schema.Compiled, error) {
	compiler := jsonschemav5.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(definition)); err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}
	compiled, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return validator{schema: compiled}, nil
}

type validator struct {
	schema *jsonschemav5.Schema
}

// Validate reports constraint violations with the library's detailed
// diagnostics, so failures name the offending field and rule.
func (v validator) Validate(doc any) error {
	return v.schema.Validate(doc)
}
