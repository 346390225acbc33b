package schema

import (
	"fmt"

	"github.com/kaptinlin/jsonschema"
)

// Document is a compiled JSON Schema.
type Document struct {
	schema *jsonschema.Schema
}

func Compile(raw []byte) (*Document, error) {
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true
	compiled, err := compiler.Compile(raw)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Document{schema: compiled}, nil
}

func MustCompile(raw []byte) *Document {
	doc, err := Compile(raw)
	if err != nil {
		panic(err)
	}
	return doc
}

func (d *Document) ValidateJSON(data []byte) error {
	result := d.schema.ValidateJSON(data)
	if result.IsValid() {
		return nil
	}
	return fmt.Errorf("schema validation failed: %v", result.Errors)
}
