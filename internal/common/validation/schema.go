package validation

import (
	"errors"
	"fmt"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

var ErrUnknownSchema = errors.New("unknown payload schema")

// Payload schema names, one per backend endpoint shape.
const (
	SchemaSearch    = "search"
	SchemaListing   = "listing"
	SchemaCompare   = "compare"
	SchemaProviders = "providers"
)

var productItem = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"id":   map[string]interface{}{"type": []string{"string", "number"}},
		"name": map[string]interface{}{"type": []string{"string", "null"}},
	},
}

var offerItem = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"store": map[string]interface{}{"type": []string{"object", "string", "null"}},
		"price": map[string]interface{}{"type": []string{"number", "string", "object", "null"}},
	},
}

// schemaDefinitions describe the outer envelope only. Field-level
// coercion happens in the normalizers, which drop bad records instead of
// rejecting the whole payload.
var schemaDefinitions = map[string]map[string]interface{}{
	SchemaSearch: {
		"type":  "array",
		"items": productItem,
	},
	SchemaListing: {
		"anyOf": []interface{}{
			map[string]interface{}{"type": "array", "items": productItem},
			map[string]interface{}{
				"type":     "object",
				"required": []string{"products"},
				"properties": map[string]interface{}{
					"products": map[string]interface{}{"type": []string{"array", "null"}, "items": productItem},
					"hasMore":  map[string]interface{}{"type": []string{"boolean", "null"}},
				},
			},
		},
	},
	SchemaCompare: {
		"type":     "object",
		"required": []string{"prices"},
		"properties": map[string]interface{}{
			"product": map[string]interface{}{"type": []string{"object", "null"}},
			"prices":  map[string]interface{}{"type": []string{"array", "null"}, "items": offerItem},
			"metadata": map[string]interface{}{
				"type": []string{"object", "null"},
			},
		},
	},
	SchemaProviders: {
		"anyOf": []interface{}{
			map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "object"}},
			map[string]interface{}{
				"type":     "object",
				"required": []string{"providers"},
				"properties": map[string]interface{}{
					"providers": map[string]interface{}{"type": []string{"array", "null"}},
				},
			},
		},
	},
}

// Validator holds compiled envelope schemas. It is safe for concurrent use.
type Validator struct {
	mu       sync.Mutex
	compiled map[string]*gojsonschema.Schema
}

func NewValidator() *Validator {
	return &Validator{compiled: make(map[string]*gojsonschema.Schema)}
}

func (v *Validator) schema(name string) (*gojsonschema.Schema, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if s, ok := v.compiled[name]; ok {
		return s, nil
	}
	def, ok := schemaDefinitions[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSchema, name)
	}
	s, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(def))
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", name, err)
	}
	v.compiled[name] = s
	return s, nil
}

// Validate checks a raw JSON body against the named envelope schema and
// returns the list of problems. An empty list means the body is valid.
func (v *Validator) Validate(name string, body []byte) ([]string, error) {
	s, err := v.schema(name)
	if err != nil {
		return nil, err
	}

	result, err := s.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}
	if result.Valid() {
		return nil, nil
	}

	problems := make([]string, len(result.Errors()))
	for i, desc := range result.Errors() {
		problems[i] = desc.String()
	}
	return problems, nil
}
