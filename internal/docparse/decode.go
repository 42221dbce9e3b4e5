package docparse

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Schema names a JSON Schema document used to check decoded output.
type Schema struct {
	// Name identifies the schema in the compile cache. Kebab-case.
	Name string

	// Definition is the JSON Schema as a map.
	Definition map[string]any
}

// SchemaError reports that an object was found but did not conform.
type SchemaError struct {
	Schema string
	Err    error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("response does not match schema %q: %v", e.Schema, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// Decode extracts the first balanced object from raw, validates it against
// schema (when non-nil) and unmarshals it into dst.
func Decode(raw string, schema *Schema, dst any) error {
	obj, err := Extract(raw)
	if err != nil {
		return err
	}

	if schema != nil {
		var parsed any
		if err := json.Unmarshal([]byte(obj), &parsed); err != nil {
			return fmt.Errorf("invalid JSON: %w", err)
		}
		compiled, err := compiledSchema(schema)
		if err != nil {
			return fmt.Errorf("compile schema %q: %w", schema.Name, err)
		}
		if err := compiled.Validate(parsed); err != nil {
			return &SchemaError{Schema: schema.Name, Err: err}
		}
	}

	if err := json.Unmarshal([]byte(obj), dst); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

// schemaCache caches compiled schemas by name.
var schemaCache sync.Map // map[string]*jsonschema.Schema

func compiledSchema(schema *Schema) (*jsonschema.Schema, error) {
	if cached, ok := schemaCache.Load(schema.Name); ok {
		return cached.(*jsonschema.Schema), nil
	}

	// The compiler wants a decoded JSON value, not a Go map with typed slices.
	defBytes, err := json.Marshal(schema.Definition)
	if err != nil {
		return nil, fmt.Errorf("marshal schema definition: %w", err)
	}
	var def any
	if err := json.Unmarshal(defBytes, &def); err != nil {
		return nil, fmt.Errorf("parse schema definition: %w", err)
	}

	c := jsonschema.NewCompiler()
	url := fmt.Sprintf("schema://%s.json", schema.Name)
	if err := c.AddResource(url, def); err != nil {
		return nil, fmt.Errorf("add resource: %w", err)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}

	schemaCache.Store(schema.Name, compiled)
	return compiled, nil
}
