// Package envelope validates stored payload documents against the JSON Schema
// of the persisted record: {"v": number|string, "data": any, "meta": {path: {dirty, touched}}}.
package envelope

import (
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const schemaURL = "formsaver://envelope.schema.json"

// Schema is the JSON Schema document for a persisted record.
const Schema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "properties": {
    "v": { "type": ["number", "string", "null"] },
    "data": true,
    "meta": {
      "type": ["object", "null"],
      "additionalProperties": {
        "type": "object",
        "properties": {
          "dirty": { "type": "boolean" },
          "touched": { "type": "boolean" }
        }
      }
    }
  }
}`

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

func schema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(Schema))
		if err != nil {
			compileErr = fmt.Errorf("envelope: parse schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(schemaURL, doc); err != nil {
			compileErr = fmt.Errorf("envelope: add schema: %w", err)
			return
		}
		compiled, compileErr = compiler.Compile(schemaURL)
	})
	return compiled, compileErr
}

// Validate parses raw and checks it against Schema. Parse errors and schema
// violations are both returned as errors.
func Validate(raw string) error {
	sch, err := schema()
	if err != nil {
		return err
	}
	instance, err := jsonschema.UnmarshalJSON(strings.NewReader(raw))
	if err != nil {
		return fmt.Errorf("envelope: parse: %w", err)
	}
	if err := sch.Validate(instance); err != nil {
		return fmt.Errorf("envelope: %w", err)
	}
	return nil
}
