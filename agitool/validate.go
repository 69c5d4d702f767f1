package agitool

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// GenerateSchema builds a JSON Schema document for a Go value, used by
// built-in tools to derive InputSchema() without hand-writing it.
func GenerateSchema(v any) map[string]any {
	reflector := &jsonschema.Reflector{DoNotReference: true}
	schema := reflector.Reflect(v)
	raw, _ := json.Marshal(schema)
	var out map[string]any
	_ = json.Unmarshal(raw, &out)
	return out
}

// ValidateArguments checks LLM-supplied args against a tool's
// InputSchema before dispatch, so a malformed call never reaches
// Execute.
func ValidateArguments(schemaDoc map[string]any, args map[string]any) error {
	if len(schemaDoc) == 0 {
		return nil
	}
	raw, err := json.Marshal(schemaDoc)
	if err != nil {
		return fmt.Errorf("agitool: marshal schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(raw)); err != nil {
		return fmt.Errorf("agitool: add schema resource: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("agitool: compile schema: %w", err)
	}

	argRaw, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("agitool: marshal arguments: %w", err)
	}
	var decoded any
	if err := json.Unmarshal(argRaw, &decoded); err != nil {
		return fmt.Errorf("agitool: decode arguments: %w", err)
	}

	if err := schema.Validate(decoded); err != nil {
		return &ValidationError{Err: err}
	}
	return nil
}

// ValidationError wraps a schema validation failure reported in tool
// dispatch.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return fmt.Sprintf("agitool: validation failed: %v", e.Err) }
func (e *ValidationError) Unwrap() error { return e.Err }
