package evaluator

import (
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const evaluationSchemaURL = "schema://evaluation.json"

// evaluationSchema describes the object a model must return. Scores may come
// back as strings, and suggestions of any type are coerced later.
var evaluationSchema = map[string]any{
	"type":     "object",
	"required": []any{"score"},
	"properties": map[string]any{
		"score":       map[string]any{"type": []any{"number", "string"}},
		"feedback":    map[string]any{"type": "string"},
		"suggestions": map[string]any{"type": []any{"array", "null"}},
	},
}

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		c := jsonschema.NewCompiler()
		if err := c.AddResource(evaluationSchemaURL, evaluationSchema); err != nil {
			compileErr = fmt.Errorf("add resource: %w", err)
			return
		}
		compiled, compileErr = c.Compile(evaluationSchemaURL)
	})
	return compiled, compileErr
}

// validateEvaluation checks a decoded model response against evaluationSchema.
func validateEvaluation(doc any) error {
	s, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compile evaluation schema: %w", err)
	}
	if err := s.Validate(doc); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}
