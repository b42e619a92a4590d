package trajectory

import (
	"encoding/json"
	"fmt"
	"strings"

	_ "embed"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema/trajectory-v1.json
var trajectorySchemaJSON string

type Validator struct {
	schema *jsonschema.Schema
}

func NewValidator() (*Validator, error) {
	compiler := jsonschema.NewCompiler()

	if err := compiler.AddResource("trajectory-v1.json",
		strings.NewReader(trajectorySchemaJSON)); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}

	schema, err := compiler.Compile("trajectory-v1.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}

	return &Validator{schema: schema}, nil
}

// Validate checks raw JSON against the trajectory schema.
func (v *Validator) Validate(data []byte) error {
	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}

	if err := v.schema.Validate(doc); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}

	return nil
}

// ValidateTrajectory checks a parsed definition by round-tripping it through
// JSON, so schema and struct rules cannot drift apart.
func (v *Validator) ValidateTrajectory(tr *Trajectory) error {
	data, err := json.Marshal(tr)
	if err != nil {
		return fmt.Errorf("failed to marshal trajectory: %w", err)
	}

	return v.Validate(data)
}
