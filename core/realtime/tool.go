package realtime

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// Tool is a function the model may call during a session.
type Tool struct {
	Name        string
	Description string
	Parameters  *jsonschema.Schema

	execute func(arguments string) (string, error)
}

// NewTool builds a tool whose parameter schema is reflected from T. Arguments
// sent by the model are decoded into T before fn is called.
func NewTool[T any](name, description string, fn func(parameters T) (string, error)) Tool {
	reflector := jsonschema.Reflector{DoNotReference: true, ExpandedStruct: true}
	var zero T
	schema := reflector.Reflect(zero)
	schema.Version = ""

	return Tool{
		Name:        name,
		Description: description,
		Parameters:  schema,
		execute: func(arguments string) (string, error) {
			var parameters T
			if arguments != "" {
				if err := json.Unmarshal([]byte(arguments), &parameters); err != nil {
					return "", fmt.Errorf("failed to decode arguments for %q: %w", name, err)
				}
			}
			return fn(parameters)
		},
	}
}

func (t Tool) Execute(arguments string) (string, error) {
	if t.execute == nil {
		return "", fmt.Errorf("tool %q has no implementation", t.Name)
	}
	return t.execute(arguments)
}
