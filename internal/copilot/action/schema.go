package action

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// interpretedSchema constrains the structured action object the intent
// interpreter is allowed to return.  The enum deliberately excludes
// wizard_confirm: that pseudo-action is synthesised internally and an
// interpreter response claiming it is rejected here.
const interpretedSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["type"],
  "properties": {
    "type": {
      "type": "string",
      "enum": [
        "create_workflow", "run_workflow", "delete_workflow",
        "clone_workflow", "publish_workflow", "use_template",
        "abort_run", "change_name", "navigate", "list_workflows",
        "generate_insights", "check_ai_status", "summarize_run",
        "not_found"
      ]
    },
    "workflow_id":   {"type": "string"},
    "workflow_name": {"type": "string"},
    "run_id":        {"type": "string"},
    "template_id":   {"type": "string"},
    "template_name": {"type": "string"},
    "name":          {"type": "string"},
    "description":   {"type": "string"},
    "path":          {"type": "string"},
    "category":      {"type": "string"}
  }
}`

var compiledInterpretedSchema = jsonschema.MustCompileString("action.schema.json", interpretedSchema)

// ParseInterpreted validates an interpreter-produced action object against
// the schema and decodes it into an Action.  Callers treat a validation
// error the same way as an unrecognised type: the action is dropped.
func ParseInterpreted(raw json.RawMessage) (*Action, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("action: decode interpreted payload: %w", err)
	}
	if err := compiledInterpretedSchema.Validate(v); err != nil {
		return nil, fmt.Errorf("action: interpreted payload failed validation: %w", err)
	}

	var a Action
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("action: unmarshal interpreted payload: %w", err)
	}
	return &a, nil
}
