package action

import (
	"encoding/json"
	"testing"
)

func TestParseInterpreted(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
		check   func(t *testing.T, a *Action)
	}{
		{
			name: "minimal valid action",
			raw:  `{"type": "list_workflows"}`,
			check: func(t *testing.T, a *Action) {
				if a.Type != TypeListWorkflows {
					t.Errorf("Type = %q", a.Type)
				}
			},
		},
		{
			name: "full create action",
			raw:  `{"type": "create_workflow", "name": "Price Watcher", "description": "track gpu prices"}`,
			check: func(t *testing.T, a *Action) {
				if a.Name != "Price Watcher" || a.Description != "track gpu prices" {
					t.Errorf("fields not decoded: %+v", a)
				}
			},
		},
		{
			name: "run with workflow id",
			raw:  `{"type": "run_workflow", "workflow_id": "wf-1", "workflow_name": "Price Watcher"}`,
			check: func(t *testing.T, a *Action) {
				if a.WorkflowID != "wf-1" || a.WorkflowName != "Price Watcher" {
					t.Errorf("fields not decoded: %+v", a)
				}
			},
		},
		{
			name:    "missing type",
			raw:     `{"workflow_id": "wf-1"}`,
			wantErr: true,
		},
		{
			name:    "unknown type",
			raw:     `{"type": "format_disk"}`,
			wantErr: true,
		},
		{
			name:    "wizard_confirm is not accepted from the interpreter",
			raw:     `{"type": "wizard_confirm", "name": "Price Watcher"}`,
			wantErr: true,
		},
		{
			name:    "wrong field type",
			raw:     `{"type": "navigate", "path": 42}`,
			wantErr: true,
		},
		{
			name:    "not an object",
			raw:     `"run_workflow"`,
			wantErr: true,
		},
		{
			name:    "truncated json",
			raw:     `{"type": "run_workflow"`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := ParseInterpreted(json.RawMessage(tt.raw))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseInterpreted(%s) = %+v, want error", tt.raw, a)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseInterpreted(%s): %v", tt.raw, err)
			}
			if tt.check != nil {
				tt.check(t, a)
			}
		})
	}
}
