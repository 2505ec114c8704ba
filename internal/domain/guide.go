package domain

import "encoding/json"

// GuideCall is a model-issued request to invoke a named guide mid-run.
// Arguments arrive as a JSON object keyed by the declared parameter names.
type GuideCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// GuideOutput answers one GuideCall. Output is the JSON-serialized return
// value of the guide, or the sentinel error string for unknown guides.
type GuideOutput struct {
	ToolCallID string `json:"tool_call_id"`
	Output     string `json:"output"`
}

// GuideDeclaration is the JSON-schema signature of a guide, loaded from its
// declarative definition file and passed verbatim to assistant creation.
type GuideDeclaration struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}
