package domain

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// TraceEntry is one step of an agent run: either raw assistant text or
// the result of a dispatched tool call. Exactly one field is set.
type TraceEntry struct {
	Assistant  string `json:"assistant,omitempty"`
	ToolResult any    `json:"tool_result,omitempty"`
}
