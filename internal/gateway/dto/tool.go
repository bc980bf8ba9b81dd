package dto

// ToolCall is a model-issued function call. ID must be echoed back with the
// tool result so the model can correlate multi-tool turns.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}
