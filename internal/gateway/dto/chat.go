package dto

// Machine-readable error codes surfaced on ChatResponse.
const (
	ErrCodeSessionBlocked         = "SESSION_BLOCKED"
	ErrCodeRateLimited            = "RATE_LIMITED"
	ErrCodeInputRejected          = "INPUT_REJECTED"
	ErrCodeSessionBlockedSecurity = "SESSION_BLOCKED_SECURITY"
	ErrCodeProcessingError        = "PROCESSING_ERROR"
)

// Report format tags.
const (
	ReportTypePDF      = "pdf"
	ReportTypeMarkdown = "md"
)

// ChatRequest is the unit of inbound gateway traffic.
type ChatRequest struct {
	SessionID string                 `json:"session_id"`
	Message   string                 `json:"message"`
	Ticker    string                 `json:"ticker,omitempty"`
	UseRAG    bool                   `json:"use_rag"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// ChatResponse is the gateway's reply. Content is always user-presentable,
// even on failure. Report is absent whenever Success is false.
type ChatResponse struct {
	Success         bool                   `json:"success"`
	Content         string                 `json:"content"`
	Report          []byte                 `json:"report,omitempty"`
	ReportMarkdown  string                 `json:"report_markdown,omitempty"`
	ReportType      string                 `json:"report_type,omitempty"`
	Tickers         []string               `json:"tickers,omitempty"`
	ChartData       map[string]interface{} `json:"chart_data,omitempty"`
	Recommendations []string               `json:"recommendations,omitempty"`
	Metadata        map[string]interface{} `json:"metadata,omitempty"`
	ErrorCode       string                 `json:"error_code,omitempty"`
}

// ChatTurn is one role-tagged entry of a session's conversation history.
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// SessionInfoResponse is a read-only snapshot of a session.
type SessionInfoResponse struct {
	SessionID    string `json:"session_id"`
	CreatedAt    string `json:"created_at"`
	LastActivity string `json:"last_activity"`
	MessageCount int    `json:"message_count"`
	Warnings     int    `json:"warnings"`
	IsBlocked    bool   `json:"is_blocked"`
}
