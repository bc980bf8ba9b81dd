package dto

// ReportResult is the output of report generation. PDF is empty when the
// report degraded to markdown only.
type ReportResult struct {
	Title    string   `json:"title"`
	Markdown string   `json:"markdown"`
	PDF      []byte   `json:"-"`
	Type     string   `json:"type"`
	Tickers  []string `json:"tickers"`
}
