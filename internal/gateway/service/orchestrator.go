package service

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"golang-analyst-gateway/internal/gateway/config"
	"golang-analyst-gateway/internal/gateway/dto"
	"golang-analyst-gateway/internal/gateway/repository"
	"golang-analyst-gateway/pkg/logger"

	openai "github.com/sashabaranov/go-openai"
)

const maxReportTickers = 2

var reportIntentKeywords = []string{
	"보고서", "리포트", "레포트", "분석서",
	"report", "full analysis",
}

var markdownFormatKeywords = []string{"마크다운", "markdown", " md "}

var tickerTokenPattern = regexp.MustCompile(`\b[A-Z][A-Z.]{0,4}\b`)

// ConversationOrchestrator runs one conversational turn: ticker resolution,
// context assembly, the two-pass tool-calling exchange with the model, and
// the report side channel.
type ConversationOrchestrator struct {
	cfg        *config.Config
	sessions   *SessionStore
	resolver   *TickerResolver
	aggregator *DataAggregator
	invoker    *ToolInvoker
	chatModel  repository.ChatModelRepository
	reports    ReportService
	log        *logger.Logger
}

func NewConversationOrchestrator(
	cfg *config.Config,
	sessions *SessionStore,
	resolver *TickerResolver,
	aggregator *DataAggregator,
	invoker *ToolInvoker,
	chatModel repository.ChatModelRepository,
	reports ReportService,
	log *logger.Logger,
) *ConversationOrchestrator {
	return &ConversationOrchestrator{
		cfg:        cfg,
		sessions:   sessions,
		resolver:   resolver,
		aggregator: aggregator,
		invoker:    invoker,
		chatModel:  chatModel,
		reports:    reports,
		log:        log,
	}
}

// modelAnswer is the JSON envelope the model is instructed to reply with.
type modelAnswer struct {
	Answer          string   `json:"answer"`
	Recommendations []string `json:"recommendations"`
}

// Process runs a sanitized message through the conversation pipeline. The
// returned response always carries user-presentable content; an error means
// the turn could not complete at all.
func (o *ConversationOrchestrator) Process(ctx context.Context, sessionID, message string, req *dto.ChatRequest) (*dto.ChatResponse, error) {
	if wantsReport(message) {
		return o.processReport(ctx, sessionID, message, req)
	}

	ticker := o.resolveRequestTicker(ctx, message, req)

	messages := o.buildMessages(ctx, sessionID, message, ticker, req.UseRAG)

	first, err := o.chatModel.ChatWithTools(ctx, messages, ToolSchemas())
	if err != nil {
		return nil, fmt.Errorf("first model pass failed: %w", err)
	}

	resp := &dto.ChatResponse{Success: true, Metadata: map[string]interface{}{}}

	finalContent := first.Content
	if len(first.ToolCalls) > 0 {
		messages = append(messages, *first)
		for _, tc := range first.ToolCalls {
			call := dto.ToolCall{ID: tc.ID, Name: tc.Function.Name, Arguments: tc.Function.Arguments}
			result := o.invoker.Invoke(ctx, call, sessionID)

			// The model may name the company only inside its tool call.
			if ticker == "" {
				ticker = tickerFromArguments(call.Arguments)
			}
			if call.Name == "get_stock_candles" {
				captureChartData(resp, result)
			}

			messages = append(messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    result,
				ToolCallID: tc.ID,
			})
		}

		finalContent, err = o.chatModel.Chat(ctx, messages)
		if err != nil {
			return nil, fmt.Errorf("second model pass failed: %w", err)
		}
	}

	answer := parseModelAnswer(finalContent)
	resp.Content = answer.Answer
	resp.Recommendations = answer.Recommendations
	if ticker != "" {
		resp.Tickers = []string{ticker}
		resp.Metadata["ticker"] = ticker
	}

	o.sessions.AppendHistory(sessionID, message, resp.Content)
	return resp, nil
}

func (o *ConversationOrchestrator) processReport(ctx context.Context, sessionID, message string, req *dto.ChatRequest) (*dto.ChatResponse, error) {
	tickers := o.resolveReportTickers(ctx, sessionID, message, req)
	if len(tickers) == 0 {
		content := "어떤 기업의 보고서를 원하시는지 알 수 없습니다. 기업명이나 티커를 함께 알려주세요. (예: '애플 보고서 만들어줘')"
		o.sessions.AppendHistory(sessionID, message, content)
		return &dto.ChatResponse{
			Success: true,
			Content: content,
			Recommendations: []string{
				"애플(AAPL) 분석 보고서 만들어줘",
				"테슬라와 엔비디아 비교 보고서 만들어줘",
			},
		}, nil
	}

	format := dto.ReportTypePDF
	if wantsMarkdown(message) {
		format = dto.ReportTypeMarkdown
	}

	var (
		result *dto.ReportResult
		err    error
	)
	if len(tickers) >= 2 {
		result, err = o.reports.GenerateComparisonReport(ctx, tickers, format)
	} else {
		result, err = o.reports.GenerateCompanyReport(ctx, tickers[0], format)
	}
	if err != nil {
		return nil, fmt.Errorf("report generation failed: %w", err)
	}

	content := fmt.Sprintf("%s가 준비되었습니다.", result.Title)
	o.sessions.AppendHistory(sessionID, message, content)

	return &dto.ChatResponse{
		Success:        true,
		Content:        content,
		Report:         result.PDF,
		ReportMarkdown: result.Markdown,
		ReportType:     result.Type,
		Tickers:        result.Tickers,
		Metadata:       map[string]interface{}{"report": true},
	}, nil
}

// buildMessages assembles system prompt, the recent history window, and the
// contextual user turn.
func (o *ConversationOrchestrator) buildMessages(ctx context.Context, sessionID, message, ticker string, useRAG bool) []openai.ChatCompletionMessage {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: BuildSystemPrompt()},
	}

	for _, turn := range o.sessions.HistoryWindow(sessionID, o.cfg.Gateway.HistoryWindowTurns) {
		messages = append(messages, openai.ChatCompletionMessage{Role: turn.Role, Content: turn.Content})
	}

	var companyCtx *dto.CompanyContext
	if ticker != "" {
		companyCtx = o.aggregator.GetContext(ctx, ticker)
	} else if useRAG {
		if docs := o.aggregator.SearchDocuments(ctx, message, maxContextDocuments); len(docs) > 0 {
			companyCtx = &dto.CompanyContext{Documents: docs}
		}
	}

	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: BuildContextualUserMessage(message, companyCtx),
	})
	return messages
}

func (o *ConversationOrchestrator) resolveRequestTicker(ctx context.Context, message string, req *dto.ChatRequest) string {
	if req.Ticker != "" {
		return strings.ToUpper(req.Ticker)
	}
	return o.resolver.Resolve(ctx, message)
}

// resolveReportTickers finds the report targets: the explicit request ticker,
// companies named in the message, then tickers mentioned in recent history
// (user turns take precedence over assistant turns, newest first).
func (o *ConversationOrchestrator) resolveReportTickers(ctx context.Context, sessionID, message string, req *dto.ChatRequest) []string {
	var tickers []string
	seen := make(map[string]bool)
	add := func(t string) {
		if t != "" && !seen[t] && len(tickers) < maxReportTickers {
			seen[t] = true
			tickers = append(tickers, t)
		}
	}

	if req.Ticker != "" {
		add(strings.ToUpper(req.Ticker))
	}

	for _, phrase := range splitComparisonPhrases(stripReportPhrases(message)) {
		add(o.resolver.Resolve(ctx, phrase))
	}
	if len(tickers) >= maxReportTickers {
		return tickers
	}

	history := o.sessions.HistoryWindow(sessionID, o.cfg.Gateway.HistoryWindowTurns)
	for _, role := range []string{"user", "assistant"} {
		for i := len(history) - 1; i >= 0; i-- {
			if history[i].Role != role {
				continue
			}
			for _, candidate := range tickerTokenPattern.FindAllString(history[i].Content, -1) {
				if seen[candidate] || len(tickers) >= maxReportTickers {
					continue
				}
				if company, err := o.resolver.companies.FindByTicker(ctx, candidate); err == nil && company != nil {
					add(candidate)
				}
			}
		}
	}
	return tickers
}

// stripReportPhrases removes report-request wording so that only the company
// names remain for resolution.
func stripReportPhrases(message string) string {
	out := message
	for _, kw := range []string{
		"분석 보고서", "비교 보고서", "보고서", "리포트", "레포트", "분석서",
		"만들어줘", "만들어 줘", "작성해줘", "작성해 줘", "생성해줘", "생성해 줘",
		"뽑아줘", "비교", "분석", "마크다운으로", "마크다운",
		"report", "full analysis", "analysis", "generate", "create", "make", "compare",
		"markdown", "pdf로", "pdf", "PDF",
	} {
		out = strings.ReplaceAll(out, kw, " ")
	}
	return strings.TrimSpace(out)
}

// splitComparisonPhrases cuts a message on comparison connectives so that
// each side resolves independently ("테슬라랑 엔비디아 비교 보고서").
func splitComparisonPhrases(message string) []string {
	normalized := message
	for _, sep := range []string{" vs ", " VS ", "이랑", "랑", "하고", "과 ", "와 ", ","} {
		normalized = strings.ReplaceAll(normalized, sep, "\x00")
	}
	parts := strings.Split(normalized, "\x00")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func wantsReport(message string) bool {
	lower := strings.ToLower(message)
	for _, kw := range reportIntentKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func wantsMarkdown(message string) bool {
	lower := " " + strings.ToLower(message) + " "
	for _, kw := range markdownFormatKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func tickerFromArguments(arguments string) string {
	var args struct {
		Ticker string `json:"ticker"`
	}
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return ""
	}
	return strings.ToUpper(args.Ticker)
}

func captureChartData(resp *dto.ChatResponse, toolResult string) {
	var data map[string]interface{}
	if err := json.Unmarshal([]byte(toolResult), &data); err != nil {
		return
	}
	if _, failed := data["error"]; failed {
		return
	}
	resp.ChartData = data
}

// parseModelAnswer extracts the JSON answer envelope, falling back to the
// raw text when the model did not comply.
func parseModelAnswer(content string) modelAnswer {
	var answer modelAnswer
	if err := json.Unmarshal([]byte(content), &answer); err == nil && answer.Answer != "" {
		return answer
	}

	// Some models wrap the JSON in prose or code fences.
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(content[start:end+1]), &answer); err == nil && answer.Answer != "" {
			return answer
		}
	}
	return modelAnswer{Answer: content}
}
