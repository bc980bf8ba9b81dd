package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang-analyst-gateway/internal/entity"
	"golang-analyst-gateway/internal/gateway/config"
	"golang-analyst-gateway/internal/gateway/dto"
	"golang-analyst-gateway/pkg/logger"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGatewayConfig() *config.Config {
	return &config.Config{
		Gateway: config.Gateway{
			RateLimitRequests:   30,
			RateLimitWindow:     time.Minute,
			SessionTimeout:      time.Hour,
			MaxWarnings:         3,
			BlockDuration:       10 * time.Minute,
			HistoryWindowTurns:  6,
			MaxCompletionTokens: 2000,
		},
	}
}

type orchestratorFixture struct {
	orchestrator *ConversationOrchestrator
	sessions     *SessionStore
	chatModel    *fakeChatModel
	reports      *fakeReportService
	companies    *fakeCompanyRepo
}

func newOrchestratorFixture(chatModel *fakeChatModel, completion *fakeCompletionRepo, companies *fakeCompanyRepo) *orchestratorFixture {
	cfg := testGatewayConfig()
	log := logger.NewNop()
	sessions := NewSessionStore(cfg.Gateway.SessionTimeout, log)
	resolver := NewTickerResolver(companies, completion, log)
	aggregator := NewDataAggregator(companies, &fakeFinnhubRepo{}, &fakeDocumentRepo{}, log)
	invoker := NewToolInvoker(&fakeFinnhubRepo{quote: &dto.Quote{Current: 182.5}}, companies, &fakeExchangeRepo{rate: 1350}, completion, &fakeNewsRepo{}, log)
	reports := &fakeReportService{result: &dto.ReportResult{
		Title:    "AAPL 분석 보고서",
		Markdown: "# AAPL",
		PDF:      []byte("%PDF-1.4"),
		Type:     dto.ReportTypePDF,
		Tickers:  []string{"AAPL"},
	}}

	return &orchestratorFixture{
		orchestrator: NewConversationOrchestrator(cfg, sessions, resolver, aggregator, invoker, chatModel, reports, log),
		sessions:     sessions,
		chatModel:    chatModel,
		reports:      reports,
		companies:    companies,
	}
}

func TestProcessPlainTurn(t *testing.T) {
	chatModel := &fakeChatModel{
		firstPass: &openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleAssistant,
			Content: `{"answer": "애플은 미국의 기술 기업입니다.", "recommendations": ["애플 주가 알려줘"]}`,
		},
	}
	fx := newOrchestratorFixture(chatModel, &fakeCompletionRepo{response: "NOTHING"}, newFakeCompanyRepo())
	fx.sessions.GetOrCreate("s1")

	resp, err := fx.orchestrator.Process(context.Background(), "s1", "애플에 대해 알려줘", &dto.ChatRequest{})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "애플은 미국의 기술 기업입니다.", resp.Content)
	assert.Equal(t, []string{"애플 주가 알려줘"}, resp.Recommendations)

	history := fx.sessions.HistoryWindow("s1", 6)
	require.Len(t, history, 2)
	assert.Equal(t, "애플에 대해 알려줘", history[0].Content)
}

func TestProcessToolCallTurn(t *testing.T) {
	chatModel := &fakeChatModel{
		firstPass: &openai.ChatCompletionMessage{
			Role: openai.ChatMessageRoleAssistant,
			ToolCalls: []openai.ToolCall{{
				ID:   "call-1",
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      "get_stock_quote",
					Arguments: `{"ticker": "AAPL"}`,
				},
			}},
		},
		secondPass: `{"answer": "애플의 현재 주가는 $182.50입니다.", "recommendations": []}`,
	}
	fx := newOrchestratorFixture(chatModel, &fakeCompletionRepo{response: "NOTHING"}, newFakeCompanyRepo())
	fx.sessions.GetOrCreate("s1")

	resp, err := fx.orchestrator.Process(context.Background(), "s1", "AAPL의 현재 주가는?", &dto.ChatRequest{})
	require.NoError(t, err)
	assert.Equal(t, "애플의 현재 주가는 $182.50입니다.", resp.Content)

	// Ticker adopted from the tool arguments.
	assert.Equal(t, []string{"AAPL"}, resp.Tickers)

	// The second pass saw the tool result correlated by call ID.
	var toolMsg *openai.ChatCompletionMessage
	for i := range fx.chatModel.gotMessages {
		if fx.chatModel.gotMessages[i].Role == openai.ChatMessageRoleTool {
			toolMsg = &fx.chatModel.gotMessages[i]
		}
	}
	require.NotNil(t, toolMsg)
	assert.Equal(t, "call-1", toolMsg.ToolCallID)
	assert.Contains(t, toolMsg.Content, "182.5")
}

func TestProcessCapturesChartData(t *testing.T) {
	chatModel := &fakeChatModel{
		firstPass: &openai.ChatCompletionMessage{
			Role: openai.ChatMessageRoleAssistant,
			ToolCalls: []openai.ToolCall{{
				ID:   "call-1",
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      "get_stock_candles",
					Arguments: `{"ticker": "AAPL", "days": 30}`,
				},
			}},
		},
		secondPass: `{"answer": "차트를 준비했습니다.", "recommendations": []}`,
	}
	fx := newOrchestratorFixture(chatModel, &fakeCompletionRepo{response: "NOTHING"}, newFakeCompanyRepo())
	fx.sessions.GetOrCreate("s1")

	// The shared finnhub fake inside the fixture has no candles, so rebuild the
	// invoker path through a fixture-level candle payload.
	fx.orchestrator.invoker = NewToolInvoker(&fakeFinnhubRepo{
		candles: &dto.Candles{Close: []float64{180, 182}, Timestamps: []int64{1, 2}, Status: "ok"},
	}, fx.companies, &fakeExchangeRepo{}, &fakeCompletionRepo{}, &fakeNewsRepo{}, logger.NewNop())

	resp, err := fx.orchestrator.Process(context.Background(), "s1", "애플 차트 보여줘", &dto.ChatRequest{})
	require.NoError(t, err)
	require.NotNil(t, resp.ChartData)
	assert.Equal(t, "ok", resp.ChartData["s"])
}

func TestProcessFirstPassFailure(t *testing.T) {
	chatModel := &fakeChatModel{err: errors.New("model unavailable")}
	fx := newOrchestratorFixture(chatModel, &fakeCompletionRepo{response: "NOTHING"}, newFakeCompanyRepo())
	fx.sessions.GetOrCreate("s1")

	_, err := fx.orchestrator.Process(context.Background(), "s1", "안녕하세요", &dto.ChatRequest{})
	require.Error(t, err)
}

func TestProcessComparisonReport(t *testing.T) {
	companies := newFakeCompanyRepo(
		&entity.Company{Ticker: "TSLA", CompanyName: "Tesla Inc.", KoreanName: "테슬라"},
		&entity.Company{Ticker: "NVDA", CompanyName: "NVIDIA Corp.", KoreanName: "엔비디아"},
	)
	fx := newOrchestratorFixture(&fakeChatModel{}, &fakeCompletionRepo{response: "NOTHING"}, companies)
	fx.sessions.GetOrCreate("s1")

	resp, err := fx.orchestrator.Process(context.Background(), "s1", "테슬라랑 엔비디아 비교 보고서 만들어줘", &dto.ChatRequest{})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, []string{"TSLA", "NVDA"}, fx.reports.gotTickers)
	assert.Equal(t, dto.ReportTypePDF, fx.reports.gotFormat)
	assert.NotEmpty(t, resp.Report)
	assert.Equal(t, dto.ReportTypePDF, resp.ReportType)
}

func TestProcessSingleCompanyMarkdownReport(t *testing.T) {
	companies := newFakeCompanyRepo(&entity.Company{Ticker: "TSLA", CompanyName: "Tesla Inc.", KoreanName: "테슬라"})
	fx := newOrchestratorFixture(&fakeChatModel{}, &fakeCompletionRepo{response: "NOTHING"}, companies)
	fx.sessions.GetOrCreate("s1")

	_, err := fx.orchestrator.Process(context.Background(), "s1", "테슬라 보고서 마크다운으로 만들어줘", &dto.ChatRequest{})
	require.NoError(t, err)
	assert.Equal(t, []string{"TSLA"}, fx.reports.gotTickers)
	assert.Equal(t, dto.ReportTypeMarkdown, fx.reports.gotFormat)
}

func TestProcessReportWithoutTickerAsksForOne(t *testing.T) {
	fx := newOrchestratorFixture(&fakeChatModel{}, &fakeCompletionRepo{response: "NOTHING"}, newFakeCompanyRepo())
	fx.sessions.GetOrCreate("s1")

	resp, err := fx.orchestrator.Process(context.Background(), "s1", "보고서 만들어줘", &dto.ChatRequest{})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Contains(t, resp.Content, "기업명이나 티커")
	assert.Empty(t, fx.reports.gotTickers)
}

func TestProcessReportFindsTickerInHistory(t *testing.T) {
	companies := newFakeCompanyRepo(&entity.Company{Ticker: "AAPL", CompanyName: "Apple Inc.", KoreanName: "애플"})
	fx := newOrchestratorFixture(&fakeChatModel{}, &fakeCompletionRepo{response: "NOTHING"}, companies)
	fx.sessions.GetOrCreate("s1")
	fx.sessions.AppendHistory("s1", "AAPL 주가 알려줘", "애플의 현재 주가는 $182.50입니다.")

	resp, err := fx.orchestrator.Process(context.Background(), "s1", "이 회사 보고서 만들어줘", &dto.ChatRequest{})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, []string{"AAPL"}, fx.reports.gotTickers)
}

func TestParseModelAnswer(t *testing.T) {
	answer := parseModelAnswer(`{"answer": "ok", "recommendations": ["a"]}`)
	assert.Equal(t, "ok", answer.Answer)
	assert.Equal(t, []string{"a"}, answer.Recommendations)

	answer = parseModelAnswer("Here you go:\n```json\n{\"answer\": \"wrapped\", \"recommendations\": []}\n```")
	assert.Equal(t, "wrapped", answer.Answer)

	answer = parseModelAnswer("plain text reply")
	assert.Equal(t, "plain text reply", answer.Answer)
	assert.Empty(t, answer.Recommendations)
}

func TestWantsReport(t *testing.T) {
	assert.True(t, wantsReport("애플 보고서 만들어줘"))
	assert.True(t, wantsReport("give me a full report on AAPL"))
	assert.False(t, wantsReport("애플 주가 알려줘"))
}

func TestSplitComparisonPhrases(t *testing.T) {
	assert.Equal(t, []string{"테슬라", "엔비디아"}, splitComparisonPhrases("테슬라랑 엔비디아"))
	assert.Equal(t, []string{"AAPL", "MSFT"}, splitComparisonPhrases("AAPL vs MSFT"))
	assert.Equal(t, []string{"애플"}, splitComparisonPhrases("애플"))
}
