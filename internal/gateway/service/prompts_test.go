package service

import (
	"strings"
	"testing"

	"golang-analyst-gateway/internal/gateway/dto"

	"github.com/stretchr/testify/assert"
)

func TestBuildSystemPromptLeadsWithSecurityRules(t *testing.T) {
	prompt := BuildSystemPrompt()
	assert.True(t, strings.HasPrefix(prompt, "=== SECURITY RULES"))
	assert.Contains(t, prompt, `"answer"`)
	assert.Contains(t, prompt, `"recommendations"`)
}

func TestBuildContextualUserMessage(t *testing.T) {
	msg := BuildContextualUserMessage("애플 주가는?", &dto.CompanyContext{
		Ticker:      "AAPL",
		CompanyName: "Apple Inc.",
		News:        []dto.NewsArticle{{Headline: "Apple ships new chip"}},
	})

	assert.Contains(t, msg, "[CONTEXT]")
	assert.Contains(t, msg, "[QUESTION]")
	assert.Contains(t, msg, "Apple Inc. (AAPL)")
	assert.Contains(t, msg, "Apple ships new chip")
	assert.Contains(t, msg, "애플 주가는?")

	// The context block comes before the question so the model reads data
	// first and the user text last.
	assert.Less(t, strings.Index(msg, "[CONTEXT]"), strings.Index(msg, "[QUESTION]"))
}

func TestBuildContextualUserMessageWithoutContext(t *testing.T) {
	msg := BuildContextualUserMessage("질문", nil)
	assert.Contains(t, msg, "(no background context available)")
	assert.Contains(t, msg, "질문")
}

func TestBuildComparisonPromptListsAllCompanies(t *testing.T) {
	_, user := BuildComparisonPrompt(
		[]string{"TSLA", "NVDA"},
		map[string]*dto.CompanyContext{
			"TSLA": {Ticker: "TSLA", CompanyName: "Tesla Inc."},
			"NVDA": {Ticker: "NVDA", CompanyName: "NVIDIA Corp."},
		},
	)
	assert.Contains(t, user, "TSLA, NVDA")
	assert.Contains(t, user, "[DATA: TSLA]")
	assert.Contains(t, user, "[DATA: NVDA]")
}
