package service

import (
	"context"
	"errors"
	"testing"

	"golang-analyst-gateway/internal/entity"
	"golang-analyst-gateway/pkg/logger"

	"github.com/stretchr/testify/assert"
)

func newTestResolver(companies *fakeCompanyRepo, completion *fakeCompletionRepo) *TickerResolver {
	return NewTickerResolver(companies, completion, logger.NewNop())
}

func TestResolverExactTickerMatch(t *testing.T) {
	repo := newFakeCompanyRepo(&entity.Company{Ticker: "AAPL", CompanyName: "Apple Inc."})
	resolver := newTestResolver(repo, &fakeCompletionRepo{})

	assert.Equal(t, "AAPL", resolver.Resolve(context.Background(), "aapl"))
	assert.Equal(t, "AAPL", resolver.Resolve(context.Background(), "AAPL"))
}

func TestResolverKoreanNameMatch(t *testing.T) {
	repo := newFakeCompanyRepo(&entity.Company{Ticker: "AAPL", CompanyName: "Apple Inc.", KoreanName: "애플"})
	resolver := newTestResolver(repo, &fakeCompletionRepo{})

	assert.Equal(t, "AAPL", resolver.Resolve(context.Background(), "애플"))
}

func TestResolverEnglishNameMatch(t *testing.T) {
	repo := newFakeCompanyRepo(&entity.Company{Ticker: "TSLA", CompanyName: "Tesla Inc."})
	resolver := newTestResolver(repo, &fakeCompletionRepo{})

	assert.Equal(t, "TSLA", resolver.Resolve(context.Background(), "Tesla"))
}

func TestResolverFormatHeuristic(t *testing.T) {
	resolver := newTestResolver(newFakeCompanyRepo(), &fakeCompletionRepo{response: "NOTHING"})

	// An uppercase ticker-shaped token passes even when the DB is empty.
	assert.Equal(t, "NVDA", resolver.Resolve(context.Background(), "NVDA"))
	assert.Equal(t, "BRKB", resolver.Resolve(context.Background(), "BRK.B"))

	// Mixed case words are names, not tickers.
	assert.Equal(t, "", resolver.Resolve(context.Background(), "Maybe"))
}

func TestResolverLLMFallback(t *testing.T) {
	completion := &fakeCompletionRepo{response: `"AAPL"`}
	resolver := newTestResolver(newFakeCompanyRepo(), completion)

	assert.Equal(t, "AAPL", resolver.Resolve(context.Background(), "Apple"))
	assert.NotEmpty(t, completion.prompts)
}

func TestResolverLLMFallbackRejectsNonTickers(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"nothing sentinel", "NOTHING"},
		{"empty", ""},
		{"too long", "NOTATICKER"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resolver := newTestResolver(newFakeCompanyRepo(), &fakeCompletionRepo{response: tc.response})
			assert.Equal(t, "", resolver.Resolve(context.Background(), "어떤 회사"))
		})
	}
}

func TestResolverLLMFailureReturnsEmpty(t *testing.T) {
	resolver := newTestResolver(newFakeCompanyRepo(), &fakeCompletionRepo{err: errors.New("quota exceeded")})
	assert.Equal(t, "", resolver.Resolve(context.Background(), "어떤 회사"))
}

func TestResolverEmptyInput(t *testing.T) {
	resolver := newTestResolver(newFakeCompanyRepo(), &fakeCompletionRepo{})
	assert.Equal(t, "", resolver.Resolve(context.Background(), "  "))
}
