package service

import (
	"context"
	"errors"
	"testing"

	"golang-analyst-gateway/internal/entity"
	"golang-analyst-gateway/internal/gateway/dto"
	"golang-analyst-gateway/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregatorMergesAllSources(t *testing.T) {
	companies := newFakeCompanyRepo(&entity.Company{
		Ticker:      "AAPL",
		CompanyName: "Apple Inc.",
		Sector:      "Technology",
		MarketCap:   2800000,
	})
	market := &fakeFinnhubRepo{
		quote: &dto.Quote{Current: 182.5},
		news: []dto.NewsArticle{
			{Headline: "one"}, {Headline: "two"}, {Headline: "three"}, {Headline: "four"},
		},
	}
	documents := &fakeDocumentRepo{chunks: []dto.DocumentChunk{{ID: "d1", Content: "10-K excerpt"}}}

	agg := NewDataAggregator(companies, market, documents, logger.NewNop())
	result := agg.GetContext(context.Background(), "aapl")

	require.NotNil(t, result)
	assert.Equal(t, "AAPL", result.Ticker)
	assert.Equal(t, "Apple Inc.", result.CompanyName)
	require.NotNil(t, result.Quote)
	assert.Equal(t, 182.5, result.Quote.Current)
	assert.Len(t, result.News, 3, "headlines are capped")
	require.Len(t, result.Documents, 1)
	assert.Equal(t, "10-K excerpt", result.Documents[0].Content)
}

func TestAggregatorPartialResultsOnSourceFailure(t *testing.T) {
	companies := newFakeCompanyRepo(&entity.Company{Ticker: "AAPL", CompanyName: "Apple Inc."})
	market := &fakeFinnhubRepo{err: errors.New("upstream down")}
	documents := &fakeDocumentRepo{err: errors.New("qdrant down")}

	agg := NewDataAggregator(companies, market, documents, logger.NewNop())
	result := agg.GetContext(context.Background(), "AAPL")

	require.NotNil(t, result)
	assert.Equal(t, "Apple Inc.", result.CompanyName)
	assert.Nil(t, result.Quote)
	assert.Empty(t, result.Documents)
}

func TestAggregatorUnknownTicker(t *testing.T) {
	agg := NewDataAggregator(newFakeCompanyRepo(), &fakeFinnhubRepo{}, &fakeDocumentRepo{}, logger.NewNop())
	result := agg.GetContext(context.Background(), "ZZZZ")

	require.NotNil(t, result)
	assert.Equal(t, "ZZZZ", result.Ticker)
	assert.Empty(t, result.CompanyName)
}

func TestAggregatorTruncatesLongDocuments(t *testing.T) {
	long := make([]byte, maxDocumentExcerptLen*2)
	for i := range long {
		long[i] = 'a'
	}
	documents := &fakeDocumentRepo{chunks: []dto.DocumentChunk{{ID: "d1", Content: string(long)}}}

	agg := NewDataAggregator(newFakeCompanyRepo(), &fakeFinnhubRepo{}, documents, logger.NewNop())
	result := agg.GetContext(context.Background(), "AAPL")

	require.Len(t, result.Documents, 1)
	assert.Len(t, result.Documents[0].Content, maxDocumentExcerptLen)
}

func TestSearchDocumentsUnscoped(t *testing.T) {
	documents := &fakeDocumentRepo{chunks: []dto.DocumentChunk{{ID: "d1", Content: "risk factors"}}}
	agg := NewDataAggregator(newFakeCompanyRepo(), &fakeFinnhubRepo{}, documents, logger.NewNop())

	docs := agg.SearchDocuments(context.Background(), "supply chain risk", 3)
	require.Len(t, docs, 1)
	assert.Equal(t, "risk factors", docs[0].Content)
}
