package service

import (
	"context"
	"strings"
	"sync"

	"golang-analyst-gateway/internal/gateway/dto"
	"golang-analyst-gateway/internal/gateway/repository"
	"golang-analyst-gateway/pkg/logger"
)

const (
	maxRelationshipsPerDirection = 5
	maxContextHeadlines          = 3
	maxContextDocuments          = 3
	maxDocumentExcerptLen        = 500
)

// DataAggregator fans out to the company, relationship, market-data, and
// document backends in parallel and merges the results into one context
// record per ticker. Every source is optional; a failed fetch leaves its
// field zero.
type DataAggregator struct {
	companies repository.CompanyRepository
	market    repository.FinnhubRepository
	documents repository.DocumentRepository
	log       *logger.Logger
}

func NewDataAggregator(
	companies repository.CompanyRepository,
	market repository.FinnhubRepository,
	documents repository.DocumentRepository,
	log *logger.Logger,
) *DataAggregator {
	return &DataAggregator{
		companies: companies,
		market:    market,
		documents: documents,
		log:       log,
	}
}

// GetContext collects all data for one ticker. It never returns an error;
// partial results are the contract.
func (a *DataAggregator) GetContext(ctx context.Context, ticker string) *dto.CompanyContext {
	ticker = strings.ToUpper(ticker)
	result := &dto.CompanyContext{Ticker: ticker}

	var wg sync.WaitGroup
	var mu sync.Mutex

	run := func(name string, fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(); err != nil {
				a.log.Debug("Context source failed",
					logger.StringField("source", name),
					logger.StringField("ticker", ticker),
					logger.ErrorField(err))
			}
		}()
	}

	run("company", func() error {
		company, err := a.companies.FindByTicker(ctx, ticker)
		if err != nil || company == nil {
			return err
		}
		mu.Lock()
		result.CompanyName = company.CompanyName
		result.Sector = company.Sector
		result.Industry = company.Industry
		result.MarketCap = company.MarketCap
		mu.Unlock()
		return nil
	})

	run("relationships", func() error {
		outgoing, incoming, err := a.companies.FindRelationships(ctx, ticker)
		if err != nil {
			return err
		}
		if len(outgoing) > maxRelationshipsPerDirection {
			outgoing = outgoing[:maxRelationshipsPerDirection]
		}
		if len(incoming) > maxRelationshipsPerDirection {
			incoming = incoming[:maxRelationshipsPerDirection]
		}
		entries := make([]dto.RelationshipEntry, 0, len(outgoing)+len(incoming))
		for _, rel := range outgoing {
			entries = append(entries, dto.RelationshipEntry{
				SourceCompany:    rel.SourceCompany,
				TargetCompany:    rel.TargetCompany,
				RelationshipType: rel.RelationshipType,
			})
		}
		for _, rel := range incoming {
			entries = append(entries, dto.RelationshipEntry{
				SourceCompany:    rel.SourceCompany,
				TargetCompany:    rel.TargetCompany,
				RelationshipType: rel.RelationshipType,
			})
		}
		mu.Lock()
		result.Relationships = entries
		mu.Unlock()
		return nil
	})

	if a.market != nil {
		run("quote", func() error {
			quote, err := a.market.GetQuote(ctx, ticker)
			if err != nil {
				return err
			}
			mu.Lock()
			result.Quote = quote
			mu.Unlock()
			return nil
		})

		run("metrics", func() error {
			financials, err := a.market.GetBasicFinancials(ctx, ticker)
			if err != nil {
				return err
			}
			mu.Lock()
			result.Metrics = financials.Metric
			mu.Unlock()
			return nil
		})

		run("price_target", func() error {
			target, err := a.market.GetPriceTarget(ctx, ticker)
			if err != nil {
				return err
			}
			mu.Lock()
			result.PriceTarget = target
			mu.Unlock()
			return nil
		})

		run("recommendations", func() error {
			trends, err := a.market.GetRecommendationTrends(ctx, ticker)
			if err != nil {
				return err
			}
			mu.Lock()
			result.Recommendations = trends
			mu.Unlock()
			return nil
		})

		run("news", func() error {
			news, err := a.market.GetCompanyNews(ctx, ticker, "", "")
			if err != nil {
				return err
			}
			if len(news) > maxContextHeadlines {
				news = news[:maxContextHeadlines]
			}
			mu.Lock()
			result.News = news
			mu.Unlock()
			return nil
		})
	}

	if a.documents != nil {
		run("documents", func() error {
			docs, err := a.documents.SearchForTicker(ctx, ticker, maxContextDocuments)
			if err != nil {
				return err
			}
			for i := range docs {
				if len(docs[i].Content) > maxDocumentExcerptLen {
					docs[i].Content = docs[i].Content[:maxDocumentExcerptLen]
				}
			}
			mu.Lock()
			result.Documents = docs
			mu.Unlock()
			return nil
		})
	}

	wg.Wait()
	return result
}

// SearchDocuments runs an unscoped similarity search, used when no ticker
// resolved for the turn.
func (a *DataAggregator) SearchDocuments(ctx context.Context, query string, limit int) []dto.DocumentChunk {
	if a.documents == nil {
		return nil
	}
	docs, err := a.documents.Search(ctx, query, limit)
	if err != nil {
		a.log.Debug("Unscoped document search failed", logger.ErrorField(err))
		return nil
	}
	for i := range docs {
		if len(docs[i].Content) > maxDocumentExcerptLen {
			docs[i].Content = docs[i].Content[:maxDocumentExcerptLen]
		}
	}
	return docs
}
