package repository

import (
	"context"
	"fmt"

	"golang-analyst-gateway/internal/gateway/config"
	"golang-analyst-gateway/internal/gateway/dto"
	"golang-analyst-gateway/pkg/logger"

	"github.com/qdrant/go-client/qdrant"
)

// DocumentRepository performs similarity search over embedded filing
// documents (10-K excerpts). Hybrid search mechanics live server-side; this
// client only embeds the query and retrieves payloads.
type DocumentRepository interface {
	Search(ctx context.Context, query string, limit int) ([]dto.DocumentChunk, error)
	SearchForTicker(ctx context.Context, ticker string, limit int) ([]dto.DocumentChunk, error)
}

// Embedder produces a query vector for a piece of text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type documentRepository struct {
	cfg        *config.Config
	log        *logger.Logger
	client     *qdrant.Client
	embedder   Embedder
	collection string
}

// NewDocumentRepository creates a qdrant-backed document repository.
func NewDocumentRepository(cfg *config.Config, log *logger.Logger, embedder Embedder) (DocumentRepository, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Qdrant.Host,
		Port:   cfg.Qdrant.Port,
		APIKey: cfg.Qdrant.APIKey,
		UseTLS: cfg.Qdrant.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	return &documentRepository{
		cfg:        cfg,
		log:        log,
		client:     client,
		embedder:   embedder,
		collection: cfg.Qdrant.Collection,
	}, nil
}

func (r *documentRepository) Search(ctx context.Context, query string, limit int) ([]dto.DocumentChunk, error) {
	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	limitUint64 := uint64(limit)
	points, err := r.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: r.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limitUint64,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant search failed: %w", err)
	}

	chunks := make([]dto.DocumentChunk, 0, len(points))
	for _, point := range points {
		chunk := dto.DocumentChunk{Score: point.Score}
		if point.Id != nil {
			if uuid := point.Id.GetUuid(); uuid != "" {
				chunk.ID = uuid
			} else {
				chunk.ID = fmt.Sprintf("%d", point.Id.GetNum())
			}
		}
		for k, v := range point.Payload {
			switch k {
			case "content":
				chunk.Content = v.GetStringValue()
			case "source":
				chunk.Source = v.GetStringValue()
			}
		}
		if chunk.Content != "" {
			chunks = append(chunks, chunk)
		}
	}
	return chunks, nil
}

func (r *documentRepository) SearchForTicker(ctx context.Context, ticker string, limit int) ([]dto.DocumentChunk, error) {
	query := fmt.Sprintf("Latest business overview and risks for %s", ticker)
	return r.Search(ctx, query, limit)
}
