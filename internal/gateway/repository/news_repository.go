package repository

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang-analyst-gateway/internal/gateway/config"
	"golang-analyst-gateway/internal/gateway/dto"
	"golang-analyst-gateway/pkg/logger"

	"github.com/PuerkitoBio/goquery"
	"github.com/mauidude/go-readability"
	"github.com/mmcdole/gofeed"
)

// NewsFeedRepository provides market headlines from RSS feeds, used as the
// market-news source when no Finnhub key is configured and for the cron
// prefetch warmer. FetchArticle extracts readable article text for reports.
type NewsFeedRepository interface {
	GetMarketHeadlines(ctx context.Context, category string) ([]dto.NewsArticle, error)
	FetchArticle(ctx context.Context, url string) (string, error)
}

type newsFeedRepository struct {
	cfg        *config.Config
	log        *logger.Logger
	parser     *gofeed.Parser
	httpClient *http.Client
}

func NewNewsFeedRepository(cfg *config.Config, log *logger.Logger) NewsFeedRepository {
	return &newsFeedRepository{
		cfg:    cfg,
		log:    log,
		parser: gofeed.NewParser(),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func (r *newsFeedRepository) GetMarketHeadlines(ctx context.Context, category string) ([]dto.NewsArticle, error) {
	feedURL, ok := r.cfg.News.Feeds[category]
	if !ok {
		feedURL, ok = r.cfg.News.Feeds["general"]
		if !ok {
			return nil, fmt.Errorf("no feed configured for category %q", category)
		}
	}

	feed, err := r.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to parse RSS feed: %w", err)
	}

	articles := make([]dto.NewsArticle, 0, len(feed.Items))
	for _, item := range feed.Items {
		article := dto.NewsArticle{
			Headline: item.Title,
			Summary:  item.Description,
			URL:      item.Link,
			Source:   feed.Title,
		}
		if item.PublishedParsed != nil {
			article.Datetime = item.PublishedParsed.Unix()
		}
		articles = append(articles, article)
	}
	return articles, nil
}

func (r *newsFeedRepository) FetchArticle(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch article: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to fetch article, status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	doc, err := readability.NewDocument(string(body))
	if err != nil {
		return "", fmt.Errorf("failed to parse article content: %w", err)
	}

	docHTML, err := goquery.NewDocumentFromReader(bytes.NewReader([]byte(doc.Content())))
	if err != nil {
		return "", fmt.Errorf("failed to parse article content: %w", err)
	}

	content := strings.TrimSpace(docHTML.Text())
	content = strings.Join(strings.Fields(content), " ")

	maxLen := r.cfg.News.ArticleFetchMax
	if maxLen > 0 && len(content) > maxLen {
		content = content[:maxLen]
	}
	return content, nil
}
