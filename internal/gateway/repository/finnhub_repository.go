package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang-analyst-gateway/internal/gateway/config"
	"golang-analyst-gateway/internal/gateway/dto"
	"golang-analyst-gateway/pkg/common"
	"golang-analyst-gateway/pkg/logger"
	redisPkg "golang-analyst-gateway/pkg/redis"

	"golang.org/x/time/rate"
)

// FinnhubRepository provides real-time market data. One upstream call per
// method invocation; callers own retry policy.
type FinnhubRepository interface {
	GetQuote(ctx context.Context, ticker string) (*dto.Quote, error)
	GetCompanyProfile(ctx context.Context, ticker string) (*dto.CompanyProfile, error)
	GetPriceTarget(ctx context.Context, ticker string) (*dto.PriceTarget, error)
	GetCompanyNews(ctx context.Context, ticker, from, to string) ([]dto.NewsArticle, error)
	GetMarketNews(ctx context.Context, category string) ([]dto.NewsArticle, error)
	GetBasicFinancials(ctx context.Context, ticker string) (*dto.BasicFinancials, error)
	GetCandles(ctx context.Context, ticker, resolution string, from, to time.Time) (*dto.Candles, error)
	GetRecommendationTrends(ctx context.Context, ticker string) ([]dto.RecommendationTrend, error)
}

type finnhubRepository struct {
	cfg            *config.Config
	log            *logger.Logger
	httpClient     *http.Client
	requestLimiter *rate.Limiter
	redisClient    *redisPkg.Client
}

// NewFinnhubRepository creates a Finnhub client with request throttling and a
// short-TTL redis cache for quote and candle lookups. redisClient may be nil;
// caching is then skipped.
func NewFinnhubRepository(cfg *config.Config, log *logger.Logger, redisClient *redisPkg.Client) FinnhubRepository {
	secondsPerRequest := time.Minute / time.Duration(cfg.Finnhub.MaxRequestPerMinute)
	requestLimiter := rate.NewLimiter(rate.Every(secondsPerRequest), 1)
	return &finnhubRepository{
		cfg: cfg,
		log: log,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		requestLimiter: requestLimiter,
		redisClient:    redisClient,
	}
}

func (r *finnhubRepository) GetQuote(ctx context.Context, ticker string) (*dto.Quote, error) {
	var quote dto.Quote
	cacheKey := fmt.Sprintf(common.RedisKeyQuote, ticker)
	if r.getCached(ctx, cacheKey, &quote) {
		return &quote, nil
	}

	params := url.Values{"symbol": []string{ticker}}
	if err := r.fetch(ctx, "/quote", params, &quote); err != nil {
		return nil, err
	}
	r.setCached(ctx, cacheKey, &quote)
	return &quote, nil
}

func (r *finnhubRepository) GetCompanyProfile(ctx context.Context, ticker string) (*dto.CompanyProfile, error) {
	var profile dto.CompanyProfile
	cacheKey := fmt.Sprintf(common.RedisKeyProfile, ticker)
	if r.getCached(ctx, cacheKey, &profile) {
		return &profile, nil
	}

	params := url.Values{"symbol": []string{ticker}}
	if err := r.fetch(ctx, "/stock/profile2", params, &profile); err != nil {
		return nil, err
	}
	if profile.Name == "" {
		return nil, fmt.Errorf("no profile found for %s", ticker)
	}
	r.setCached(ctx, cacheKey, &profile)
	return &profile, nil
}

func (r *finnhubRepository) GetPriceTarget(ctx context.Context, ticker string) (*dto.PriceTarget, error) {
	var target dto.PriceTarget
	cacheKey := fmt.Sprintf(common.RedisKeyPriceTarget, ticker)
	if r.getCached(ctx, cacheKey, &target) {
		return &target, nil
	}

	params := url.Values{"symbol": []string{ticker}}
	if err := r.fetch(ctx, "/stock/price-target", params, &target); err != nil {
		return nil, err
	}
	r.setCached(ctx, cacheKey, &target)
	return &target, nil
}

func (r *finnhubRepository) GetCompanyNews(ctx context.Context, ticker, from, to string) ([]dto.NewsArticle, error) {
	// Finnhub requires an explicit date range; default to the last 7 days.
	if from == "" {
		from = time.Now().AddDate(0, 0, -7).Format("2006-01-02")
	}
	if to == "" {
		to = time.Now().Format("2006-01-02")
	}

	params := url.Values{
		"symbol": []string{ticker},
		"from":   []string{from},
		"to":     []string{to},
	}
	var articles []dto.NewsArticle
	if err := r.fetch(ctx, "/company-news", params, &articles); err != nil {
		return nil, err
	}
	return articles, nil
}

func (r *finnhubRepository) GetMarketNews(ctx context.Context, category string) ([]dto.NewsArticle, error) {
	if category == "" {
		category = "general"
	}

	var articles []dto.NewsArticle
	cacheKey := fmt.Sprintf(common.RedisKeyMarketNews, category)
	if r.getCached(ctx, cacheKey, &articles) {
		return articles, nil
	}

	params := url.Values{"category": []string{category}}
	if err := r.fetch(ctx, "/news", params, &articles); err != nil {
		return nil, err
	}
	r.setCached(ctx, cacheKey, &articles)
	return articles, nil
}

func (r *finnhubRepository) GetBasicFinancials(ctx context.Context, ticker string) (*dto.BasicFinancials, error) {
	params := url.Values{
		"symbol": []string{ticker},
		"metric": []string{"all"},
	}
	var financials dto.BasicFinancials
	if err := r.fetch(ctx, "/stock/metric", params, &financials); err != nil {
		return nil, err
	}
	return &financials, nil
}

func (r *finnhubRepository) GetCandles(ctx context.Context, ticker, resolution string, from, to time.Time) (*dto.Candles, error) {
	days := int(to.Sub(from).Hours() / 24)
	var candles dto.Candles
	cacheKey := fmt.Sprintf(common.RedisKeyCandles, ticker, resolution, days)
	if r.getCached(ctx, cacheKey, &candles) {
		return &candles, nil
	}

	params := url.Values{
		"symbol":     []string{ticker},
		"resolution": []string{resolution},
		"from":       []string{fmt.Sprintf("%d", from.Unix())},
		"to":         []string{fmt.Sprintf("%d", to.Unix())},
	}
	if err := r.fetch(ctx, "/stock/candle", params, &candles); err != nil {
		return nil, err
	}
	if candles.Status != "ok" {
		return nil, fmt.Errorf("no candle data for %s", ticker)
	}
	r.setCached(ctx, cacheKey, &candles)
	return &candles, nil
}

func (r *finnhubRepository) GetRecommendationTrends(ctx context.Context, ticker string) ([]dto.RecommendationTrend, error) {
	params := url.Values{"symbol": []string{ticker}}
	var trends []dto.RecommendationTrend
	if err := r.fetch(ctx, "/stock/recommendation", params, &trends); err != nil {
		return nil, err
	}
	return trends, nil
}

func (r *finnhubRepository) fetch(ctx context.Context, path string, params url.Values, out interface{}) error {
	if err := r.requestLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("failed to wait for request limit: %w", err)
	}

	params.Set("token", r.cfg.Finnhub.APIKey)
	reqURL := r.cfg.Finnhub.BaseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call finnhub: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		r.log.Error("Received non-OK response from Finnhub",
			logger.IntField("status_code", resp.StatusCode),
			logger.StringField("path", path))
		return fmt.Errorf("finnhub returned %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode finnhub response: %w", err)
	}
	return nil
}

func (r *finnhubRepository) getCached(ctx context.Context, key string, out interface{}) bool {
	if r.redisClient == nil {
		return false
	}
	raw, err := r.redisClient.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return false
	}
	return true
}

func (r *finnhubRepository) setCached(ctx context.Context, key string, value interface{}) {
	if r.redisClient == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := r.redisClient.Set(ctx, key, raw, r.cfg.Finnhub.CacheTTL).Err(); err != nil {
		r.log.Debug("Failed to cache finnhub payload", logger.ErrorField(err), logger.StringField("key", key))
	}
}
