package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang-analyst-gateway/internal/gateway/config"
	"golang-analyst-gateway/pkg/logger"

	"github.com/patrickmn/go-cache"
)

// ExchangeRateRepository resolves currency rates with an in-process TTL cache.
type ExchangeRateRepository interface {
	GetRate(ctx context.Context, from, to string) (float64, error)
	Convert(ctx context.Context, amount float64, from, to string) (float64, error)
	FormatRate(from, to string, rate float64) string
}

type exchangeRateRepository struct {
	cfg        *config.Config
	log        *logger.Logger
	httpClient *http.Client
	rateCache  *cache.Cache
}

type exchangeRateResponse struct {
	Result string             `json:"result"`
	Rates  map[string]float64 `json:"rates"`
}

func NewExchangeRateRepository(cfg *config.Config, log *logger.Logger) ExchangeRateRepository {
	ttl := cfg.ExchangeRate.CacheTTL
	if ttl == 0 {
		ttl = 30 * time.Minute
	}
	return &exchangeRateRepository{
		cfg: cfg,
		log: log,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		rateCache: cache.New(ttl, 2*ttl),
	}
}

func (r *exchangeRateRepository) GetRate(ctx context.Context, from, to string) (float64, error) {
	if from == "" {
		from = "USD"
	}
	if to == "" {
		to = "KRW"
	}

	cacheKey := from + ":" + to
	if cached, found := r.rateCache.Get(cacheKey); found {
		return cached.(float64), nil
	}

	reqURL := fmt.Sprintf("%s/latest/%s", r.cfg.ExchangeRate.BaseURL, from)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to call exchange rate API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return 0, fmt.Errorf("exchange rate API returned %d: %s", resp.StatusCode, string(body))
	}

	var payload exchangeRateResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("failed to decode exchange rate response: %w", err)
	}

	rate, ok := payload.Rates[to]
	if !ok {
		return 0, fmt.Errorf("no rate found for %s/%s", from, to)
	}

	r.rateCache.SetDefault(cacheKey, rate)
	return rate, nil
}

func (r *exchangeRateRepository) Convert(ctx context.Context, amount float64, from, to string) (float64, error) {
	rate, err := r.GetRate(ctx, from, to)
	if err != nil {
		return 0, err
	}
	return amount * rate, nil
}

func (r *exchangeRateRepository) FormatRate(from, to string, rate float64) string {
	return fmt.Sprintf("1 %s = %.2f %s", from, rate, to)
}
