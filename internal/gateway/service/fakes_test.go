package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang-analyst-gateway/internal/entity"
	"golang-analyst-gateway/internal/gateway/dto"
	"golang-analyst-gateway/internal/gateway/repository"

	openai "github.com/sashabaranov/go-openai"
)

type fakeCompanyRepo struct {
	mu        sync.Mutex
	companies map[string]*entity.Company
	favorites map[string][]string
	err       error
}

func newFakeCompanyRepo(companies ...*entity.Company) *fakeCompanyRepo {
	repo := &fakeCompanyRepo{
		companies: make(map[string]*entity.Company),
		favorites: make(map[string][]string),
	}
	for _, c := range companies {
		repo.companies[c.Ticker] = c
	}
	return repo
}

func (f *fakeCompanyRepo) FindByTicker(ctx context.Context, ticker string) (*entity.Company, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.companies[ticker], nil
}

func (f *fakeCompanyRepo) FindByKoreanName(ctx context.Context, name string) (*entity.Company, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.companies {
		if c.KoreanName != "" && strings.Contains(c.KoreanName, name) {
			return c, nil
		}
	}
	return nil, nil
}

func (f *fakeCompanyRepo) FindByCompanyName(ctx context.Context, name string) (*entity.Company, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.companies {
		if strings.Contains(strings.ToLower(c.CompanyName), strings.ToLower(name)) {
			return c, nil
		}
	}
	return nil, nil
}

func (f *fakeCompanyRepo) Register(ctx context.Context, company *entity.Company) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.companies[company.Ticker]; ok {
		return repository.ErrAlreadyRegistered
	}
	f.companies[company.Ticker] = company
	return nil
}

func (f *fakeCompanyRepo) FindRelationships(ctx context.Context, ticker string) ([]entity.CompanyRelationship, []entity.CompanyRelationship, error) {
	return nil, nil, f.err
}

func (f *fakeCompanyRepo) AddFavorite(ctx context.Context, userID, ticker string) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.favorites[userID] = append(f.favorites[userID], ticker)
	return nil
}

type fakeFinnhubRepo struct {
	quote   *dto.Quote
	profile *dto.CompanyProfile
	target  *dto.PriceTarget
	news    []dto.NewsArticle
	candles *dto.Candles
	err     error

	quoteCalls int
}

func (f *fakeFinnhubRepo) GetQuote(ctx context.Context, ticker string) (*dto.Quote, error) {
	f.quoteCalls++
	if f.err != nil {
		return nil, f.err
	}
	return f.quote, nil
}

func (f *fakeFinnhubRepo) GetCompanyProfile(ctx context.Context, ticker string) (*dto.CompanyProfile, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.profile, nil
}

func (f *fakeFinnhubRepo) GetPriceTarget(ctx context.Context, ticker string) (*dto.PriceTarget, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.target, nil
}

func (f *fakeFinnhubRepo) GetCompanyNews(ctx context.Context, ticker, from, to string) ([]dto.NewsArticle, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.news, nil
}

func (f *fakeFinnhubRepo) GetMarketNews(ctx context.Context, category string) ([]dto.NewsArticle, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.news, nil
}

func (f *fakeFinnhubRepo) GetBasicFinancials(ctx context.Context, ticker string) (*dto.BasicFinancials, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &dto.BasicFinancials{Symbol: ticker, Metric: map[string]interface{}{}}, nil
}

func (f *fakeFinnhubRepo) GetCandles(ctx context.Context, ticker, resolution string, from, to time.Time) (*dto.Candles, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.candles, nil
}

func (f *fakeFinnhubRepo) GetRecommendationTrends(ctx context.Context, ticker string) ([]dto.RecommendationTrend, error) {
	if f.err != nil {
		return nil, f.err
	}
	return nil, nil
}

type fakeExchangeRepo struct {
	rate float64
	err  error
}

func (f *fakeExchangeRepo) GetRate(ctx context.Context, from, to string) (float64, error) {
	return f.rate, f.err
}

func (f *fakeExchangeRepo) Convert(ctx context.Context, amount float64, from, to string) (float64, error) {
	if f.err != nil {
		return 0, f.err
	}
	return amount * f.rate, nil
}

func (f *fakeExchangeRepo) FormatRate(from, to string, rate float64) string {
	return from + "/" + to
}

type fakeCompletionRepo struct {
	response string
	err      error
	prompts  []string
}

func (f *fakeCompletionRepo) Complete(ctx context.Context, system, user string, maxTokens int) (string, error) {
	f.prompts = append(f.prompts, user)
	return f.response, f.err
}

type fakeNewsRepo struct {
	headlines []dto.NewsArticle
	article   string
	err       error
}

func (f *fakeNewsRepo) GetMarketHeadlines(ctx context.Context, category string) ([]dto.NewsArticle, error) {
	return f.headlines, f.err
}

func (f *fakeNewsRepo) FetchArticle(ctx context.Context, url string) (string, error) {
	return f.article, f.err
}

type fakeDocumentRepo struct {
	chunks []dto.DocumentChunk
	err    error
}

func (f *fakeDocumentRepo) Search(ctx context.Context, query string, limit int) ([]dto.DocumentChunk, error) {
	return f.chunks, f.err
}

func (f *fakeDocumentRepo) SearchForTicker(ctx context.Context, ticker string, limit int) ([]dto.DocumentChunk, error) {
	return f.chunks, f.err
}

// fakeChatModel replays scripted first-pass and second-pass responses.
type fakeChatModel struct {
	firstPass  *openai.ChatCompletionMessage
	secondPass string
	err        error

	gotMessages []openai.ChatCompletionMessage
}

func (f *fakeChatModel) ChatWithTools(ctx context.Context, messages []openai.ChatCompletionMessage, tools []openai.Tool) (*openai.ChatCompletionMessage, error) {
	f.gotMessages = messages
	return f.firstPass, f.err
}

func (f *fakeChatModel) Chat(ctx context.Context, messages []openai.ChatCompletionMessage) (string, error) {
	f.gotMessages = messages
	return f.secondPass, f.err
}

func (f *fakeChatModel) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{0.1, 0.2}, nil
}

type fakeReportService struct {
	result *dto.ReportResult
	err    error

	gotTickers []string
	gotFormat  string
}

func (f *fakeReportService) GenerateCompanyReport(ctx context.Context, ticker, format string) (*dto.ReportResult, error) {
	f.gotTickers = []string{ticker}
	f.gotFormat = format
	return f.result, f.err
}

func (f *fakeReportService) GenerateComparisonReport(ctx context.Context, tickers []string, format string) (*dto.ReportResult, error) {
	f.gotTickers = tickers
	f.gotFormat = format
	return f.result, f.err
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (f *fakeNotifier) SendMessage(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, text)
	return nil
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages)
}
