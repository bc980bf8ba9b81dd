package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang-analyst-gateway/internal/gateway/dto"
	"golang-analyst-gateway/internal/gateway/repository"
	"golang-analyst-gateway/pkg/logger"
	"golang-analyst-gateway/pkg/utils"
)

const reportCandleDays = 90

// ReportService produces full analysis reports: a model-written narrative
// plus live market figures and charts, optionally packed into a PDF.
type ReportService interface {
	GenerateCompanyReport(ctx context.Context, ticker, format string) (*dto.ReportResult, error)
	GenerateComparisonReport(ctx context.Context, tickers []string, format string) (*dto.ReportResult, error)
}

type reportService struct {
	aggregator *DataAggregator
	market     repository.FinnhubRepository
	completion repository.CompletionRepository
	news       repository.NewsFeedRepository
	charts     ChartService
	pdf        PdfService
	log        *logger.Logger
}

func NewReportService(
	aggregator *DataAggregator,
	market repository.FinnhubRepository,
	completion repository.CompletionRepository,
	news repository.NewsFeedRepository,
	charts ChartService,
	pdf PdfService,
	log *logger.Logger,
) ReportService {
	return &reportService{
		aggregator: aggregator,
		market:     market,
		completion: completion,
		news:       news,
		charts:     charts,
		pdf:        pdf,
		log:        log,
	}
}

func (s *reportService) GenerateCompanyReport(ctx context.Context, ticker, format string) (*dto.ReportResult, error) {
	companyCtx := s.aggregator.GetContext(ctx, ticker)

	system, user := BuildReportPrompt(ticker, companyCtx)
	narrative, err := s.completion.Complete(ctx, system, user, 3000)
	if err != nil {
		return nil, fmt.Errorf("failed to generate report narrative: %w", err)
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("# %s 분석 보고서\n\n", ticker))
	b.WriteString(fmt.Sprintf("생성일: %s\n\n", utils.TimeNowKST().Format("2006-01-02 15:04")))
	s.writeMarketSnapshot(ctx, &b, ticker)
	s.writeNewsSection(ctx, &b, ticker)
	b.WriteString(narrative)
	b.WriteString("\n")

	result := &dto.ReportResult{
		Title:    fmt.Sprintf("%s 분석 보고서", ticker),
		Markdown: b.String(),
		Type:     dto.ReportTypeMarkdown,
		Tickers:  []string{ticker},
	}

	if format == dto.ReportTypePDF {
		s.packPDF(ctx, result, s.renderCompanyCharts(ctx, ticker))
	}
	return result, nil
}

func (s *reportService) GenerateComparisonReport(ctx context.Context, tickers []string, format string) (*dto.ReportResult, error) {
	contexts := make(map[string]*dto.CompanyContext, len(tickers))
	for _, ticker := range tickers {
		contexts[ticker] = s.aggregator.GetContext(ctx, ticker)
	}

	system, user := BuildComparisonPrompt(tickers, contexts)
	narrative, err := s.completion.Complete(ctx, system, user, 3000)
	if err != nil {
		return nil, fmt.Errorf("failed to generate comparison narrative: %w", err)
	}

	title := fmt.Sprintf("%s 비교 분석 보고서", strings.Join(tickers, " vs "))
	var b strings.Builder
	b.WriteString("# " + title + "\n\n")
	b.WriteString(fmt.Sprintf("생성일: %s\n\n", utils.TimeNowKST().Format("2006-01-02 15:04")))
	for _, ticker := range tickers {
		s.writeMarketSnapshot(ctx, &b, ticker)
	}
	b.WriteString(narrative)
	b.WriteString("\n")

	result := &dto.ReportResult{
		Title:    title,
		Markdown: b.String(),
		Type:     dto.ReportTypeMarkdown,
		Tickers:  tickers,
	}

	if format == dto.ReportTypePDF {
		s.packPDF(ctx, result, s.renderComparisonCharts(ctx, tickers))
	}
	return result, nil
}

// writeMarketSnapshot appends a live figures section. Individual source
// failures are skipped so a partial snapshot is still produced.
func (s *reportService) writeMarketSnapshot(ctx context.Context, b *strings.Builder, ticker string) {
	b.WriteString(fmt.Sprintf("## %s 시장 현황\n\n", ticker))

	if quote, err := s.market.GetQuote(ctx, ticker); err == nil {
		b.WriteString(fmt.Sprintf("- 현재가: $%.2f (%+.2f%%)\n", quote.Current, quote.PercentChange))
		b.WriteString(fmt.Sprintf("- 일중 고가/저가: $%.2f / $%.2f\n", quote.High, quote.Low))
	} else {
		s.log.DebugContext(ctx, "Report snapshot skipped quote", logger.StringField("ticker", ticker), logger.ErrorField(err))
	}

	if target, err := s.market.GetPriceTarget(ctx, ticker); err == nil && target.TargetMean > 0 {
		b.WriteString(fmt.Sprintf("- 애널리스트 목표주가: 평균 $%.2f (최저 $%.2f ~ 최고 $%.2f)\n",
			target.TargetMean, target.TargetLow, target.TargetHigh))
	}

	if trends, err := s.market.GetRecommendationTrends(ctx, ticker); err == nil && len(trends) > 0 {
		latest := trends[0]
		b.WriteString(fmt.Sprintf("- 애널리스트 의견 (%s): 적극매수 %d / 매수 %d / 보유 %d / 매도 %d\n",
			latest.Period, latest.StrongBuy, latest.Buy, latest.Hold, latest.Sell+latest.StrongSell))
	}

	if fin, err := s.market.GetBasicFinancials(ctx, ticker); err == nil {
		if pe, ok := fin.Metric["peBasicExclExtraTTM"].(float64); ok {
			b.WriteString(fmt.Sprintf("- PER (TTM): %.2f\n", pe))
		}
		if high, ok := fin.Metric["52WeekHigh"].(float64); ok {
			b.WriteString(fmt.Sprintf("- 52주 최고가: $%.2f\n", high))
		}
	}

	b.WriteString("\n")
}

// writeNewsSection appends recent headlines with a readable excerpt of the
// top article.
func (s *reportService) writeNewsSection(ctx context.Context, b *strings.Builder, ticker string) {
	to := time.Now()
	from := to.AddDate(0, 0, -7)
	articles, err := s.market.GetCompanyNews(ctx, ticker,
		from.Format("2006-01-02"), to.Format("2006-01-02"))
	if err != nil || len(articles) == 0 {
		return
	}
	if len(articles) > 3 {
		articles = articles[:3]
	}

	b.WriteString("## 최근 뉴스\n\n")
	for _, a := range articles {
		b.WriteString(fmt.Sprintf("- %s (%s)\n", a.Headline, a.Source))
	}

	if excerpt, err := s.news.FetchArticle(ctx, articles[0].URL); err == nil && excerpt != "" {
		b.WriteString(fmt.Sprintf("\n> %s\n", excerpt))
	}
	b.WriteString("\n")
}

func (s *reportService) renderCompanyCharts(ctx context.Context, ticker string) [][]byte {
	candles, err := s.fetchCandles(ctx, ticker)
	if err != nil {
		s.log.DebugContext(ctx, "Report charts skipped", logger.StringField("ticker", ticker), logger.ErrorField(err))
		return nil
	}

	var charts [][]byte
	if img, err := s.charts.RenderPriceChart(candles); err == nil {
		charts = append(charts, img)
	}
	if img, err := s.charts.RenderVolumeChart(candles); err == nil {
		charts = append(charts, img)
	}
	return charts
}

func (s *reportService) renderComparisonCharts(ctx context.Context, tickers []string) [][]byte {
	series := make(map[string]*dto.Candles, len(tickers))
	for _, ticker := range tickers {
		candles, err := s.fetchCandles(ctx, ticker)
		if err != nil {
			continue
		}
		series[ticker] = candles
	}

	img, err := s.charts.RenderComparisonChart(series)
	if err != nil {
		return nil
	}
	return [][]byte{img}
}

func (s *reportService) fetchCandles(ctx context.Context, ticker string) (*dto.Candles, error) {
	to := time.Now()
	from := to.AddDate(0, 0, -reportCandleDays)
	candles, err := s.market.GetCandles(ctx, ticker, "D", from, to)
	if err != nil {
		return nil, err
	}
	candles.Ticker = ticker
	candles.Resolution = "D"
	return candles, nil
}

// packPDF attaches the PDF rendition. On failure the markdown result is
// kept and the type stays markdown.
func (s *reportService) packPDF(ctx context.Context, result *dto.ReportResult, charts [][]byte) {
	raw, err := s.pdf.Render(result.Title, result.Markdown, charts)
	if err != nil {
		s.log.Error("Failed to render report PDF, degrading to markdown", logger.ErrorField(err))
		return
	}
	result.PDF = raw
	result.Type = dto.ReportTypePDF
}
