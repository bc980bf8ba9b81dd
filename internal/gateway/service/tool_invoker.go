package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"golang-analyst-gateway/internal/entity"
	"golang-analyst-gateway/internal/gateway/dto"
	"golang-analyst-gateway/internal/gateway/repository"
	"golang-analyst-gateway/pkg/logger"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
)

// ToolInvoker dispatches model-issued function calls to the matching backend
// and serializes results back to the model. Handler failures are absorbed
// into {"error": ...} payloads so a single failing data source never aborts
// the conversation turn.
type ToolInvoker struct {
	market     repository.FinnhubRepository
	companies  repository.CompanyRepository
	exchange   repository.ExchangeRateRepository
	completion repository.CompletionRepository
	news       repository.NewsFeedRepository
	log        *logger.Logger
}

func NewToolInvoker(
	market repository.FinnhubRepository,
	companies repository.CompanyRepository,
	exchange repository.ExchangeRateRepository,
	completion repository.CompletionRepository,
	news repository.NewsFeedRepository,
	log *logger.Logger,
) *ToolInvoker {
	return &ToolInvoker{
		market:     market,
		companies:  companies,
		exchange:   exchange,
		completion: completion,
		news:       news,
		log:        log,
	}
}

type toolArgs map[string]interface{}

func (a toolArgs) str(key string) string {
	if v, ok := a[key].(string); ok {
		return v
	}
	return ""
}

func (a toolArgs) num(key string) float64 {
	if v, ok := a[key].(float64); ok {
		return v
	}
	return 0
}

func (a toolArgs) intOr(key string, def int) int {
	if v, ok := a[key].(float64); ok && v > 0 {
		return int(v)
	}
	return def
}

// Invoke executes one tool call and returns its serialized result. userID
// keys user-scoped operations like favorites.
func (t *ToolInvoker) Invoke(ctx context.Context, call dto.ToolCall, userID string) string {
	var args toolArgs
	if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
		return errorResult(fmt.Sprintf("invalid arguments: %v", err))
	}

	t.log.InfoContext(ctx, "Tool call",
		logger.StringField("function", call.Name),
		logger.StringField("arguments", call.Arguments))

	switch call.Name {
	case "get_stock_quote":
		return t.getStockQuote(ctx, args)
	case "get_company_profile":
		return t.getCompanyProfile(ctx, args)
	case "get_price_target":
		return t.getPriceTarget(ctx, args)
	case "get_company_news":
		return t.getCompanyNews(ctx, args)
	case "get_market_news":
		return t.getMarketNews(ctx, args)
	case "register_company":
		return t.registerCompany(ctx, args)
	case "get_exchange_rate":
		return t.getExchangeRate(ctx, args)
	case "convert_to_krw":
		return t.convertToKRW(ctx, args)
	case "get_stock_candles":
		return t.getStockCandles(ctx, args)
	case "add_to_favorites":
		return t.addToFavorites(ctx, args, userID)
	default:
		return errorResult("Unknown function: " + call.Name)
	}
}

func (t *ToolInvoker) getStockQuote(ctx context.Context, args toolArgs) string {
	ticker := args.str("ticker")
	if ticker == "" {
		return errorResult("missing required argument: ticker")
	}
	quote, err := t.market.GetQuote(ctx, strings.ToUpper(ticker))
	if err != nil {
		return errorResult(err.Error())
	}
	return jsonResult(quote)
}

func (t *ToolInvoker) getCompanyProfile(ctx context.Context, args toolArgs) string {
	ticker := args.str("ticker")
	if ticker == "" {
		return errorResult("missing required argument: ticker")
	}
	profile, err := t.market.GetCompanyProfile(ctx, strings.ToUpper(ticker))
	if err != nil {
		return errorResult(err.Error())
	}
	return jsonResult(profile)
}

func (t *ToolInvoker) getPriceTarget(ctx context.Context, args toolArgs) string {
	ticker := args.str("ticker")
	if ticker == "" {
		return errorResult("missing required argument: ticker")
	}
	target, err := t.market.GetPriceTarget(ctx, strings.ToUpper(ticker))
	if err != nil {
		return errorResult(err.Error())
	}
	return jsonResult(target)
}

func (t *ToolInvoker) getCompanyNews(ctx context.Context, args toolArgs) string {
	ticker := args.str("ticker")
	if ticker == "" {
		return errorResult("missing required argument: ticker")
	}
	news, err := t.market.GetCompanyNews(ctx, strings.ToUpper(ticker), args.str("from_date"), args.str("to"))
	if err != nil {
		return errorResult(err.Error())
	}
	if len(news) > 5 {
		news = news[:5]
	}
	return jsonResult(news)
}

func (t *ToolInvoker) getMarketNews(ctx context.Context, args toolArgs) string {
	category := args.str("category")
	news, err := t.market.GetMarketNews(ctx, category)
	if err != nil {
		// RSS feeds cover the gap when the market-data provider is down.
		news, err = t.news.GetMarketHeadlines(ctx, category)
		if err != nil {
			return errorResult(err.Error())
		}
	}
	if len(news) > 5 {
		news = news[:5]
	}
	return jsonResult(news)
}

func (t *ToolInvoker) registerCompany(ctx context.Context, args toolArgs) string {
	ticker := strings.ToUpper(args.str("ticker"))
	if ticker == "" {
		return errorResult("missing required argument: ticker")
	}

	profile, err := t.market.GetCompanyProfile(ctx, ticker)
	if err != nil {
		return errorResult(fmt.Sprintf("기업 정보를 찾을 수 없습니다: %s", ticker))
	}

	company := &entity.Company{
		Ticker:      ticker,
		CompanyName: profile.Name,
		Sector:      profile.Industry,
		Industry:    profile.Industry,
		MarketCap:   profile.MarketCapitalization,
		Website:     profile.WebURL,
		Description: fmt.Sprintf("Registered via chatbot. %s is a company in the %s sector.", profile.Name, profile.Industry),
	}

	// A missing localized name is tolerable; registration proceeds without it.
	if koreanName, err := t.completion.Complete(ctx,
		"You are a translator. Return ONLY the Korean name for the company. No extra text.",
		fmt.Sprintf("What is the common Korean name for '%s' (%s)?", profile.Name, ticker),
		20,
	); err == nil {
		company.KoreanName = strings.TrimSpace(koreanName)
	}

	if err := t.companies.Register(ctx, company); err != nil {
		if err == repository.ErrAlreadyRegistered {
			return fmt.Sprintf("이미 등록된 기업입니다: %s", ticker)
		}
		return errorResult(err.Error())
	}
	return fmt.Sprintf("성공적으로 등록되었습니다: %s (%s). 이제 이 기업에 대해 질문하거나 보고서를 생성할 수 있습니다.", profile.Name, ticker)
}

func (t *ToolInvoker) getExchangeRate(ctx context.Context, args toolArgs) string {
	from := args.str("from_currency")
	to := args.str("to_currency")
	if from == "" {
		from = "USD"
	}
	if to == "" {
		to = "KRW"
	}
	rate, err := t.exchange.GetRate(ctx, from, to)
	if err != nil {
		return errorResult(err.Error())
	}
	return jsonResult(map[string]interface{}{
		"from":      from,
		"to":        to,
		"rate":      rate,
		"formatted": t.exchange.FormatRate(from, to, rate),
	})
}

func (t *ToolInvoker) convertToKRW(ctx context.Context, args toolArgs) string {
	amount, ok := args["usd_amount"].(float64)
	if !ok {
		return errorResult("missing required argument: usd_amount")
	}
	krw, err := t.exchange.Convert(ctx, amount, "USD", "KRW")
	if err != nil {
		return errorResult(err.Error())
	}
	rate, err := t.exchange.GetRate(ctx, "USD", "KRW")
	if err != nil {
		return errorResult(err.Error())
	}
	return jsonResult(map[string]interface{}{
		"usd_amount": amount,
		"krw_amount": krw,
		"rate":       rate,
		"formatted":  fmt.Sprintf("$%.2f = ₩%.0f (환율: %.2f원/달러)", amount, krw, rate),
	})
}

func (t *ToolInvoker) getStockCandles(ctx context.Context, args toolArgs) string {
	ticker := strings.ToUpper(args.str("ticker"))
	if ticker == "" {
		return errorResult("missing required argument: ticker")
	}
	resolution := args.str("resolution")
	if resolution == "" {
		resolution = "D"
	}
	days := args.intOr("days", 30)

	to := time.Now()
	from := to.AddDate(0, 0, -days)

	candles, err := t.market.GetCandles(ctx, ticker, resolution, from, to)
	if err != nil {
		return errorResult("주가 데이터를 가져오지 못했습니다.")
	}
	candles.Ticker = ticker
	candles.Resolution = resolution
	return jsonResult(candles)
}

func (t *ToolInvoker) addToFavorites(ctx context.Context, args toolArgs, userID string) string {
	ticker := strings.ToUpper(args.str("ticker"))
	if ticker == "" {
		return errorResult("missing required argument: ticker")
	}
	if err := t.companies.AddFavorite(ctx, userID, ticker); err != nil {
		return errorResult(err.Error())
	}
	return fmt.Sprintf("즐겨찾기에 추가되었습니다: %s", ticker)
}

func jsonResult(v interface{}) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return errorResult(err.Error())
	}
	return string(raw)
}

func errorResult(reason string) string {
	raw, _ := json.Marshal(map[string]string{"error": reason})
	return string(raw)
}

// ToolSchemas returns the function registry exposed to the model on the
// first pass of each turn.
func ToolSchemas() []openai.Tool {
	tickerParam := map[string]jsonschema.Definition{
		"ticker": {
			Type:        jsonschema.String,
			Description: "Company ticker symbol (e.g. AAPL)",
		},
	}

	return []openai.Tool{
		functionTool("get_stock_quote",
			"Get real-time stock price (c), change (d), percent change (dp), high (h), low (l).",
			tickerParam, []string{"ticker"}),
		functionTool("get_company_profile",
			"Get company profile (industry, market cap, IPO date, etc).",
			tickerParam, []string{"ticker"}),
		functionTool("get_price_target",
			"Get analyst price target and consensus.",
			tickerParam, []string{"ticker"}),
		functionTool("get_company_news",
			"Get recent company news.",
			map[string]jsonschema.Definition{
				"ticker":    {Type: jsonschema.String},
				"from_date": {Type: jsonschema.String, Description: "YYYY-MM-DD"},
				"to":        {Type: jsonschema.String, Description: "YYYY-MM-DD"},
			}, []string{"ticker"}),
		functionTool("get_market_news",
			"Get general market news.",
			map[string]jsonschema.Definition{
				"category": {
					Type: jsonschema.String,
					Enum: []string{"general", "forex", "crypto", "merger"},
				},
			}, nil),
		functionTool("register_company",
			"Register a new company to the database if the user asks to add/register it.",
			map[string]jsonschema.Definition{
				"ticker": {
					Type:        jsonschema.String,
					Description: "The company ticker symbol to register.",
				},
			}, []string{"ticker"}),
		functionTool("get_exchange_rate",
			"Get current exchange rate between currencies. Default is USD to KRW. Use this when the user asks about exchange rates, currency conversion, or stock prices in KRW.",
			map[string]jsonschema.Definition{
				"from_currency": {Type: jsonschema.String, Description: "Source currency code (e.g., USD, EUR)"},
				"to_currency":   {Type: jsonschema.String, Description: "Target currency code (e.g., KRW, JPY, EUR)"},
			}, nil),
		functionTool("convert_to_krw",
			"Convert a USD amount to Korean Won. Use when the user asks about a price in won.",
			map[string]jsonschema.Definition{
				"usd_amount": {Type: jsonschema.Number, Description: "Amount in USD to convert"},
			}, []string{"usd_amount"}),
		functionTool("get_stock_candles",
			"Get historical stock price data (OHLCV) for charting. Period defaults to 30 days.",
			map[string]jsonschema.Definition{
				"ticker":     {Type: jsonschema.String, Description: "Company ticker symbol (e.g. AAPL)"},
				"resolution": {Type: jsonschema.String, Description: "Candle resolution. D=Daily, W=Weekly, M=Monthly, 1/5/15/30/60=Minutes."},
				"days":       {Type: jsonschema.Integer, Description: "Number of days of history to fetch."},
			}, []string{"ticker"}),
		functionTool("add_to_favorites",
			"Add a company to the user's favorites/watchlist.",
			map[string]jsonschema.Definition{
				"ticker": {
					Type:        jsonschema.String,
					Description: "Company ticker symbol to add (e.g. AAPL, MSFT).",
				},
			}, []string{"ticker"}),
	}
}

func functionTool(name, description string, params map[string]jsonschema.Definition, required []string) openai.Tool {
	return openai.Tool{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        name,
			Description: description,
			Parameters: jsonschema.Definition{
				Type:       jsonschema.Object,
				Properties: params,
				Required:   required,
			},
		},
	}
}
