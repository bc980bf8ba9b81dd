package service

import (
	"context"
	"regexp"
	"strings"

	"golang-analyst-gateway/internal/gateway/repository"
	"golang-analyst-gateway/pkg/logger"
)

// Uppercase only: "AAPL" is ticker-shaped, "Apple" is a company name and
// must go through name resolution instead.
var tickerFormatPattern = regexp.MustCompile(`^[A-Z.]{1,5}$`)

// TickerResolver maps a user-supplied company hint ("AAPL", "애플", "Apple")
// to a canonical ticker symbol. Strategies are tried in order; the first hit
// wins.
type TickerResolver struct {
	companies  repository.CompanyRepository
	completion repository.CompletionRepository
	log        *logger.Logger
}

func NewTickerResolver(companies repository.CompanyRepository, completion repository.CompletionRepository, log *logger.Logger) *TickerResolver {
	return &TickerResolver{
		companies:  companies,
		completion: completion,
		log:        log,
	}
}

// Resolve returns the canonical ticker for input, or "" when nothing matched.
func (r *TickerResolver) Resolve(ctx context.Context, input string) string {
	input = strings.TrimSpace(input)
	if input == "" {
		return ""
	}

	// 1. Exact ticker match.
	if company, err := r.companies.FindByTicker(ctx, strings.ToUpper(input)); err == nil && company != nil {
		return company.Ticker
	}

	// 2. Localized (Korean) name match.
	if company, err := r.companies.FindByKoreanName(ctx, input); err == nil && company != nil {
		return company.Ticker
	}

	// 3. English company name match.
	if company, err := r.companies.FindByCompanyName(ctx, input); err == nil && company != nil {
		return company.Ticker
	}

	// 4. Format heuristic: a short ascii token with no whitespace is accepted
	// as a ticker even when the DB has never seen it.
	if isASCII(input) && tickerFormatPattern.MatchString(input) {
		return strings.ToUpper(strings.ReplaceAll(input, ".", ""))
	}

	// 5. LLM fallback.
	resolved, err := r.completion.Complete(ctx,
		"You are a financial assistant. Return ONLY the stock ticker symbol for the given company name. If unsure, return NOTHING.",
		"What is the ticker for '"+input+"'?",
		10,
	)
	if err != nil {
		r.log.Warn("Ticker LLM fallback failed", logger.ErrorField(err), logger.StringField("input", input))
		return ""
	}

	resolved = sanitizeTickerToken(resolved)
	if resolved == "" || resolved == "NOTHING" || len(resolved) > 5 {
		return ""
	}
	return resolved
}

func sanitizeTickerToken(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"'.`)
	return strings.ToUpper(s)
}

func isASCII(s string) bool {
	for _, c := range s {
		if c > 127 {
			return false
		}
	}
	return true
}
