package dto

// DocumentChunk is one retrieved excerpt from the filing document store.
type DocumentChunk struct {
	ID      string  `json:"id"`
	Content string  `json:"content"`
	Score   float32 `json:"score"`
	Source  string  `json:"source,omitempty"`
}

// RelationshipEntry is one edge of the company relationship graph, oriented
// from the queried ticker's point of view.
type RelationshipEntry struct {
	SourceCompany    string `json:"source_company"`
	TargetCompany    string `json:"target_company"`
	RelationshipType string `json:"relationship_type"`
}

// CompanyContext is the merged per-ticker record produced by the data
// aggregator. Any field may be zero when the backing source failed.
type CompanyContext struct {
	Ticker          string                 `json:"ticker"`
	CompanyName     string                 `json:"company_name,omitempty"`
	Sector          string                 `json:"sector,omitempty"`
	Industry        string                 `json:"industry,omitempty"`
	MarketCap       float64                `json:"market_cap,omitempty"`
	Relationships   []RelationshipEntry    `json:"relationships,omitempty"`
	Quote           *Quote                 `json:"quote,omitempty"`
	Metrics         map[string]interface{} `json:"metrics,omitempty"`
	PriceTarget     *PriceTarget           `json:"price_target,omitempty"`
	Recommendations []RecommendationTrend  `json:"recommendations,omitempty"`
	News            []NewsArticle          `json:"news,omitempty"`
	Documents       []DocumentChunk        `json:"documents,omitempty"`
}
