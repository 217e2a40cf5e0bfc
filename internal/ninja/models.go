package ninja

// EconomyLeague identifies a scannable league/realm.
type EconomyLeague struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	DisplayName string `json:"displayName,omitempty"`
	Hardcore    bool   `json:"hardcore,omitempty"`
	Indexed     bool   `json:"indexed,omitempty"`
}

// IndexState is the index-state endpoint payload. Fields beyond the economy
// league list are irrelevant here and left undeclared; unknown JSON is dropped.
type IndexState struct {
	EconomyLeagues []EconomyLeague `json:"economyLeagues"`
}

// SearchItem carries the name→icon mapping from the exchange search index.
type SearchItem struct {
	Name string `json:"name"`
	Icon string `json:"icon"`
}

// SearchResponse groups search items by category ("Currency", ...).
type SearchResponse struct {
	Items map[string][]SearchItem `json:"items"`
}

// OverviewItem is one tradable good in the market overview. DetailsID joins
// the overview to per-item detail data.
type OverviewItem struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Image     string `json:"image,omitempty"`
	Category  string `json:"category,omitempty"`
	DetailsID string `json:"detailsId"`
}

// CoreRates holds the published baseline exchange rates per divine.
type CoreRates struct {
	Exalted float64 `json:"exalted"`
	Chaos   float64 `json:"chaos"`
}

// OverviewCore bundles the overview item list with the baseline rates.
type OverviewCore struct {
	Items []OverviewItem `json:"items"`
	Rates CoreRates      `json:"rates"`
}

// OverviewResponse is the market overview payload.
type OverviewResponse struct {
	Core  OverviewCore   `json:"core"`
	Items []OverviewItem `json:"items"`
}

// PairHistoryPoint is one raw history sample for a pair. Timestamp stays a
// string here; parsing happens at the normalization boundary.
type PairHistoryPoint struct {
	Timestamp          string  `json:"timestamp"`
	Rate               float64 `json:"rate"`
	VolumePrimaryValue float64 `json:"volumePrimaryValue"`
}

// DetailsPair is one quoted pair in a details payload.
type DetailsPair struct {
	ID                 string             `json:"id"`
	Rate               float64            `json:"rate"`
	VolumePrimaryValue float64            `json:"volumePrimaryValue"`
	History            []PairHistoryPoint `json:"history"`
}

// DetailsResponse is the per-item detail payload.
type DetailsResponse struct {
	Item  OverviewItem  `json:"item"`
	Pairs []DetailsPair `json:"pairs"`
}
