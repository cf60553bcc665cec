package domain

import "time"

// BreakdownRow is one cell of the variant×event_type cross-tab, flattened.
type BreakdownRow struct {
	Variant   string `json:"variant"`
	EventType string `json:"event_type"`
	Count     int64  `json:"count"`
}

// ConversionStats holds distinct-visitor funnel counts for one variant and
// the rates derived from them. Rates are percentages rounded to one decimal
// and defined as 0 when Views is 0.
type ConversionStats struct {
	Views      int64   `json:"views"`
	Clicks     int64   `json:"clicks"`
	Submits    int64   `json:"submissions"`
	ClickRate  float64 `json:"click_rate"`
	SubmitRate float64 `json:"submit_rate"`
}

// TimelineRow is an hourly bucket over the trailing 24 hours.
type TimelineRow struct {
	Hour      time.Time `json:"hour"`
	Variant   *string   `json:"variant"`
	EventType string    `json:"event_type"`
	Count     int64     `json:"count"`
}

// StatsResponse is the full aggregate view served by the metrics service.
// Either every field is computed or the whole call fails; no partial stats.
type StatsResponse struct {
	TotalEvents         int64                      `json:"total_events"`
	UniqueVisitors      int64                      `json:"unique_visitors"`
	EventsByType        map[string]int64           `json:"events_by_type"`
	EventsByVariant     map[string]int64           `json:"events_by_variant"`
	VariantBreakdown    []BreakdownRow             `json:"variant_breakdown"`
	ConversionByVariant map[string]ConversionStats `json:"conversion_by_variant"`
	Timeline            []TimelineRow              `json:"timeline"`
}
