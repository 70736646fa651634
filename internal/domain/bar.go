package domain

import "time"

// Field names for panel bundles. These match the columns delivered by the
// daily-bar data source.
const (
	FieldOpen     = "open"
	FieldHigh     = "high"
	FieldLow      = "low"
	FieldClose    = "close"
	FieldVolume   = "volume"
	FieldTurnover = "turn"  // daily turnover rate, percent
	FieldPETTM    = "peTTM" // trailing-twelve-month price/earnings
	FieldPBMRQ    = "pbMRQ" // most-recent-quarter price/book
	FieldPSTTM    = "psTTM" // trailing-twelve-month price/sales
)

// Bar is one daily observation for one stock: prices plus the valuation
// fields factor formulas depend on. Zero-valued optional fields are stored
// as NaN in panels, never as 0.
type Bar struct {
	Symbol   string
	Date     time.Time
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   float64
	Turnover float64
	PETTM    float64
	PBMRQ    float64
	PSTTM    float64
}

// Security is one universe member.
type Security struct {
	Symbol   string
	Name     string
	Exchange string
	ListedAt time.Time
}
