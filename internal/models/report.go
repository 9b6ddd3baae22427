package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PendingCollection sums what one collector holds that the office has not received
type PendingCollection struct {
	CollectorID   int             `json:"collector_id" db:"collected_by"`
	CollectorName string          `json:"collector_name" db:"name"`
	Records       int             `json:"records" db:"records"`
	Amount        decimal.Decimal `json:"amount" db:"amount"`
	LateFee       decimal.Decimal `json:"late_fee" db:"late_fee"`
}

// PendingReport represents a page of pending collections and the grand total
type PendingReport struct {
	Collectors []*PendingCollection `json:"collectors"`
	Total      decimal.Decimal      `json:"total"`
}

// CategorySummary totals collections of one category within a date range
type CategorySummary struct {
	Category Category        `json:"category" db:"category"`
	Records  int             `json:"records" db:"records"`
	Amount   decimal.Decimal `json:"amount" db:"amount"`
	LateFee  decimal.Decimal `json:"late_fee" db:"late_fee"`
}

// CollectionSummary represents collections between From and To
type CollectionSummary struct {
	From       time.Time          `json:"from"`
	To         time.Time          `json:"to"`
	Categories []*CategorySummary `json:"categories"`
	Amount     decimal.Decimal    `json:"amount"`
	LateFee    decimal.Decimal    `json:"late_fee"`
}
