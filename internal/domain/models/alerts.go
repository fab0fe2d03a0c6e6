package models

import "time"

// StockTransition classifies a change in an item's zero-stock membership.
type StockTransition string

const (
	// TransitionRestocked means the item left the zero-stock set.
	TransitionRestocked StockTransition = "RESTOCKED"
	// TransitionNowOutOfStock means the item entered the zero-stock set.
	TransitionNowOutOfStock StockTransition = "NOW_OUT_OF_STOCK"
	// TransitionStillOutOfStock means the item changed while remaining at zero.
	TransitionStillOutOfStock StockTransition = "STILL_OUT_OF_STOCK"
)

// StockAlert is a single classified stock transition delivered to notifiers.
// EventID lets at-least-once consumers deduplicate redeliveries.
type StockAlert struct {
	EventID    string          `json:"event_id"`
	Item       string          `json:"item"`
	Transition StockTransition `json:"transition"`
	ObservedAt time.Time       `json:"observed_at"`
}

// LowStockReport is the payload of the scheduled reorder report: a snapshot of
// popular items currently below the low-stock threshold.
type LowStockReport struct {
	GeneratedAt time.Time `json:"generated_at"`
	Items       []Item    `json:"items"`
}
