package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LowStockThreshold is the quantity below which a popular item is considered
// worth reordering.
const LowStockThreshold = 10

// Item is a named inventory record. The name is the primary identifier and is
// case-sensitive; there is no surrogate id.
type Item struct {
	Name    string          `json:"name"`
	Price   decimal.Decimal `json:"price"`
	Popular bool            `json:"popular"`
	Qty     int64           `json:"qty"`
}

// Equal reports value equality, comparing prices numerically rather than by
// decimal representation.
func (i Item) Equal(o Item) bool {
	return i.Name == o.Name && i.Popular == o.Popular && i.Qty == o.Qty && i.Price.Equal(o.Price)
}

// LogEntry is a single audit trail record. Entries are immutable once written;
// the timestamp is assigned by the storage adapter, never by the caller.
type LogEntry struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Filter enumerates the supported inventory queries.
type Filter string

const (
	// FilterAll matches every item.
	FilterAll Filter = "all"
	// FilterOutOfStock matches items whose quantity is exactly zero.
	FilterOutOfStock Filter = "out-of-stock"
	// FilterPopularLowStock matches popular items below LowStockThreshold.
	FilterPopularLowStock Filter = "popular-low-stock"
)

// Matches reports whether the item belongs to the filter's result set.
func (f Filter) Matches(it Item) bool {
	switch f {
	case FilterAll:
		return true
	case FilterOutOfStock:
		return it.Qty == 0
	case FilterPopularLowStock:
		return it.Popular && it.Qty < LowStockThreshold
	default:
		return false
	}
}
