package domain

import "github.com/shopspring/decimal"

// CartEntry is an accepted listing waiting for a purchase attempt.
type CartEntry struct {
	ListingID  string
	ItemID     string
	Subtotal   int64
	Fee        int64
	AssetFloat float64
	TaskID     int64
	IsHandled  bool
}

// Total is subtotal plus fee, in minor units.
func (c CartEntry) Total() int64 {
	return c.Subtotal + c.Fee
}

// PendingEntry is an unhandled cart entry joined with its task's remaining quota.
type PendingEntry struct {
	CartEntry
	Amount int
}

// Exhausted reports whether the owning task has no purchases left.
func (p PendingEntry) Exhausted() bool {
	return p.Amount < 1
}

// PurchaseRecord is the append-only trace of a confirmed purchase.
type PurchaseRecord struct {
	Link       string
	FloatValue float64
	Price      decimal.Decimal // major units
	TaskID     int64
}

// MajorUnits converts a minor-unit amount (kopecks, cents) to major units.
func MajorUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}
