package domain

import "strings"

// Session is an authenticated marketplace web session.
type Session struct {
	ID      string
	Cookies []string // "name=value" pairs
}

// CookieHeader renders the cookies for a Cookie request header.
func (s Session) CookieHeader() string {
	return strings.Join(s.Cookies, "; ")
}

// Valid reports whether the session carries an id to sign requests with.
func (s Session) Valid() bool {
	return s.ID != ""
}

// Order describes a single listing purchase request.
type Order struct {
	ListingID string
	Currency  int
	Subtotal  int64
	Fee       int64
	Quantity  int
	Referer   string
}

// Total is the amount charged for the order.
func (o Order) Total() int64 {
	return o.Subtotal + o.Fee
}

// Receipt is the marketplace reply to a successful purchase request.
type Receipt struct {
	Confirmed     bool
	WalletBalance int64
}
