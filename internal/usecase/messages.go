package usecase

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"MarketSniper/internal/domain"
)

// RateLimitedMessage is sent when the marketplace answers 429.
const RateLimitedMessage = "Request failed with status code 429"

// Messages renders operator notifications for one locale.
type Messages struct {
	printer *message.Printer
}

// NewMessages builds a renderer for a BCP 47 tag; unknown tags fall back to English.
func NewMessages(lang string) *Messages {
	tag, err := language.Parse(lang)
	if err != nil {
		tag = language.English
	}
	return &Messages{printer: message.NewPrinter(tag)}
}

// Purchase describes a confirmed purchase.
func (m *Messages) Purchase(task domain.Task, entry domain.CartEntry, receipt domain.Receipt) string {
	price, _ := domain.MajorUnits(entry.Total()).Float64()
	limit, _ := domain.MajorUnits(task.Price).Float64()
	balance, _ := domain.MajorUnits(receipt.WalletBalance).Float64()

	var b strings.Builder
	b.WriteString("New purchase\n")
	b.WriteString(m.printer.Sprintf("Listing: %s (task %d)\n", entry.ListingID, task.ID))
	b.WriteString(m.printer.Sprintf("Float: %s => %s\n", formatFloat(task.Float), formatFloat(entry.AssetFloat)))
	b.WriteString(m.printer.Sprintf("Price: %.2f (limit %.2f)\n", price, limit))
	b.WriteString(m.printer.Sprintf("Wallet balance: %.2f", balance))
	return b.String()
}

// InspectionErrors joins distinct inspection failures, one per line.
func (m *Messages) InspectionErrors(errs []string) string {
	return strings.Join(errs, "\n")
}

// ExchangeRate reports the sampled rate with two decimals.
func (m *Messages) ExchangeRate(rate decimal.Decimal) string {
	return "Current exchange rate: " + rate.StringFixed(2)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
