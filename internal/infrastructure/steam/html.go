package steam

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// tableMessage extracts the notice the marketplace renders instead of listing rows
// (for example "There are no listings for this item.").
func tableMessage(resultsHTML string) string {
	if strings.TrimSpace(resultsHTML) == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(resultsHTML))
	if err != nil {
		return ""
	}

	msg := doc.Find(".market_listing_table_message").First().Text()
	return strings.Join(strings.Fields(msg), " ")
}

// countListingRows returns how many listing rows the rendered table holds.
func countListingRows(resultsHTML string) int {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(resultsHTML))
	if err != nil {
		return 0
	}
	return doc.Find(".market_listing_row").Length()
}
