package domain

import "strings"

const (
	listingIDPlaceholder = "%listingid%"
	assetIDPlaceholder   = "%assetid%"
)

// Listing is a marketplace sale offer as returned by a listing page. Prices are converted to
// the requested currency and expressed in minor units.
type Listing struct {
	ID              string
	Price           int64
	Fee             int64
	AssetID         string
	InspectTemplate string
}

// Total is the price the buyer pays.
func (l Listing) Total() int64 {
	return l.Price + l.Fee
}

// Priced reports whether both price and fee are known.
func (l Listing) Priced() bool {
	return l.Price > 0 && l.Fee > 0
}

// InspectLink resolves the inspect action template. The second value is false when the
// listing carries no asset reference to inspect.
func (l Listing) InspectLink() (string, bool) {
	if l.AssetID == "" || l.InspectTemplate == "" {
		return "", false
	}
	link := strings.ReplaceAll(l.InspectTemplate, listingIDPlaceholder, l.ID)
	link = strings.ReplaceAll(link, assetIDPlaceholder, l.AssetID)
	return link, true
}

// PageQuery selects a window of listings and the currency prices are converted to.
type PageQuery struct {
	Start    int
	Count    int
	Currency int
}

// InspectTarget is a single candidate sent to the inspection service.
type InspectTarget struct {
	ListingID string
	AssetID   string
	Link      string
}

// Key identifies the inspected asset within its listing.
func (t InspectTarget) Key() string {
	return t.ListingID + "/" + t.AssetID
}

// InspectionResult is the inspection service verdict for one asset.
type InspectionResult struct {
	ListingID string
	AssetID   string
	Float     float64
	Status    string
	Error     string
}

// Key matches InspectTarget.Key.
func (r InspectionResult) Key() string {
	return r.ListingID + "/" + r.AssetID
}

// Failed reports whether the service could not inspect the asset.
func (r InspectionResult) Failed() bool {
	return r.Error != ""
}

// Describe formats a failed result as "<status>: <error>".
func (r InspectionResult) Describe() string {
	return r.Status + ": " + r.Error
}

// InspectTargets builds inspection candidates for every listing with a resolvable asset.
func InspectTargets(listings map[string]Listing) []InspectTarget {
	targets := make([]InspectTarget, 0, len(listings))
	for _, listing := range listings {
		link, ok := listing.InspectLink()
		if !ok {
			continue
		}
		targets = append(targets, InspectTarget{
			ListingID: listing.ID,
			AssetID:   listing.AssetID,
			Link:      link,
		})
	}
	return targets
}
