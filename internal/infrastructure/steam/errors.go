package steam

import (
	"fmt"
	"net/http"
	"strings"

	"MarketSniper/internal/domain"
)

// StatusError is a non-2xx marketplace response.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("Request failed with status code %d", e.Code)
}

// Is lets callers match 429 responses with domain.ErrRateLimited.
func (e *StatusError) Is(target error) bool {
	return target == domain.ErrRateLimited && e.Code == http.StatusTooManyRequests
}

// ErrorKind classifies a failed purchase.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindConflict
	KindRateLimited
	KindSessionExpired
)

func (k ErrorKind) String() string {
	switch k {
	case KindConflict:
		return "conflict"
	case KindRateLimited:
		return "rate_limited"
	case KindSessionExpired:
		return "session_expired"
	default:
		return "unknown"
	}
}

// conflictMessages are the marketplace replies for listings that are gone for good.
var conflictMessages = []string{
	"You cannot purchase this item because somebody else has already purchased it.",
	"You've already purchased this item.",
}

// Classify maps a purchase failure to its kind. Known messages win over the status code;
// the substring check keeps conflicts recognised if the wording drifts slightly.
func Classify(status int, message string) ErrorKind {
	msg := strings.TrimSpace(message)
	for _, known := range conflictMessages {
		if msg == known {
			return KindConflict
		}
	}
	if strings.Contains(strings.ToLower(msg), "already purchased") {
		return KindConflict
	}

	switch status {
	case http.StatusTooManyRequests:
		return KindRateLimited
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindSessionExpired
	}
	return KindUnknown
}

// PurchaseError is a rejected buy order.
type PurchaseError struct {
	Status  int
	Message string
	Kind    ErrorKind
}

func (e *PurchaseError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("purchase rejected with status %d (%s)", e.Status, e.Kind)
	}
	return fmt.Sprintf("purchase rejected with status %d (%s): %s", e.Status, e.Kind, e.Message)
}

// Unwrap exposes the domain sentinel matching the kind.
func (e *PurchaseError) Unwrap() error {
	switch e.Kind {
	case KindConflict:
		return domain.ErrPurchaseConflict
	case KindRateLimited:
		return domain.ErrRateLimited
	case KindSessionExpired:
		return domain.ErrSessionExpired
	default:
		return nil
	}
}
