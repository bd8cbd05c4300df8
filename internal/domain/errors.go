package domain

import "errors"

var (
	// ErrRateLimited marks marketplace responses asking the client to slow down.
	ErrRateLimited = errors.New("rate limited")
	// ErrPurchaseConflict marks listings that can no longer be bought by anyone.
	ErrPurchaseConflict = errors.New("listing already purchased")
	// ErrSessionExpired marks requests rejected because the web session is no longer valid.
	ErrSessionExpired = errors.New("session expired")
	// ErrTaskNotFound is returned when a task id does not resolve.
	ErrTaskNotFound = errors.New("task not found")
)
