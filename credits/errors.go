package credits

import "github.com/pkg/errors"

// Local validation and protocol errors. All are resolved before any network
// request is made, except ErrParentTimeout which marks a parent round-trip
// that never returned (distinct from a network failure: no HTTP request was
// involved).
var (
	ErrNotAuthenticated       = errors.New("not authenticated")
	ErrInvalidAmount          = errors.New("amount must be positive")
	ErrInsufficientBalance    = errors.New("insufficient balance")
	ErrNoOrganizationSelected = errors.New("no organization selected")
	ErrNoOrganizations        = errors.New("user has no organizations")
	ErrOrganizationNotFound   = errors.New("organization not found")
	ErrMissingUserID          = errors.New("no user id available")
	ErrNotEmbedded            = errors.New("not in embedded mode")
	ErrParentTimeout          = errors.New("parent response timeout")
	ErrDestroyed              = errors.New("client destroyed")
)
