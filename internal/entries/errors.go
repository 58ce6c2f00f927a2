package entries

import "errors"

var (
	ErrNotConfigured = errors.New("API token and administration ID are required")
	ErrPersist       = errors.New("persist credentials")
	ErrRemote        = errors.New("remote call failed")
	ErrInvalidEntry  = errors.New("invalid time entry")
)

// Messages stored in State.Error.
const (
	msgLoadSettings  = "Failed to load settings"
	msgSaveToken     = "Failed to save API token"
	msgSaveAdmin     = "Failed to save administration ID"
	msgSaveUser      = "Failed to save user ID"
	msgNotConfigured = "API token and administration ID are required"
	msgFetchEntries  = "Failed to fetch time entries"
	msgCreateEntry   = "Failed to create time entry"
	msgUpdateEntry   = "Failed to update time entry"
)
