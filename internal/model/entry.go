package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrMissingDescription = errors.New("description is required")
	ErrMissingContact     = errors.New("contact information is required")
	ErrMissingProject     = errors.New("project information is required")
	ErrMissingTimes       = errors.New("start and end times are required")
	ErrEndBeforeStart     = errors.New("end time is before start time")
)

// Ref points at a remote contact or project by id, with a display name.
type Ref struct {
	ID   string
	Name string
}

type TimeEntry struct {
	ID          string
	Description string
	Contact     Ref
	Project     Ref
	StartedAt   time.Time
	EndedAt     time.Time
	Billable    *bool
	UserID      string
	URL         string
}

// Duration is the H:MM string derived from StartedAt and EndedAt.
func (e TimeEntry) Duration() string {
	return FormatDuration(e.EndedAt.Sub(e.StartedAt))
}

// Validate checks the invariants an entry must satisfy before it is
// submitted: description, contact id and project id set, and a start that
// does not come after the end.
func (e TimeEntry) Validate() error {
	if strings.TrimSpace(e.Description) == "" {
		return ErrMissingDescription
	}
	if e.Contact.ID == "" {
		return ErrMissingContact
	}
	if e.Project.ID == "" {
		return ErrMissingProject
	}
	if e.StartedAt.IsZero() || e.EndedAt.IsZero() {
		return ErrMissingTimes
	}
	if e.StartedAt.After(e.EndedAt) {
		return ErrEndBeforeStart
	}
	return nil
}

// EntryPatch is a partial update. Nil fields are left untouched.
type EntryPatch struct {
	Description *string
	ContactID   *string
	ProjectID   *string
	UserID      *string
	StartedAt   *time.Time
	EndedAt     *time.Time
	Billable    *bool
}

func (p EntryPatch) Empty() bool {
	return p.Description == nil && p.ContactID == nil && p.ProjectID == nil &&
		p.UserID == nil && p.StartedAt == nil && p.EndedAt == nil && p.Billable == nil
}

// Credentials are the three locally persisted settings.
type Credentials struct {
	APIToken         string
	AdministrationID string
	UserID           string
}

// Configured reports whether remote calls can be attempted.
func (c Credentials) Configured() bool {
	return c.APIToken != "" && c.AdministrationID != ""
}

type User struct {
	ID    string
	Name  string
	Email string
}

// FormatDuration renders d as H:MM, floored to whole minutes. Negative
// durations render as 0:00.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	mins := int64(d / time.Minute)
	return fmt.Sprintf("%d:%02d", mins/60, mins%60)
}
