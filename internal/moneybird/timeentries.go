package moneybird

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sadopc/timebird/internal/model"
)

// timestampLayout is the UTC form Moneybird accepts for started_at/ended_at.
const timestampLayout = "2006-01-02T15:04:05.000Z"

type contact struct {
	ID          string `json:"id"`
	CompanyName string `json:"company_name"`
	Firstname   string `json:"firstname"`
	Lastname    string `json:"lastname"`
}

func (c *contact) name() string {
	if c == nil {
		return ""
	}
	if c.CompanyName != "" {
		return c.CompanyName
	}
	return strings.TrimSpace(c.Firstname + " " + c.Lastname)
}

type project struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type timeEntry struct {
	ID          string   `json:"id"`
	ContactID   string   `json:"contact_id"`
	ProjectID   string   `json:"project_id"`
	UserID      string   `json:"user_id"`
	Description string   `json:"description"`
	StartedAt   string   `json:"started_at"`
	EndedAt     string   `json:"ended_at"`
	Billable    *bool    `json:"billable"`
	Contact     *contact `json:"contact"`
	Project     *project `json:"project"`
}

// timeEntryInput is the body of create and update calls. Only non-nil fields
// are serialized.
type timeEntryInput struct {
	ContactID   *string `json:"contact_id,omitempty"`
	ProjectID   *string `json:"project_id,omitempty"`
	UserID      *string `json:"user_id,omitempty"`
	Description *string `json:"description,omitempty"`
	StartedAt   *string `json:"started_at,omitempty"`
	EndedAt     *string `json:"ended_at,omitempty"`
	Billable    *bool   `json:"billable,omitempty"`
}

type timeEntryEnvelope struct {
	TimeEntry timeEntryInput `json:"time_entry"`
}

func formatTimestamp(t time.Time) *string {
	s := t.UTC().Format(timestampLayout)
	return &s
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func inputFromEntry(e model.TimeEntry) timeEntryInput {
	return timeEntryInput{
		ContactID:   nonEmpty(e.Contact.ID),
		ProjectID:   nonEmpty(e.Project.ID),
		UserID:      nonEmpty(e.UserID),
		Description: &e.Description,
		StartedAt:   formatTimestamp(e.StartedAt),
		EndedAt:     formatTimestamp(e.EndedAt),
		Billable:    e.Billable,
	}
}

func inputFromPatch(p model.EntryPatch) timeEntryInput {
	in := timeEntryInput{
		ContactID:   p.ContactID,
		ProjectID:   p.ProjectID,
		UserID:      p.UserID,
		Description: p.Description,
		Billable:    p.Billable,
	}
	if p.StartedAt != nil {
		in.StartedAt = formatTimestamp(*p.StartedAt)
	}
	if p.EndedAt != nil {
		in.EndedAt = formatTimestamp(*p.EndedAt)
	}
	return in
}

func parseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s)
}

// toModel converts the wire shape. fallback supplies names the server left
// out, such as on create responses that only echo ids.
func (c *Client) toModel(admin string, te timeEntry, fallback model.TimeEntry) (model.TimeEntry, error) {
	started, err := parseTimestamp(te.StartedAt)
	if err != nil {
		return model.TimeEntry{}, fmt.Errorf("parse started_at of %s: %w", te.ID, err)
	}
	ended, err := parseTimestamp(te.EndedAt)
	if err != nil {
		return model.TimeEntry{}, fmt.Errorf("parse ended_at of %s: %w", te.ID, err)
	}
	if ended.Before(started) {
		c.log.Warn("time entry ends before it starts, showing 0:00", "id", te.ID, "started_at", te.StartedAt, "ended_at", te.EndedAt)
	}

	e := model.TimeEntry{
		ID:          te.ID,
		Description: te.Description,
		Contact:     model.Ref{ID: te.ContactID, Name: te.Contact.name()},
		Project:     model.Ref{ID: te.ProjectID},
		StartedAt:   started,
		EndedAt:     ended,
		Billable:    te.Billable,
		UserID:      te.UserID,
	}
	if te.Contact != nil && e.Contact.ID == "" {
		e.Contact.ID = te.Contact.ID
	}
	if te.Project != nil {
		e.Project.Name = te.Project.Name
		if e.Project.ID == "" {
			e.Project.ID = te.Project.ID
		}
	}
	if e.Contact.Name == "" && e.Contact.ID == fallback.Contact.ID {
		e.Contact.Name = fallback.Contact.Name
	}
	if e.Project.Name == "" && e.Project.ID == fallback.Project.ID {
		e.Project.Name = fallback.Project.Name
	}
	if e.ID != "" {
		e.URL = c.entryURL(admin, e.ID)
	}
	return e, nil
}

// ListTimeEntries returns the most recent perPage entries in the order the
// server returns them.
func (c *Client) ListTimeEntries(ctx context.Context, creds model.Credentials, perPage int) ([]model.TimeEntry, error) {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	params := url.Values{}
	params.Set("per_page", strconv.Itoa(perPage))

	r, err := c.getRequest(ctx, creds, "time_entries.json", params)
	if err != nil {
		return nil, fmt.Errorf("list time entries: %w", err)
	}

	var wire []timeEntry
	if err := json.Unmarshal(r.Body, &wire); err != nil {
		return nil, fmt.Errorf("json.Unmarshal: %w", err)
	}

	entries := make([]model.TimeEntry, 0, len(wire))
	for _, te := range wire {
		e, err := c.toModel(creds.AdministrationID, te, model.TimeEntry{})
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// CreateTimeEntry submits e and returns the entry as stored by the server.
func (c *Client) CreateTimeEntry(ctx context.Context, creds model.Credentials, e model.TimeEntry) (model.TimeEntry, error) {
	if e.UserID == "" {
		e.UserID = creds.UserID
	}
	body, err := json.Marshal(timeEntryEnvelope{TimeEntry: inputFromEntry(e)})
	if err != nil {
		return model.TimeEntry{}, fmt.Errorf("json.Marshal: %w", err)
	}

	r, err := c.postRequest(ctx, creds, "time_entries.json", body)
	if err != nil {
		return model.TimeEntry{}, fmt.Errorf("create time entry: %w", err)
	}

	var te timeEntry
	if err := json.Unmarshal(r.Body, &te); err != nil {
		return model.TimeEntry{}, fmt.Errorf("json.Unmarshal: %w", err)
	}
	return c.toModel(creds.AdministrationID, te, e)
}

// UpdateTimeEntry sends only the fields set in patch.
func (c *Client) UpdateTimeEntry(ctx context.Context, creds model.Credentials, id string, patch model.EntryPatch) (model.TimeEntry, error) {
	body, err := json.Marshal(timeEntryEnvelope{TimeEntry: inputFromPatch(patch)})
	if err != nil {
		return model.TimeEntry{}, fmt.Errorf("json.Marshal: %w", err)
	}

	path := "time_entries/" + url.PathEscape(id) + ".json"
	r, err := c.patchRequest(ctx, creds, path, body)
	if err != nil {
		return model.TimeEntry{}, fmt.Errorf("update time entry %s: %w", id, err)
	}

	var te timeEntry
	if err := json.Unmarshal(r.Body, &te); err != nil {
		return model.TimeEntry{}, fmt.Errorf("json.Unmarshal: %w", err)
	}
	return c.toModel(creds.AdministrationID, te, model.TimeEntry{})
}
