// Package entries holds the in-memory list of recent time entries and the
// credentials used to reach Moneybird, and orchestrates every change to
// them.
package entries

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/sadopc/timebird/internal/model"
	"github.com/sadopc/timebird/internal/timer"
)

// Keys under which credentials are persisted.
const (
	KeyAPIToken         = "apiToken"
	KeyAdministrationID = "administrationId"
	KeyUserID           = "userId"
)

const DefaultPageSize = 20

// CredentialStore persists string settings. Values passed to Set are only
// durable after Save; Discard drops a staged value that must not be saved.
type CredentialStore interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Save() error
	Discard(key string)
}

// Remote is the time entry service.
type Remote interface {
	ListTimeEntries(ctx context.Context, creds model.Credentials, perPage int) ([]model.TimeEntry, error)
	CreateTimeEntry(ctx context.Context, creds model.Credentials, e model.TimeEntry) (model.TimeEntry, error)
	UpdateTimeEntry(ctx context.Context, creds model.Credentials, id string, patch model.EntryPatch) (model.TimeEntry, error)
	ListUsers(ctx context.Context, creds model.Credentials) ([]model.User, error)
}

// Timer is the part of the stopwatch needed to save its session.
type Timer interface {
	Snapshot() timer.Session
	Reset()
}

// State is a copy of everything a view needs to render.
type State struct {
	Credentials model.Credentials
	Entries     []model.TimeEntry
	Loading     bool
	Error       string
	Initialized bool
}

type Option func(*Store)

func WithPageSize(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Store is safe for concurrent use, but overlapping operations are not
// ordered: a slow fetch that completes after a create replaces the list
// with whatever it received.
type Store struct {
	settings CredentialStore
	remote   Remote
	log      *slog.Logger
	now      func() time.Time

	mu          sync.Mutex
	state       State
	initStarted bool
	pageSize    int
	subscribers []func(State)
}

func New(settings CredentialStore, remote Remote, opts ...Option) *Store {
	s := &Store{
		settings: settings,
		remote:   remote,
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:      time.Now,
		pageSize: DefaultPageSize,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Subscribe registers fn to receive a snapshot after every state change.
// fn runs on the goroutine that made the change.
func (s *Store) Subscribe(fn func(State)) {
	s.mu.Lock()
	s.subscribers = append(s.subscribers, fn)
	s.mu.Unlock()
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() State {
	st := s.state
	st.Entries = append([]model.TimeEntry(nil), s.state.Entries...)
	return st
}

// SetPageSize changes how many entries FetchTimeEntries asks for.
func (s *Store) SetPageSize(n int) {
	if n <= 0 {
		n = DefaultPageSize
	}
	s.mu.Lock()
	s.pageSize = n
	s.mu.Unlock()
}

func (s *Store) update(fn func(*State)) {
	s.mu.Lock()
	fn(&s.state)
	snap := s.snapshotLocked()
	subs := slices.Clone(s.subscribers)
	s.mu.Unlock()

	for _, sub := range subs {
		sub(snap)
	}
}

func (s *Store) setError(msg string) {
	s.update(func(st *State) { st.Error = msg })
}

// Initialize loads the stored credentials and, when they are complete,
// fetches the latest entries. Only the first call does anything.
func (s *Store) Initialize(ctx context.Context) error {
	s.mu.Lock()
	if s.initStarted {
		s.mu.Unlock()
		return nil
	}
	s.initStarted = true
	s.mu.Unlock()

	creds, err := s.loadCredentials()
	if err != nil {
		s.log.Error("load settings", "err", err)
		s.update(func(st *State) {
			st.Error = msgLoadSettings
			st.Initialized = true
		})
		return fmt.Errorf("load settings: %w", err)
	}

	s.update(func(st *State) {
		st.Credentials = creds
		st.Initialized = true
	})
	s.log.Info("settings loaded", "configured", creds.Configured(), "user", creds.UserID != "")

	if creds.Configured() {
		return s.FetchTimeEntries(ctx)
	}
	return nil
}

func (s *Store) loadCredentials() (model.Credentials, error) {
	var c model.Credentials
	for _, f := range []struct {
		key string
		dst *string
	}{
		{KeyAPIToken, &c.APIToken},
		{KeyAdministrationID, &c.AdministrationID},
		{KeyUserID, &c.UserID},
	} {
		v, _, err := s.settings.Get(f.key)
		if err != nil {
			return model.Credentials{}, err
		}
		*f.dst = v
	}
	return c, nil
}

// SetAPIToken persists token and then updates memory.
func (s *Store) SetAPIToken(token string) error {
	return s.persist(KeyAPIToken, token, msgSaveToken, func(c *model.Credentials) { c.APIToken = token })
}

func (s *Store) SetAdministrationID(id string) error {
	return s.persist(KeyAdministrationID, id, msgSaveAdmin, func(c *model.Credentials) { c.AdministrationID = id })
}

func (s *Store) SetUserID(id string) error {
	return s.persist(KeyUserID, id, msgSaveUser, func(c *model.Credentials) { c.UserID = id })
}

// persist writes one credential. Memory only changes after Save succeeds,
// and a value that failed to save is unstaged so a later Save cannot
// write it behind memory's back.
func (s *Store) persist(key, value, failMsg string, apply func(*model.Credentials)) error {
	err := s.settings.Set(key, value)
	if err == nil {
		err = s.settings.Save()
	}
	if err != nil {
		s.settings.Discard(key)
		s.log.Error("save setting", "key", key, "err", err)
		s.setError(failMsg)
		return fmt.Errorf("%w: %s: %w", ErrPersist, key, err)
	}
	s.update(func(st *State) { apply(&st.Credentials) })
	return nil
}

// SetCredentials saves all three values in order and stops at the first
// failure. Values saved before the failure stay saved.
func (s *Store) SetCredentials(c model.Credentials) error {
	if err := s.SetAPIToken(c.APIToken); err != nil {
		return err
	}
	if err := s.SetAdministrationID(c.AdministrationID); err != nil {
		return err
	}
	return s.SetUserID(c.UserID)
}

// ResetCredentials clears every stored credential and the loaded entries.
func (s *Store) ResetCredentials() error {
	if err := s.SetCredentials(model.Credentials{}); err != nil {
		return err
	}
	s.update(func(st *State) {
		st.Entries = nil
		st.Error = ""
	})
	return nil
}

// configured returns the current credentials, or records the missing
// configuration error.
func (s *Store) configured() (model.Credentials, int, error) {
	s.mu.Lock()
	creds := s.state.Credentials
	pageSize := s.pageSize
	s.mu.Unlock()

	if !creds.Configured() {
		s.setError(msgNotConfigured)
		return creds, 0, ErrNotConfigured
	}
	return creds, pageSize, nil
}

func (s *Store) begin() {
	s.update(func(st *State) {
		st.Loading = true
		st.Error = ""
	})
}

func (s *Store) fail(msg string, err error) error {
	s.update(func(st *State) {
		st.Loading = false
		st.Error = msg
	})
	return fmt.Errorf("%w: %w", ErrRemote, err)
}

// FetchTimeEntries replaces the list with the latest page from the remote
// service. On failure the list is left as it was.
func (s *Store) FetchTimeEntries(ctx context.Context) error {
	creds, pageSize, err := s.configured()
	if err != nil {
		return err
	}

	s.begin()
	list, err := s.remote.ListTimeEntries(ctx, creds, pageSize)
	if err != nil {
		s.log.Error("fetch time entries", "err", err)
		return s.fail(msgFetchEntries, err)
	}

	s.update(func(st *State) {
		st.Entries = list
		st.Loading = false
	})
	s.log.Debug("time entries fetched", "count", len(list))
	return nil
}

// AddTimeEntry validates e, submits it and prepends the server's copy.
func (s *Store) AddTimeEntry(ctx context.Context, e model.TimeEntry) (model.TimeEntry, error) {
	creds, _, err := s.configured()
	if err != nil {
		return model.TimeEntry{}, err
	}
	if err := e.Validate(); err != nil {
		s.setError(sentence(err.Error()))
		return model.TimeEntry{}, fmt.Errorf("%w: %w", ErrInvalidEntry, err)
	}

	s.begin()
	created, err := s.remote.CreateTimeEntry(ctx, creds, e)
	if err != nil {
		s.log.Error("create time entry", "err", err)
		return model.TimeEntry{}, s.fail(msgCreateEntry, err)
	}

	s.update(func(st *State) {
		st.Entries = append([]model.TimeEntry{created}, st.Entries...)
		st.Loading = false
	})
	s.log.Info("time entry created", "id", created.ID, "duration", created.Duration())
	return created, nil
}

// UpdateTimeEntry sends patch for id. There is no local existence check;
// when id is not in the list the remote result is dropped.
func (s *Store) UpdateTimeEntry(ctx context.Context, id string, patch model.EntryPatch) (model.TimeEntry, error) {
	creds, _, err := s.configured()
	if err != nil {
		return model.TimeEntry{}, err
	}

	s.begin()
	updated, err := s.remote.UpdateTimeEntry(ctx, creds, id, patch)
	if err != nil {
		s.log.Error("update time entry", "id", id, "err", err)
		return model.TimeEntry{}, s.fail(msgUpdateEntry, err)
	}

	s.update(func(st *State) {
		for i := range st.Entries {
			if st.Entries[i].ID == id {
				st.Entries[i] = updated
			}
		}
		st.Loading = false
	})
	return updated, nil
}

// ListUsers returns the users of the configured administration. creds
// overrides the stored credentials when it is configured, so a settings
// form can look up users before saving.
func (s *Store) ListUsers(ctx context.Context, creds model.Credentials) ([]model.User, error) {
	if !creds.Configured() {
		var err error
		if creds, _, err = s.configured(); err != nil {
			return nil, err
		}
	}
	users, err := s.remote.ListUsers(ctx, creds)
	if err != nil {
		s.log.Warn("list users", "err", err)
		return nil, fmt.Errorf("%w: %w", ErrRemote, err)
	}
	return users, nil
}

// SaveFromTimer submits draft with the times of the timer session and
// resets the timer once the entry is stored. startDate and endDate may be
// zero to mean today.
func (s *Store) SaveFromTimer(ctx context.Context, t Timer, draft model.TimeEntry, startDate, endDate time.Time) (bool, error) {
	started, ended, err := t.Snapshot().Span(startDate, endDate, s.now())
	if err != nil {
		s.setError(sentence(err.Error()))
		return false, fmt.Errorf("%w: %w", ErrInvalidEntry, err)
	}
	draft.StartedAt, draft.EndedAt = started, ended

	if _, err := s.AddTimeEntry(ctx, draft); err != nil {
		return false, err
	}
	t.Reset()
	return true, nil
}

// sentence upper-cases the first letter of msg.
func sentence(msg string) string {
	r, size := utf8.DecodeRuneInString(msg)
	if r == utf8.RuneError {
		return msg
	}
	return string(unicode.ToUpper(r)) + msg[size:]
}
