// Package session persists the last used role, mock login accounts, the
// active per-kind session and a few remembered UI values in client-local
// key/value storage.
//
// Storage failures never surface: reads fall back to empty or default state
// and writes are logged at debug level and dropped.
package session

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/headstone/internal/kv"
	"github.com/starford/headstone/internal/models"
	"github.com/starford/headstone/internal/roles"
)

// Persisted keys.
const (
	KeyRole             = "hs_role"
	KeyCustomerAccounts = "hs_customer_accounts"
	KeyEmployeeAccounts = "hs_employee_accounts"
	KeyCustomerSession  = "hs_customer_session"
	KeyEmployeeSession  = "hs_employee_session"
	KeyTempPasswords    = "hs_temp_password_queue"
	KeyCalendarDate     = "hs_scheduling_calendar_date"
)

// Topic names what a Change is about.
type Topic string

// Change topics.
const (
	TopicRole     Topic = "role"
	TopicAccounts Topic = "accounts"
	TopicSession  Topic = "session"
	TopicNotices  Topic = "notices"
	TopicCalendar Topic = "calendar"
)

// Change is delivered to subscribers after a successful mutation.
type Change struct {
	Topic Topic              `json:"topic"`
	Kind  models.AccountKind `json:"kind,omitempty"`
	Value string             `json:"value,omitempty"`
}

// Store is the injected application store for role and session state.
type Store struct {
	kv     kv.Store
	logger *slog.Logger
	now    func() time.Time
	tempPW func() string

	mu sync.Mutex

	subsMu sync.RWMutex
	nextID int
	subs   map[int]func(Change)
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for swallowed storage errors.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithPasswordGenerator overrides temporary password generation.
func WithPasswordGenerator(fn func() string) Option {
	return func(s *Store) { s.tempPW = fn }
}

// New creates a Store over the given key/value storage.
func New(store kv.Store, opts ...Option) *Store {
	s := &Store{
		kv:     store,
		logger: slog.Default(),
		now:    time.Now,
		tempPW: TempPassword,
		subs:   make(map[int]func(Change)),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Subscribe registers fn for change notifications and returns a function that
// removes it. fn runs on the mutating goroutine after the store lock is released.
func (s *Store) Subscribe(fn func(Change)) func() {
	s.subsMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.subsMu.Unlock()
	return func() {
		s.subsMu.Lock()
		delete(s.subs, id)
		s.subsMu.Unlock()
	}
}

func (s *Store) emit(changes ...Change) {
	if len(changes) == 0 {
		return
	}
	s.subsMu.RLock()
	fns := make([]func(Change), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subsMu.RUnlock()
	for _, c := range changes {
		for _, fn := range fns {
			fn(c)
		}
	}
}

// PersistedRole returns the stored role if it names a known role, else the default.
func (s *Store) PersistedRole() models.Role {
	v := s.read(KeyRole)
	if roles.Known(models.Role(v)) {
		return models.Role(v)
	}
	return roles.Default
}

// PersistRole stores role. Unchanged values are not rewritten.
func (s *Store) PersistRole(role models.Role) {
	s.mu.Lock()
	prev := s.read(KeyRole)
	if prev == string(role) {
		s.mu.Unlock()
		return
	}
	ok := s.write(KeyRole, string(role))
	s.mu.Unlock()
	if ok {
		s.emit(Change{Topic: TopicRole, Value: string(role)})
	}
}

// read returns the raw value or "" on absence or failure.
func (s *Store) read(key string) string {
	v, _, err := s.kv.Get(key)
	if err != nil {
		s.logger.Debug("session: read failed", slog.String("key", key), slog.String("error", err.Error()))
		return ""
	}
	return v
}

func (s *Store) write(key, value string) bool {
	if err := s.kv.Set(key, value); err != nil {
		s.logger.Debug("session: write failed", slog.String("key", key), slog.String("error", err.Error()))
		return false
	}
	return true
}

func (s *Store) remove(key string) bool {
	if err := s.kv.Delete(key); err != nil {
		s.logger.Debug("session: delete failed", slog.String("key", key), slog.String("error", err.Error()))
		return false
	}
	return true
}

// readJSON decodes key into v. Missing or malformed data leaves v untouched.
func (s *Store) readJSON(key string, v any) {
	raw := s.read(key)
	if raw == "" {
		return
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		s.logger.Debug("session: malformed value", slog.String("key", key), slog.String("error", err.Error()))
	}
}

func (s *Store) writeJSON(key string, v any) bool {
	b, err := json.Marshal(v)
	if err != nil {
		s.logger.Debug("session: encode failed", slog.String("key", key), slog.String("error", err.Error()))
		return false
	}
	return s.write(key, string(b))
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(time.RFC3339)
}
