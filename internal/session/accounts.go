package session

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/starford/headstone/internal/apperr"
	"github.com/starford/headstone/internal/models"
)

// MinPasswordLength is the shortest accepted replacement password.
const MinPasswordLength = 8

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const tempAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// TempPassword returns "HS-" followed by four uppercase alphanumerics and a
// number in [100, 999].
func TempPassword() string {
	var b strings.Builder
	b.WriteString("HS-")
	for range 4 {
		b.WriteByte(tempAlphabet[rand.IntN(len(tempAlphabet))])
	}
	fmt.Fprintf(&b, "%d", 100+rand.IntN(900))
	return b.String()
}

// NormalizeEmail trims and lowercases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeKind maps anything other than employee to customer.
func NormalizeKind(kind models.AccountKind) models.AccountKind {
	if kind == models.KindEmployee {
		return models.KindEmployee
	}
	return models.KindCustomer
}

func accountsKey(kind models.AccountKind) string {
	if kind == models.KindEmployee {
		return KeyEmployeeAccounts
	}
	return KeyCustomerAccounts
}

func sessionKey(kind models.AccountKind) string {
	if kind == models.KindEmployee {
		return KeyEmployeeSession
	}
	return KeyCustomerSession
}

// AccountInput is the admin "create user" form.
type AccountInput struct {
	Name  string            `json:"name"`
	Email string            `json:"email"`
	Extra map[string]string `json:"extra,omitempty"`
}

// Validate checks the normalized form. Missing fields are reported before a
// malformed email.
func (in AccountInput) Validate() error {
	if err := validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required.Error("Name and email are required.")),
		validation.Field(&in.Email, validation.Required.Error("Name and email are required.")),
	); err != nil {
		return err
	}
	return validation.ValidateStruct(&in,
		validation.Field(&in.Email, validation.Match(emailPattern).Error("Enter a valid email address.")),
	)
}

// Credential is the result of issuing a temporary password.
type Credential struct {
	Kind              models.AccountKind `json:"userType"`
	Name              string             `json:"name"`
	Email             string             `json:"email"`
	TemporaryPassword string             `json:"tempPassword"`
}

// LoginResult reports the outcome of a successful credential check.
type LoginResult struct {
	Email         string `json:"email"`
	ResetRequired bool   `json:"requiresReset"`
}

// Accounts returns the stored collection for kind. Malformed data reads as empty.
func (s *Store) Accounts(kind models.AccountKind) []models.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accounts(NormalizeKind(kind))
}

func (s *Store) accounts(kind models.AccountKind) []models.Account {
	var out []models.Account
	s.readJSON(accountsKey(kind), &out)
	if out == nil {
		return []models.Account{}
	}
	return out
}

// SetAccounts replaces the collection for kind. If the active session of that
// kind no longer has an account, the session is cleared.
func (s *Store) SetAccounts(kind models.AccountKind, list []models.Account) {
	kind = NormalizeKind(kind)
	s.mu.Lock()
	changes := s.setAccounts(kind, list)
	s.mu.Unlock()
	s.emit(changes...)
}

func (s *Store) setAccounts(kind models.AccountKind, list []models.Account) []Change {
	if list == nil {
		list = []models.Account{}
	}
	var changes []Change
	if s.writeJSON(accountsKey(kind), list) {
		changes = append(changes, Change{Topic: TopicAccounts, Kind: kind})
	}
	if active := s.read(sessionKey(kind)); active != "" && find(list, active) < 0 {
		if s.remove(sessionKey(kind)) {
			changes = append(changes, Change{Topic: TopicSession, Kind: kind})
		}
	}
	return changes
}

func find(list []models.Account, email string) int {
	for i, a := range list {
		if a.Email == email {
			return i
		}
	}
	return -1
}

// CreateOrUpdateAccount issues a temporary password for email. An existing
// account is replaced in place with its creation time kept; otherwise a new
// account is appended. Either way the account must reset its password and a
// notice is queued.
func (s *Store) CreateOrUpdateAccount(kind models.AccountKind, in AccountInput) (Credential, error) {
	kind = NormalizeKind(kind)
	in.Name = strings.TrimSpace(in.Name)
	in.Email = NormalizeEmail(in.Email)
	if err := in.Validate(); err != nil {
		return Credential{}, apperr.FromValidation(err)
	}

	pw := s.tempPW()
	now := s.timestamp()

	s.mu.Lock()
	list := s.accounts(kind)
	next := models.Account{
		Email:             in.Email,
		Name:              in.Name,
		Password:          pw,
		MustResetPassword: true,
		UserType:          kind,
		CreatedAt:         now,
		UpdatedAt:         now,
		Extra:             in.Extra,
	}
	if i := find(list, in.Email); i >= 0 {
		next.CreatedAt = list[i].CreatedAt
		list[i] = next
	} else {
		list = append(list, next)
	}
	changes := s.setAccounts(kind, list)
	if s.queueNotice(models.TempPasswordNotice{
		Email:             in.Email,
		Name:              in.Name,
		TemporaryPassword: pw,
		UserType:          kind,
	}) {
		changes = append(changes, Change{Topic: TopicNotices, Kind: kind})
	}
	s.mu.Unlock()
	s.emit(changes...)

	s.logger.Info("session: temporary password issued",
		slog.String("kind", string(kind)),
		slog.String("email", in.Email))

	return Credential{Kind: kind, Name: in.Name, Email: in.Email, TemporaryPassword: pw}, nil
}

// Login checks credentials. An account that must reset its password never gets
// a session here; the result carries ResetRequired instead.
func (s *Store) Login(kind models.AccountKind, email, password string) (LoginResult, error) {
	kind = NormalizeKind(kind)
	email = NormalizeEmail(email)

	s.mu.Lock()
	list := s.accounts(kind)
	i := find(list, email)
	if i < 0 || list[i].Password != password {
		s.mu.Unlock()
		return LoginResult{}, apperr.ErrInvalidCredentials
	}
	if list[i].MustResetPassword {
		s.mu.Unlock()
		return LoginResult{Email: email, ResetRequired: true}, nil
	}
	changed := s.write(sessionKey(kind), email)
	s.mu.Unlock()
	if changed {
		s.emit(Change{Topic: TopicSession, Kind: kind, Value: email})
	}
	return LoginResult{Email: email}, nil
}

// ResetPassword replaces the password of an existing account, clears its
// must-reset flag and establishes the session.
func (s *Store) ResetPassword(kind models.AccountKind, email, newPassword string) error {
	kind = NormalizeKind(kind)
	email = NormalizeEmail(email)
	if len(newPassword) < MinPasswordLength {
		return apperr.Invalid(fmt.Sprintf("Password must be at least %d characters.", MinPasswordLength))
	}

	s.mu.Lock()
	list := s.accounts(kind)
	i := find(list, email)
	if i < 0 {
		s.mu.Unlock()
		return fmt.Errorf("session: reset %s: %w", email, apperr.ErrNotFound)
	}
	list[i].Password = newPassword
	list[i].MustResetPassword = false
	list[i].UpdatedAt = s.timestamp()
	changes := s.setAccounts(kind, list)
	if s.write(sessionKey(kind), email) {
		changes = append(changes, Change{Topic: TopicSession, Kind: kind, Value: email})
	}
	s.mu.Unlock()
	s.emit(changes...)
	return nil
}

// Logout clears the session of kind.
func (s *Store) Logout(kind models.AccountKind) {
	kind = NormalizeKind(kind)
	s.mu.Lock()
	ok := s.remove(sessionKey(kind))
	s.mu.Unlock()
	if ok {
		s.emit(Change{Topic: TopicSession, Kind: kind})
	}
}

// Session returns the signed-in email for kind, or "" when logged out. A
// session whose account no longer exists is cleared and reads as "".
func (s *Store) Session(kind models.AccountKind) string {
	kind = NormalizeKind(kind)
	s.mu.Lock()
	email := s.read(sessionKey(kind))
	if email == "" {
		s.mu.Unlock()
		return ""
	}
	if find(s.accounts(kind), email) >= 0 {
		s.mu.Unlock()
		return email
	}
	cleared := s.remove(sessionKey(kind))
	s.mu.Unlock()
	if cleared {
		s.emit(Change{Topic: TopicSession, Kind: kind})
	}
	return ""
}
