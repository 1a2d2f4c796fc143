package models

// AccountKind selects one of the account collections.
type AccountKind string

// Account kinds.
const (
	KindCustomer AccountKind = "customer"
	KindEmployee AccountKind = "employee"
)

// Valid reports whether k names a known account collection.
func (k AccountKind) Valid() bool {
	return k == KindCustomer || k == KindEmployee
}

// Account is a mock login credential persisted in client-local storage.
// Passwords are stored in plaintext; the mock store is not a security boundary.
type Account struct {
	Email             string            `json:"email"`
	Name              string            `json:"name"`
	Password          string            `json:"password"`
	MustResetPassword bool              `json:"mustResetPassword"`
	UserType          AccountKind       `json:"userType"`
	CreatedAt         string            `json:"createdAt"`
	UpdatedAt         string            `json:"updatedAt"`
	Extra             map[string]string `json:"extra,omitempty"`
}

// TempPasswordNotice records that a temporary password was issued.
type TempPasswordNotice struct {
	ID                string      `json:"id"`
	Email             string      `json:"email"`
	Name              string      `json:"name"`
	TemporaryPassword string      `json:"temporaryPassword"`
	UserType          AccountKind `json:"userType"`
	CreatedAt         string      `json:"createdAt"`
}
