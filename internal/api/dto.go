package api

import (
	"github.com/starford/headstone/internal/geo"
	"github.com/starford/headstone/internal/models"
	"github.com/starford/headstone/internal/session"
)

// NavigateRequest asks the router to move to Path.
type NavigateRequest struct {
	Path string `json:"path" example:"/admin/scheduling" validate:"required"`
}

// LocationRequest replaces the URL fragment as if the user edited it.
type LocationRequest struct {
	Fragment string `json:"fragment" example:"#/employee/dashboard" validate:"required"`
}

// CredentialsRequest carries an email and password.
type CredentialsRequest struct {
	Email    string `json:"email" example:"sarah@example.com" validate:"required"`
	Password string `json:"password" example:"HS-AB12345" validate:"required"`
}

// SignInRequest is the login screen form.
type SignInRequest struct {
	Role     models.Role `json:"role" example:"customer"`
	Email    string      `json:"email"`
	Password string      `json:"password"`
}

// TestingViewRequest picks the login screen or a role's landing page.
type TestingViewRequest struct {
	View string `json:"view" example:"customer"`
}

// SessionResponse reports the signed-in email of an account kind.
type SessionResponse struct {
	Kind  models.AccountKind `json:"kind" example:"customer"`
	Email string             `json:"email,omitempty" example:"sarah@example.com"`
}

// CalendarDateRequest sets the remembered calendar day.
type CalendarDateRequest struct {
	Date string `json:"date" example:"2024-05-03" validate:"required"`
}

// CalendarDateResponse is the remembered calendar day.
type CalendarDateResponse struct {
	Date string `json:"date" example:"2024-05-03"`
}

// SelectCustomerRequest selects a directory row by email.
type SelectCustomerRequest struct {
	Email string `json:"email" example:"sarah@example.com" validate:"required"`
}

// SearchResponse wraps ranked search entries.
type SearchResponse struct {
	Results []models.SearchEntry `json:"results" validate:"required"`
}

// AccountListResponse wraps a stored account collection.
type AccountListResponse struct {
	Accounts []models.Account `json:"accounts" validate:"required"`
}

// NoticeListResponse wraps the temporary password notices, newest first.
type NoticeListResponse struct {
	Notices []models.TempPasswordNotice `json:"notices" validate:"required"`
}

// CredentialResponse is returned when a temporary password is issued.
type CredentialResponse = session.Credential

// CoordinateResponse is a parsed GPS pair.
type CoordinateResponse = geo.Point
