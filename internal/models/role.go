// Package models defines the domain types shared across the dashboard.
package models

// Role identifies one of the dashboard audiences.
type Role string

// Known roles.
const (
	RoleAdmin    Role = "admin"
	RoleEmployee Role = "employee"
	RoleCustomer Role = "customer"
)

// NavItem is a single entry in a role's navigation menu.
type NavItem struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	To    string `json:"to"`
}

// RoleConfig describes a role's label, URL base, landing page, menu and routable pages.
// Values are defined once at start-up and never mutated.
type RoleConfig struct {
	Role        Role      `json:"role"`
	Label       string    `json:"label"`
	BasePath    string    `json:"base_path"`
	DefaultPage string    `json:"default_page"`
	Nav         []NavItem `json:"nav"`
	Pages       []string  `json:"pages"`
}

// HasPage reports whether page is routable for the role.
func (c RoleConfig) HasPage(page string) bool {
	for _, p := range c.Pages {
		if p == page {
			return true
		}
	}
	return false
}
