// Package roles holds the static role configuration and per-role route tables.
package roles

import "github.com/starford/headstone/internal/models"

// Default is the role used when nothing valid has been persisted.
const Default = models.RoleAdmin

var configs = map[models.Role]models.RoleConfig{
	models.RoleAdmin: {
		Role:        models.RoleAdmin,
		Label:       "Admin",
		BasePath:    "/admin",
		DefaultPage: "dashboard",
		Nav: []models.NavItem{
			{ID: "dashboard", Label: "Dashboard", To: "/admin/dashboard"},
			{ID: "memorials", Label: "Memorials", To: "/admin/memorials"},
			{ID: "scheduling", Label: "Scheduling", To: "/admin/scheduling"},
			{ID: "users", Label: "Users", To: "/admin/users"},
			{ID: "customers", Label: "Customers", To: "/admin/customers"},
			{ID: "cemeteries", Label: "Cemeteries", To: "/admin/cemeteries"},
			{ID: "archive", Label: "Photos & Archive", To: "/admin/archive"},
			{ID: "emails", Label: "Emails", To: "/admin/emails"},
			{ID: "reports", Label: "Reports", To: "/admin/reports"},
			{ID: "settings", Label: "Settings", To: "/admin/settings"},
		},
		Pages: []string{
			"dashboard", "memorials", "scheduling", "users", "customers", "customerdetail",
			"cemeteries", "archive", "emails", "reports", "settings", "onboarding",
		},
	},
	models.RoleEmployee: {
		Role:        models.RoleEmployee,
		Label:       "Employee",
		BasePath:    "/employee",
		DefaultPage: "dashboard",
		Nav: []models.NavItem{
			{ID: "dashboard", Label: "Dashboard", To: "/employee/dashboard"},
			{ID: "scheduling", Label: "My Schedule", To: "/employee/scheduling"},
			{ID: "memorials", Label: "Memorials", To: "/employee/memorials"},
			{ID: "archive", Label: "Photos & Archive", To: "/employee/archive"},
			{ID: "reports", Label: "Reports", To: "/employee/reports"},
		},
		Pages: []string{"dashboard", "scheduling", "memorials", "archive", "reports"},
	},
	models.RoleCustomer: {
		Role:        models.RoleCustomer,
		Label:       "Customer",
		BasePath:    "/customer",
		DefaultPage: "dashboard",
		Nav: []models.NavItem{
			{ID: "dashboard", Label: "Overview", To: "/customer/dashboard"},
			{ID: "memorials", Label: "My Memorials", To: "/customer/memorials"},
			{ID: "archive", Label: "Photos", To: "/customer/archive"},
			{ID: "settings", Label: "Settings", To: "/customer/settings"},
		},
		Pages: []string{"dashboard", "memorials", "archive", "settings"},
	},
}

// All returns the known roles in menu order.
func All() []models.Role {
	return []models.Role{models.RoleAdmin, models.RoleEmployee, models.RoleCustomer}
}

// Lookup returns the configuration for role.
func Lookup(role models.Role) (models.RoleConfig, bool) {
	c, ok := configs[role]
	return c, ok
}

// Known reports whether role has a configuration.
func Known(role models.Role) bool {
	_, ok := configs[role]
	return ok
}

// MustLookup returns the configuration for role, or the default role's configuration
// when role is unknown.
func MustLookup(role models.Role) models.RoleConfig {
	if c, ok := configs[role]; ok {
		return c
	}
	return configs[Default]
}

// LandingPath returns the canonical path of role's default page.
func LandingPath(role models.Role) string {
	c := MustLookup(role)
	return c.BasePath + "/" + c.DefaultPage
}
