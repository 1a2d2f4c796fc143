package search

import "github.com/starford/headstone/internal/models"

// builtin is the curated per-role content used when no catalog file is configured.
var builtin = map[models.Role][]models.SearchEntry{
	models.RoleAdmin: {
		{
			Title:       "New Service Onboarding",
			Description: "Create a new customer and memorial",
			To:          "/admin/onboarding",
			Keywords:    "new service onboarding add customer memorial",
		},
		{
			Title:       "Smith Family Headstone",
			Description: "Memorial record in Greenwood Cemetery",
			To:          "/admin/memorials",
			Keywords:    "memorial smith greenwood maintained",
		},
		{
			Title:       "Sarah Johnson",
			Description: "Customer profile",
			To:          "/admin/customers",
			Keywords:    "customer sarah johnson annual maintenance",
		},
		{
			Title:       "Greenwood Cemetery",
			Description: "Cemetery service location",
			To:          "/admin/cemeteries",
			Keywords:    "cemetery location memorials services",
		},
		{
			Title:       "User Management",
			Description: "Create customer and employee accounts",
			To:          "/admin/users",
			Keywords:    "users create user employee customer account temp password",
		},
	},
	models.RoleEmployee: {
		{
			Title:       "Task Queue",
			Description: "Photo uploads and maintenance checks",
			To:          "/employee/dashboard",
			Keywords:    "tasks uploads maintenance checks crew",
		},
		{
			Title:       "Crew Schedule",
			Description: "Daily route and assignments",
			To:          "/employee/scheduling",
			Keywords:    "schedule route assignments crew",
		},
	},
	models.RoleCustomer: {
		{
			Title:       "Service Status",
			Description: "Plan progress and upcoming visit",
			To:          "/customer/dashboard",
			Keywords:    "service status progress upcoming visit",
		},
		{
			Title:       "My Memorials",
			Description: "Your active memorial records",
			To:          "/customer/memorials",
			Keywords:    "my memorials active records",
		},
		{
			Title:       "Notification Preferences",
			Description: "Email and phone settings",
			To:          "/customer/settings",
			Keywords:    "notifications email phone settings",
		},
	},
}
