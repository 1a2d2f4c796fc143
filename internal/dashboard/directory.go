package dashboard

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/starford/headstone/internal/models"
	"github.com/starford/headstone/internal/session"
)

// CustomerRow is one line of the admin customer directory.
type CustomerRow struct {
	Name                string `json:"name"`
	Email               string `json:"email"`
	Memorials           int    `json:"memorials"`
	ActivePlan          string `json:"active_plan"`
	LastContact         string `json:"last_contact"`
	ServiceType         string `json:"service_type"`
	ServiceLocation     string `json:"service_location"`
	LastService         string `json:"last_service"`
	NextService         string `json:"next_service"`
	SubscriptionStatus  string `json:"subscription_status"`
	SubscriptionRenewal string `json:"subscription_renewal"`
	CreatedAtLabel      string `json:"created_at_label"`
	MustResetPassword   bool   `json:"must_reset_password"`
}

// Directory labels.
const (
	StatusActive            = "Active"
	StatusPendingActivation = "Pending Activation"
	DefaultServiceType      = "Initial Restoration"
)

// demoCustomers are always listed, merged with any matching account.
var demoCustomers = []CustomerRow{
	{
		Name:                "Sarah Johnson",
		Email:               "sarah.johnson@example.com",
		Memorials:           2,
		ActivePlan:          "Annual Maintenance",
		LastContact:         "09/15/23",
		ServiceType:         "Headstone Cleaning",
		ServiceLocation:     "Greenwood Cemetery",
		LastService:         "09/12/23",
		NextService:         "10/12/23",
		SubscriptionStatus:  StatusActive,
		SubscriptionRenewal: "12/01/23",
		CreatedAtLabel:      "04/10/23",
	},
}

func displayDate(value, fallback string, loc *time.Location) string {
	if value == "" {
		return fallback
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return fallback
	}
	return t.In(loc).Format("1/2/2006")
}

// BuildDirectory merges the demo customers with customer accounts keyed by
// email and sorts the result by name.
func BuildDirectory(accounts []models.Account, loc *time.Location) []CustomerRow {
	if loc == nil {
		loc = time.Local
	}
	byEmail := make(map[string]CustomerRow, len(demoCustomers)+len(accounts))
	for _, c := range demoCustomers {
		c.Email = session.NormalizeEmail(c.Email)
		byEmail[c.Email] = c
	}

	for _, a := range accounts {
		email := session.NormalizeEmail(a.Email)
		if email == "" {
			continue
		}
		existing := byEmail[email]
		created := displayDate(a.CreatedAt, cmp.Or(existing.CreatedAtLabel, "New"), loc)
		lastContact := displayDate(cmp.Or(a.UpdatedAt, a.CreatedAt), cmp.Or(existing.LastContact, created), loc)
		accountType := a.Extra["serviceType"]

		memorials := existing.Memorials
		if memorials == 0 {
			memorials = 1
		}
		status := cmp.Or(existing.SubscriptionStatus, StatusActive)
		if a.MustResetPassword {
			status = StatusPendingActivation
		}

		byEmail[email] = CustomerRow{
			Name:                cmp.Or(a.Name, existing.Name, email),
			Email:               email,
			Memorials:           memorials,
			ActivePlan:          cmp.Or(accountType, existing.ActivePlan, DefaultServiceType),
			LastContact:         lastContact,
			ServiceType:         cmp.Or(accountType, existing.ServiceType, DefaultServiceType),
			ServiceLocation:     cmp.Or(existing.ServiceLocation, "Pending Assignment"),
			LastService:         cmp.Or(existing.LastService, "Not Started"),
			NextService:         cmp.Or(existing.NextService, "To Be Scheduled"),
			SubscriptionStatus:  status,
			SubscriptionRenewal: cmp.Or(existing.SubscriptionRenewal, created),
			CreatedAtLabel:      created,
			MustResetPassword:   a.MustResetPassword,
		}
	}

	rows := make([]CustomerRow, 0, len(byEmail))
	for _, r := range byEmail {
		rows = append(rows, r)
	}
	slices.SortFunc(rows, func(a, b CustomerRow) int {
		if c := cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)); c != 0 {
			return c
		}
		return cmp.Compare(a.Email, b.Email)
	})
	return rows
}
