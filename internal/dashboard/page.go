package dashboard

import (
	"context"
	"time"

	"github.com/starford/headstone/internal/backend"
	"github.com/starford/headstone/internal/models"
	"github.com/starford/headstone/internal/route"
)

// Page holds the data resources mounted for the current route. Unused
// resources are nil.
type Page struct {
	Route route.State

	Summary     *backend.Resource[backend.DashboardSummary]
	Memorials   *backend.Resource[[]backend.Memorial]
	Customers   *backend.Resource[[]backend.Customer]
	Cemeteries  *backend.Resource[[]backend.Cemetery]
	Services    *backend.Resource[[]backend.SchedulingService]
	Technicians *backend.Resource[[]backend.Technician]
}

// PageView is the JSON snapshot of a mounted page.
type PageView struct {
	Route     route.State    `json:"route"`
	Resources map[string]any `json:"resources"`
	Auth      *AuthGate      `json:"auth,omitempty"`
}

// AuthGate replaces a customer page when nobody is signed in. ResetEmail is
// set while a temporary password waits to be changed.
type AuthGate struct {
	Required   bool   `json:"required"`
	ResetEmail string `json:"reset_email,omitempty"`
}

// ScheduleView is the calendar panel of a page that lists services.
type ScheduleView struct {
	Date        string                      `json:"date"`
	Day         []backend.SchedulingService `json:"day"`
	Unscheduled int                         `json:"unscheduled"`
	Form        *backend.AssignForm         `json:"form,omitempty"`
}

// scheduleFor builds the panel for date. The form is pre-filled from the
// first draft, or the first service when there is none.
func scheduleFor(services []backend.SchedulingService, date string, loc *time.Location) ScheduleView {
	v := ScheduleView{
		Date:        date,
		Day:         backend.ScheduledForDay(services, date, loc),
		Unscheduled: backend.UnscheduledCount(services),
	}
	if s, ok := backend.PreferredService(services); ok {
		f := backend.FormFor(s, loc)
		v.Form = &f
	}
	return v
}

type resourceNeeds struct {
	summary, memorials, customers, cemeteries, services, technicians bool
}

// needsFor lists the resources each page loads on mount.
func needsFor(role models.Role, page string) resourceNeeds {
	switch role {
	case models.RoleAdmin:
		switch page {
		case "dashboard", "reports":
			return resourceNeeds{summary: true}
		case "memorials":
			return resourceNeeds{memorials: true}
		case "customers", "emails":
			return resourceNeeds{customers: true}
		case "cemeteries":
			return resourceNeeds{cemeteries: true}
		case "scheduling":
			return resourceNeeds{services: true, technicians: true, memorials: true}
		}
	case models.RoleEmployee:
		switch page {
		case "dashboard", "scheduling":
			return resourceNeeds{services: true}
		case "memorials":
			return resourceNeeds{memorials: true}
		}
	}
	return resourceNeeds{}
}

// newPage builds and starts the resources state needs. A nil client mounts
// an empty page.
func newPage(state route.State, c *backend.Client) *Page {
	p := &Page{Route: state}
	if c == nil || state.IsLogin() {
		return p
	}
	n := needsFor(state.Role, state.Page)
	if n.summary {
		p.Summary = backend.NewResource(backend.DashboardSummary{}, c.Summary)
	}
	if n.memorials {
		p.Memorials = backend.NewResource([]backend.Memorial{}, c.Memorials)
	}
	if n.customers {
		p.Customers = backend.NewResource([]backend.Customer{}, c.Customers)
	}
	if n.cemeteries {
		p.Cemeteries = backend.NewResource([]backend.Cemetery{}, c.Cemeteries)
	}
	if n.services {
		p.Services = backend.NewResource([]backend.SchedulingService{}, c.Services)
	}
	if n.technicians {
		p.Technicians = backend.NewResource([]backend.Technician{}, c.Technicians)
	}
	return p
}

// start loads every mounted resource.
func (p *Page) start(ctx context.Context) {
	if p.Summary != nil {
		p.Summary.Load(ctx)
	}
	if p.Memorials != nil {
		p.Memorials.Load(ctx)
	}
	if p.Customers != nil {
		p.Customers.Load(ctx)
	}
	if p.Cemeteries != nil {
		p.Cemeteries.Load(ctx)
	}
	if p.Services != nil {
		p.Services.Load(ctx)
	}
	if p.Technicians != nil {
		p.Technicians.Load(ctx)
	}
}

// refreshSchedule reloads what a schedule change can affect.
func (p *Page) refreshSchedule(ctx context.Context) {
	if p.Summary != nil {
		p.Summary.Load(ctx)
	}
	if p.Services != nil {
		p.Services.Load(ctx)
	}
}

func (p *Page) cancel() {
	if p.Summary != nil {
		p.Summary.Cancel()
	}
	if p.Memorials != nil {
		p.Memorials.Cancel()
	}
	if p.Customers != nil {
		p.Customers.Cancel()
	}
	if p.Cemeteries != nil {
		p.Cemeteries.Cancel()
	}
	if p.Services != nil {
		p.Services.Cancel()
	}
	if p.Technicians != nil {
		p.Technicians.Cancel()
	}
}

// View snapshots the page.
func (p *Page) View() PageView {
	v := PageView{Route: p.Route, Resources: map[string]any{}}
	if p.Summary != nil {
		v.Resources["summary"] = p.Summary.State()
	}
	if p.Memorials != nil {
		v.Resources["memorials"] = p.Memorials.State()
	}
	if p.Customers != nil {
		v.Resources["customers"] = p.Customers.State()
	}
	if p.Cemeteries != nil {
		v.Resources["cemeteries"] = p.Cemeteries.State()
	}
	if p.Services != nil {
		v.Resources["services"] = p.Services.State()
	}
	if p.Technicians != nil {
		v.Resources["technicians"] = p.Technicians.State()
	}
	return v
}
