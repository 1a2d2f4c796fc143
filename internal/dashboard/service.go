// Package dashboard coordinates routing, the session store, search and the
// backend client into the operations the HTTP API and tools expose.
package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/headstone/internal/apperr"
	"github.com/starford/headstone/internal/backend"
	"github.com/starford/headstone/internal/hashrouter"
	"github.com/starford/headstone/internal/models"
	"github.com/starford/headstone/internal/roles"
	"github.com/starford/headstone/internal/route"
	"github.com/starford/headstone/internal/search"
	"github.com/starford/headstone/internal/session"
	"github.com/starford/headstone/internal/sse"
)

// ErrBackendDisabled is returned by schedule operations when no backend is configured.
var ErrBackendDisabled = errors.New("backend is not configured")

// TestingViewLogin selects the login screen in SetTestingView. Any other
// view names a role.
const TestingViewLogin = "login"

// Paths the service redirects to.
const (
	customersPath      = "/admin/customers"
	customerDetailPath = "/admin/customerdetail"
)

// Publisher receives change notifications. *sse.Broker implements it.
type Publisher interface {
	Publish(sse.Event)
	PublishScheduleEvent(sse.ScheduleChange)
}

type nopPublisher struct{}

func (nopPublisher) Publish(sse.Event)                       {}
func (nopPublisher) PublishScheduleEvent(sse.ScheduleChange) {}

// Deps are the collaborators of a Service. Client and Publisher are optional.
type Deps struct {
	Store     *session.Store
	Navigator *hashrouter.Navigator
	Index     *search.Index
	Client    *backend.Client
	Publisher Publisher
	Logger    *slog.Logger
	Location  *time.Location
}

// Service is the application context threaded through the API.
type Service struct {
	store  *session.Store
	nav    *hashrouter.Navigator
	index  *search.Index
	client *backend.Client
	pub    Publisher
	logger *slog.Logger
	loc    *time.Location

	mu       sync.Mutex
	ctx      context.Context
	page     *Page
	selected string

	// resetEmail is the customer whose temporary password was accepted and
	// who still has to choose a new one.
	resetEmail string
	// bypassAuth lets the customer testing view open without a session.
	bypassAuth bool
}

// NewService wires the collaborators and registers for route changes.
func NewService(d Deps) *Service {
	s := &Service{
		store:  d.Store,
		nav:    d.Navigator,
		index:  d.Index,
		client: d.Client,
		pub:    d.Publisher,
		logger: d.Logger,
		loc:    d.Location,
		ctx:    context.Background(),
	}
	if s.pub == nil {
		s.pub = nopPublisher{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.index == nil {
		s.index = search.New()
	}
	s.nav.OnChange(s.onRoute)
	return s
}

// Run forwards store changes to the publisher until ctx is done, then
// unmounts the current page.
func (s *Service) Run(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	unsubscribe := s.store.Subscribe(s.onStoreChange)
	defer unsubscribe()

	<-ctx.Done()

	s.mu.Lock()
	if s.page != nil {
		s.page.cancel()
	}
	s.mu.Unlock()
	return nil
}

func (s *Service) onStoreChange(c session.Change) {
	typ := ""
	switch c.Topic {
	case session.TopicRole:
		typ = sse.TypeRoleChanged
	case session.TopicAccounts:
		typ = sse.TypeAccountsChanged
	case session.TopicSession:
		typ = sse.TypeSessionChanged
	case session.TopicNotices:
		typ = sse.TypeNoticesChanged
	case session.TopicCalendar:
		typ = sse.TypeCalendarChanged
	default:
		return
	}
	s.pub.Publish(sse.Event{Type: typ, Data: c})
}

// onRoute mounts the page for state and announces it.
func (s *Service) onRoute(state route.State) {
	s.mu.Lock()
	if s.page != nil {
		s.page.cancel()
	}
	if state.IsLogin() || state.Role != models.RoleCustomer {
		s.bypassAuth = false
	}
	p := newPage(state, s.client)
	if p.Services != nil {
		p.Services.OnUpdate(s.syncCalendar)
	}
	s.page = p
	ctx := s.ctx
	s.mu.Unlock()

	p.start(ctx)
	s.logger.Debug("dashboard: page mounted",
		slog.String("role", string(state.Role)),
		slog.String("page", state.Page))
	s.pub.Publish(sse.Event{Type: sse.TypeRouteChanged, Data: state})

	if state.Role == models.RoleAdmin && state.Page == "customerdetail" {
		s.SelectedCustomer()
	}
}

// syncCalendar moves the remembered calendar date to a day with work when
// the current one has none.
func (s *Service) syncCalendar(st backend.State[[]backend.SchedulingService]) {
	if st.Error != "" {
		return
	}
	current := s.store.CalendarDate()
	if next := backend.PickCalendarDate(st.Data, current, s.loc); next != current {
		_ = s.store.SetCalendarDate(next)
	}
}

// Store returns the session store.
func (s *Service) Store() *session.Store { return s.store }

// Route returns the current resolved route.
func (s *Service) Route() route.State { return s.nav.State() }

// Navigate moves the router to path. The route changes asynchronously.
func (s *Service) Navigate(path string) { s.nav.Navigate(path) }

// SetLocation simulates an external fragment change such as back/forward.
func (s *Service) SetLocation(fragment string) {
	s.nav.Router().Location().SetFragment(fragment)
}

// Nav returns the configuration of role.
func (s *Service) Nav(role models.Role) (models.RoleConfig, bool) {
	return roles.Lookup(role)
}

// Search ranks role's index against query. An empty role uses the current route's role.
func (s *Service) Search(role models.Role, query string) []models.SearchEntry {
	if role == "" {
		role = s.Route().Role
	}
	return s.index.Search(role, query)
}

// Page snapshots the mounted page. Pages that list services also get the
// calendar panel for the remembered date.
func (s *Service) Page() PageView {
	s.mu.Lock()
	p := s.page
	s.mu.Unlock()
	v := PageView{Route: s.Route(), Resources: map[string]any{}}
	if p != nil {
		v = p.View()
		if p.Services != nil {
			v.Resources["schedule"] = scheduleFor(p.Services.State().Data, s.store.CalendarDate(), s.loc)
		}
	}
	v.Auth = s.authGate(v.Route)
	return v
}

// authGate reports whether the customer sign-in form replaces the page.
func (s *Service) authGate(state route.State) *AuthGate {
	if state.IsLogin() || state.Role != models.RoleCustomer {
		return nil
	}
	if s.store.Session(models.KindCustomer) != "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bypassAuth {
		return nil
	}
	return &AuthGate{Required: true, ResetEmail: s.resetEmail}
}

// Login checks credentials for kind. A customer whose password must be reset
// stays pending until ResetPassword, CancelReset or Logout.
func (s *Service) Login(kind models.AccountKind, email, password string) (session.LoginResult, error) {
	res, err := s.store.Login(kind, email, password)
	if err != nil || session.NormalizeKind(kind) != models.KindCustomer {
		return res, err
	}
	s.mu.Lock()
	if res.ResetRequired {
		s.resetEmail = res.Email
	} else {
		s.resetEmail = ""
	}
	s.mu.Unlock()
	return res, nil
}

// ResetPassword sets a new password and signs the account in.
func (s *Service) ResetPassword(kind models.AccountKind, email, password string) error {
	if err := s.store.ResetPassword(kind, email, password); err != nil {
		return err
	}
	if session.NormalizeKind(kind) == models.KindCustomer {
		s.CancelReset()
	}
	return nil
}

// CancelReset abandons a pending customer password reset.
func (s *Service) CancelReset() {
	s.mu.Lock()
	s.resetEmail = ""
	s.mu.Unlock()
}

// PendingReset returns the customer email waiting on a password reset.
func (s *Service) PendingReset() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resetEmail
}

// Logout ends the session of kind.
func (s *Service) Logout(kind models.AccountKind) {
	s.store.Logout(kind)
	if session.NormalizeKind(kind) == models.KindCustomer {
		s.CancelReset()
	}
}

// SetTestingView switches between the login screen and a role's landing
// page. Choosing the customer view opens it without a customer session.
func (s *Service) SetTestingView(view string) error {
	if view == TestingViewLogin {
		s.mu.Lock()
		s.bypassAuth = false
		s.mu.Unlock()
		s.nav.Navigate(route.LoginPath)
		return nil
	}
	role := models.Role(view)
	if !roles.Known(role) {
		return apperr.Invalid("Unknown testing view.")
	}
	s.mu.Lock()
	s.bypassAuth = role == models.RoleCustomer
	s.mu.Unlock()
	s.nav.Navigate(roles.LandingPath(role))
	return nil
}

// CreateUser issues a temporary password to a customer or employee.
func (s *Service) CreateUser(kind models.AccountKind, in session.AccountInput) (session.Credential, error) {
	return s.store.CreateOrUpdateAccount(kind, in)
}

// OnboardingInput is the admin "new service" form.
type OnboardingInput struct {
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	ServiceType   string `json:"service_type"`
}

// Onboard creates a customer account for a new service.
func (s *Service) Onboard(in OnboardingInput) (session.Credential, error) {
	st := in.ServiceType
	if st == "" {
		st = DefaultServiceType
	}
	return s.store.CreateOrUpdateAccount(models.KindCustomer, session.AccountInput{
		Name:  in.CustomerName,
		Email: in.CustomerEmail,
		Extra: map[string]string{"serviceType": st},
	})
}

// SignIn is the testing login screen. Customers must pass a credential check;
// other destinations are entered directly. On success the router moves to
// the destination's landing page, where a customer who must reset their
// password is shown the reset form.
func (s *Service) SignIn(dest models.Role, email, password string) (session.LoginResult, error) {
	if !roles.Known(dest) {
		dest = roles.Default
	}
	var res session.LoginResult
	if dest == models.RoleCustomer {
		var err error
		res, err = s.Login(models.KindCustomer, email, password)
		if err != nil {
			return res, err
		}
		s.mu.Lock()
		s.bypassAuth = false
		s.mu.Unlock()
	}
	s.nav.Navigate(roles.LandingPath(dest))
	return res, nil
}

// Directory returns the admin customer directory.
func (s *Service) Directory() []CustomerRow {
	return BuildDirectory(s.store.Accounts(models.KindCustomer), s.loc)
}

// SelectCustomer selects the directory row for email and opens its detail page.
func (s *Service) SelectCustomer(email string) {
	s.mu.Lock()
	s.selected = session.NormalizeEmail(email)
	s.mu.Unlock()
	s.nav.Navigate(customerDetailPath)
}

// SelectedCustomer returns the selected directory row. An unknown selection
// falls back to the first row; an empty directory redirects to the list.
func (s *Service) SelectedCustomer() (CustomerRow, bool) {
	rows := s.Directory()

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rows {
		if r.Email == s.selected {
			return r, true
		}
	}
	if len(rows) == 0 {
		s.selected = ""
		s.nav.Navigate(customersPath)
		return CustomerRow{}, false
	}
	s.selected = rows[0].Email
	return rows[0], true
}

// CreateService creates a draft job and refreshes schedule data.
func (s *Service) CreateService(ctx context.Context, req backend.CreateServiceRequest) (backend.SchedulingService, error) {
	if s.client == nil {
		return backend.SchedulingService{}, ErrBackendDisabled
	}
	svc, err := s.client.CreateService(ctx, req)
	if err != nil {
		return backend.SchedulingService{}, err
	}
	s.logger.Info("dashboard: service created", slog.Int64("id", svc.ID))
	c := sse.ScheduleChange{Kind: sse.ScheduleCreated, ServiceID: svc.ID}
	if svc.ScheduledStart != nil {
		c.Day = svc.ScheduledStart.In(s.loc).Format("2006-01-02")
	}
	s.scheduleChanged(c)
	return svc, nil
}

// AssignService validates form, assigns the technician and moves the
// calendar to the scheduled day.
func (s *Service) AssignService(ctx context.Context, form backend.AssignForm) (backend.SchedulingService, error) {
	if s.client == nil {
		return backend.SchedulingService{}, ErrBackendDisabled
	}
	id, req, err := form.Request(s.loc)
	if err != nil {
		return backend.SchedulingService{}, err
	}
	svc, err := s.client.AssignTechnician(ctx, id, req)
	if err != nil {
		return backend.SchedulingService{}, err
	}

	day := time.Now()
	if svc.ScheduledStart != nil {
		day = *svc.ScheduledStart
	}
	date := day.In(s.loc).Format("2006-01-02")
	_ = s.store.SetCalendarDate(date)

	s.logger.Info("dashboard: service assigned",
		slog.Int64("id", id),
		slog.Int64("technician", req.TechnicianID))
	s.scheduleChanged(sse.ScheduleChange{Kind: sse.ScheduleAssigned, ServiceID: id, Day: date})
	return svc, nil
}

// SendEmail sends a message to the selected customers.
func (s *Service) SendEmail(ctx context.Context, req backend.EmailRequest) (backend.EmailResult, error) {
	if s.client == nil {
		return nil, ErrBackendDisabled
	}
	return s.client.SendEmail(ctx, req)
}

func (s *Service) scheduleChanged(c sse.ScheduleChange) {
	s.pub.PublishScheduleEvent(c)
	s.mu.Lock()
	p, ctx := s.page, s.ctx
	s.mu.Unlock()
	if p != nil {
		p.refreshSchedule(ctx)
	}
}
