package dashboard

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/starford/headstone/internal/backend"
	"github.com/starford/headstone/internal/hashrouter"
	"github.com/starford/headstone/internal/models"
	"github.com/starford/headstone/internal/session"
	"github.com/starford/headstone/internal/sse"
	"github.com/starford/headstone/internal/testutil"
)

type recorder struct {
	mu       sync.Mutex
	events   []sse.Event
	schedule []sse.ScheduleChange
}

func (r *recorder) Publish(e sse.Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) PublishScheduleEvent(c sse.ScheduleChange) {
	r.mu.Lock()
	r.schedule = append(r.schedule, c)
	r.mu.Unlock()
}

func (r *recorder) count(typ string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Type == typ {
			n++
		}
	}
	return n
}

func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

const servicesJSON = `[
	{"id": 1, "service_type": "cleaning", "status": "draft", "scheduled_start": null},
	{"id": 2, "service_type": "repair", "status": "scheduled", "scheduled_start": "2024-05-03T10:00:00Z", "estimated_minutes": 60}
]`

const assignedJSON = `[
	{"id": 1, "service_type": "cleaning", "status": "draft", "scheduled_start": null},
	{"id": 2, "service_type": "repair", "status": "scheduled", "scheduled_start": "2024-05-07T15:00:00Z", "estimated_minutes": 90}
]`

func fakeBackend(t *testing.T) *backend.Client {
	t.Helper()
	var assigned atomic.Bool
	mux := http.NewServeMux()
	mux.HandleFunc("/api/scheduling/services/", func(w http.ResponseWriter, r *http.Request) {
		if assigned.Load() {
			io.WriteString(w, assignedJSON)
			return
		}
		io.WriteString(w, servicesJSON)
	})
	mux.HandleFunc("/api/technicians/", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[{"id": 3, "full_name": "Ana Ortiz"}]`)
	})
	mux.HandleFunc("/api/memorials/", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[{"id": 9, "customer": "Smith", "cemetery": "Greenwood"}]`)
	})
	mux.HandleFunc("/api/dashboard/summary/", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"summary": {"active_services": 4}, "upcoming_services": [], "recent_completed": []}`)
	})
	mux.HandleFunc("/api/manager/services/2/assign/", func(w http.ResponseWriter, r *http.Request) {
		assigned.Store(true)
		io.WriteString(w, `{"ok": true, "service": {"id": 2, "status": "scheduled", "scheduled_start": "2024-05-07T15:00:00Z"}}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return backend.NewClient(srv.URL+"/api", backend.WithHTTPClient(srv.Client()), backend.WithLogger(testutil.QuietLogger()))
}

type env struct {
	svc   *Service
	store *session.Store
	pub   *recorder
	loc   *hashrouter.Location
}

func newEnv(t *testing.T, fragment string, client *backend.Client) *env {
	t.Helper()
	logger := testutil.QuietLogger()
	store := session.New(testutil.TestDB(t), session.WithLogger(logger),
		session.WithClock(func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }))
	loc := hashrouter.NewLocation(fragment)
	t.Cleanup(loc.Close)
	router := hashrouter.NewRouter(loc)
	nav := hashrouter.NewNavigator(router, store, logger)
	pub := &recorder{}
	svc := NewService(Deps{
		Store: store, Navigator: nav, Client: client,
		Publisher: pub, Logger: logger, Location: time.UTC,
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go router.Run(ctx)
	go nav.Run(ctx)
	go svc.Run(ctx)
	return &env{svc: svc, store: store, pub: pub, loc: loc}
}

func TestBuildDirectory(t *testing.T) {
	accounts := []models.Account{
		{Email: "zed@example.com", Name: "Zed", MustResetPassword: true, CreatedAt: "2024-05-01T09:00:00Z"},
		{Email: "Sarah.Johnson@example.com", Name: "Sarah J.", Extra: map[string]string{"serviceType": "Leveling"}},
		{Email: "", Name: "Nobody"},
	}
	rows := BuildDirectory(accounts, time.UTC)
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0].Name != "Sarah J." || rows[1].Name != "Zed" {
		t.Errorf("order = %q, %q", rows[0].Name, rows[1].Name)
	}
	sarah := rows[0]
	if sarah.Memorials != 2 || sarah.ServiceLocation != "Greenwood Cemetery" || sarah.ServiceType != "Leveling" {
		t.Errorf("merged demo row = %+v", sarah)
	}
	zed := rows[1]
	if zed.SubscriptionStatus != StatusPendingActivation || !zed.MustResetPassword {
		t.Errorf("zed status = %q", zed.SubscriptionStatus)
	}
	if zed.CreatedAtLabel != "5/1/2024" || zed.ServiceType != DefaultServiceType || zed.Memorials != 1 {
		t.Errorf("zed = %+v", zed)
	}
}

func TestService_RedirectsAndPublishesRoute(t *testing.T) {
	e := newEnv(t, "#/nope", nil)
	eventually(t, 2*time.Second, 10*time.Millisecond, func() bool {
		return e.svc.Route().CanonicalPath == "/admin/dashboard" && e.loc.Fragment() == "/admin/dashboard"
	}, "did not settle on /admin/dashboard")
	eventually(t, time.Second, 10*time.Millisecond, func() bool {
		return e.pub.count(sse.TypeRouteChanged) == 1
	}, "route.changed not published once")
}

func TestService_MountsSchedulingPage(t *testing.T) {
	e := newEnv(t, "#/admin/scheduling", fakeBackend(t))
	eventually(t, 2*time.Second, 10*time.Millisecond, func() bool {
		v := e.svc.Page()
		st, ok := v.Resources["services"].(backend.State[[]backend.SchedulingService])
		return ok && !st.Loading && len(st.Data) == 2
	}, "services not loaded")

	v := e.svc.Page()
	if _, ok := v.Resources["technicians"]; !ok {
		t.Error("technicians not mounted")
	}
	if _, ok := v.Resources["summary"]; ok {
		t.Error("summary should not be mounted on scheduling")
	}
	eventually(t, time.Second, 10*time.Millisecond, func() bool {
		return e.store.CalendarDate() == "2024-05-03"
	}, "calendar not moved to first scheduled day")

	sched, ok := e.svc.Page().Resources["schedule"].(ScheduleView)
	if !ok {
		t.Fatal("schedule panel missing")
	}
	if sched.Date != "2024-05-03" || len(sched.Day) != 1 || sched.Day[0].ID != 2 {
		t.Errorf("schedule day = %s %+v", sched.Date, sched.Day)
	}
	if sched.Unscheduled != 1 {
		t.Errorf("unscheduled = %d, want 1", sched.Unscheduled)
	}
	if sched.Form == nil || sched.Form.ServiceID != "1" || sched.Form.EstimatedMinutes != "90" {
		t.Errorf("form = %+v", sched.Form)
	}
}

func TestService_NavigateRemountsPage(t *testing.T) {
	e := newEnv(t, "#/admin/scheduling", fakeBackend(t))
	eventually(t, 2*time.Second, 10*time.Millisecond, func() bool {
		return e.svc.Route().Page == "scheduling"
	}, "scheduling not resolved")

	e.svc.Navigate("/admin/dashboard")
	eventually(t, 2*time.Second, 10*time.Millisecond, func() bool {
		v := e.svc.Page()
		st, ok := v.Resources["summary"].(backend.State[backend.DashboardSummary])
		return ok && !st.Loading && st.Data.Summary != nil && st.Data.Summary.ActiveServices == 4
	}, "dashboard summary not loaded after navigate")
}

func TestService_AssignService(t *testing.T) {
	e := newEnv(t, "#/admin/scheduling", fakeBackend(t))
	eventually(t, 2*time.Second, 10*time.Millisecond, func() bool {
		return e.store.CalendarDate() == "2024-05-03"
	}, "initial services not loaded")

	svc, err := e.svc.AssignService(context.Background(), backend.AssignForm{
		ServiceID: "2", TechnicianID: "3", ScheduledStart: "2024-05-07T15:00",
	})
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if svc.ID != 2 {
		t.Errorf("service = %+v", svc)
	}
	if got := e.store.CalendarDate(); got != "2024-05-07" {
		t.Errorf("calendar = %q, want 2024-05-07", got)
	}
	eventually(t, 2*time.Second, 10*time.Millisecond, func() bool {
		st, ok := e.svc.Page().Resources["services"].(backend.State[[]backend.SchedulingService])
		return ok && len(st.Data) == 2 && st.Data[1].ScheduledStart.Day() == 7
	}, "services not refreshed after assign")
	if got := e.store.CalendarDate(); got != "2024-05-07" {
		t.Errorf("calendar after refresh = %q", got)
	}
	e.pub.mu.Lock()
	changes := append([]sse.ScheduleChange(nil), e.pub.schedule...)
	e.pub.mu.Unlock()
	want := sse.ScheduleChange{Kind: sse.ScheduleAssigned, ServiceID: 2, Day: "2024-05-07"}
	if len(changes) != 1 || changes[0] != want {
		t.Errorf("schedule events = %+v, want %+v", changes, want)
	}

	if _, err := e.svc.AssignService(context.Background(), backend.AssignForm{ServiceID: "2"}); err == nil {
		t.Error("expected validation error")
	}
}

func TestService_BackendDisabled(t *testing.T) {
	e := newEnv(t, "#/admin/scheduling", nil)
	_, err := e.svc.CreateService(context.Background(), backend.CreateServiceRequest{MemorialID: 1})
	if !errors.Is(err, ErrBackendDisabled) {
		t.Errorf("err = %v", err)
	}
	if len(e.svc.Page().Resources) != 0 {
		t.Error("no resources should mount without a backend")
	}
}

func TestService_SelectedCustomerFallsBackToFirst(t *testing.T) {
	e := newEnv(t, "#/admin/customers", nil)
	_, _ = e.svc.Onboard(OnboardingInput{CustomerName: "Aaron Abbot", CustomerEmail: "aaron@example.com"})

	e.svc.SelectCustomer("ghost@example.com")
	row, ok := e.svc.SelectedCustomer()
	if !ok || row.Email != "aaron@example.com" {
		t.Errorf("selected = %+v %v, want first row", row, ok)
	}
	if row.ServiceType != DefaultServiceType || row.SubscriptionStatus != StatusPendingActivation {
		t.Errorf("onboarded row = %+v", row)
	}
	eventually(t, 2*time.Second, 10*time.Millisecond, func() bool {
		return e.svc.Route().Page == "customerdetail"
	}, "did not open customer detail")
}

func TestService_SignIn(t *testing.T) {
	e := newEnv(t, "#/login", nil)
	cred, _ := e.svc.CreateUser(models.KindCustomer, session.AccountInput{Name: "Jane", Email: "jane@example.com"})

	if _, err := e.svc.SignIn(models.RoleCustomer, "jane@example.com", "wrong"); err == nil {
		t.Fatal("wrong password should fail")
	}

	res, err := e.svc.SignIn(models.RoleCustomer, "jane@example.com", cred.TemporaryPassword)
	if err != nil || !res.ResetRequired {
		t.Fatalf("sign in = %+v %v, want reset required", res, err)
	}
	eventually(t, 2*time.Second, 10*time.Millisecond, func() bool {
		return e.svc.Page().Route.CanonicalPath == "/customer/dashboard"
	}, "customer sign in did not navigate")
	if auth := e.svc.Page().Auth; auth == nil || !auth.Required || auth.ResetEmail != "jane@example.com" {
		t.Errorf("auth = %+v, want pending reset for jane", auth)
	}

	if _, err := e.svc.SignIn(models.RoleEmployee, "", ""); err != nil {
		t.Fatal(err)
	}
	eventually(t, 2*time.Second, 10*time.Millisecond, func() bool {
		return e.svc.Route().CanonicalPath == "/employee/dashboard"
	}, "employee sign in did not navigate")
	if e.svc.Page().Auth != nil {
		t.Error("employee pages are never gated")
	}
}

func TestService_CustomerAuthGate(t *testing.T) {
	e := newEnv(t, "#/customer/settings", nil)
	eventually(t, 2*time.Second, 10*time.Millisecond, func() bool {
		return e.svc.Page().Route.CanonicalPath == "/customer/settings"
	}, "customer page not mounted")

	if auth := e.svc.Page().Auth; auth == nil || !auth.Required || auth.ResetEmail != "" {
		t.Fatalf("auth = %+v, want sign-in required", auth)
	}

	cred, _ := e.svc.CreateUser(models.KindCustomer, session.AccountInput{Name: "Jane", Email: "jane@example.com"})
	if res, err := e.svc.Login(models.KindCustomer, "Jane@Example.com", cred.TemporaryPassword); err != nil || !res.ResetRequired {
		t.Fatalf("login = %+v %v", res, err)
	}
	if got := e.svc.PendingReset(); got != "jane@example.com" {
		t.Errorf("pending reset = %q", got)
	}

	e.svc.CancelReset()
	if auth := e.svc.Page().Auth; auth == nil || auth.ResetEmail != "" {
		t.Errorf("auth after cancel = %+v", auth)
	}

	_, _ = e.svc.Login(models.KindCustomer, "jane@example.com", cred.TemporaryPassword)
	if err := e.svc.ResetPassword(models.KindCustomer, "jane@example.com", "new-password-1"); err != nil {
		t.Fatal(err)
	}
	if e.svc.PendingReset() != "" {
		t.Error("reset should clear the pending email")
	}
	if auth := e.svc.Page().Auth; auth != nil {
		t.Errorf("signed-in customer still gated: %+v", auth)
	}

	_, _ = e.svc.Login(models.KindCustomer, "jane@example.com", "new-password-1")
	e.svc.Logout(models.KindCustomer)
	if auth := e.svc.Page().Auth; auth == nil || !auth.Required {
		t.Errorf("auth after logout = %+v", auth)
	}
}

func TestService_TestingViewBypassesCustomerGate(t *testing.T) {
	e := newEnv(t, "#/admin/dashboard", nil)
	eventually(t, 2*time.Second, 10*time.Millisecond, func() bool {
		return e.svc.Page().Route.CanonicalPath == "/admin/dashboard"
	}, "admin page not mounted")

	if err := e.svc.SetTestingView("customer"); err != nil {
		t.Fatal(err)
	}
	eventually(t, 2*time.Second, 10*time.Millisecond, func() bool {
		return e.svc.Page().Route.CanonicalPath == "/customer/dashboard"
	}, "testing view did not open the customer landing page")
	if auth := e.svc.Page().Auth; auth != nil {
		t.Errorf("testing view should bypass the gate, got %+v", auth)
	}

	// Leaving the customer role drops the bypass.
	if err := e.svc.SetTestingView("login"); err != nil {
		t.Fatal(err)
	}
	eventually(t, 2*time.Second, 10*time.Millisecond, func() bool {
		return e.svc.Page().Route.IsLogin()
	}, "testing view did not open the login screen")
	e.svc.Navigate("/customer/settings")
	eventually(t, 2*time.Second, 10*time.Millisecond, func() bool {
		return e.svc.Page().Route.CanonicalPath == "/customer/settings"
	}, "customer page not mounted")
	if auth := e.svc.Page().Auth; auth == nil || !auth.Required {
		t.Errorf("auth = %+v, want gate after bypass was dropped", auth)
	}

	if err := e.svc.SetTestingView("vendor"); err == nil {
		t.Error("unknown view should fail")
	}
}

func TestService_ForwardsStoreChanges(t *testing.T) {
	e := newEnv(t, "#/admin/users", nil)
	time.Sleep(20 * time.Millisecond)
	_, _ = e.svc.CreateUser(models.KindEmployee, session.AccountInput{Name: "Eli", Email: "eli@example.com"})
	eventually(t, time.Second, 10*time.Millisecond, func() bool {
		return e.pub.count(sse.TypeAccountsChanged) >= 1 && e.pub.count(sse.TypeNoticesChanged) >= 1
	}, "store changes not forwarded")
}
