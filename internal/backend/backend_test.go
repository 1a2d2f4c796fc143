package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/starford/headstone/internal/apperr"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
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

func testClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/api/", WithHTTPClient(srv.Client()), WithLogger(quietLogger()))
}

func TestClient_Services(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/scheduling/services/" {
			http.NotFound(w, r)
			return
		}
		io.WriteString(w, `[
			{"id": 7, "service_type": "cleaning", "status": "scheduled",
			 "scheduled_start": "2024-05-02T14:00:00Z", "estimated_minutes": 120,
			 "memorial_name": "Smith", "cemetery_name": "Greenwood",
			 "technician_id": 3, "technician_name": "Ana", "price": "150.00",
			 "gps_lat": "40.730610", "gps_lng": -73.935242},
			{"id": 8, "service_type": "other", "status": "draft", "scheduled_start": null,
			 "technician_id": null, "price": null, "gps_lat": null, "gps_lng": null}
		]`)
	}))

	got, err := c.Services(context.Background())
	if err != nil {
		t.Fatalf("Services: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d", len(got))
	}
	s := got[0]
	if s.Price == nil || s.Price.Float() != 150 || s.GPSLat.Float() != 40.73061 || s.GPSLng.Float() != -73.935242 {
		t.Errorf("decimals = %+v %+v %+v", s.Price, s.GPSLat, s.GPSLng)
	}
	if *s.TechnicianID != 3 || !s.Scheduled() {
		t.Errorf("service = %+v", s)
	}
	if got[1].Scheduled() || got[1].TechnicianID != nil || got[1].GPSLat != nil {
		t.Errorf("nulls not preserved: %+v", got[1])
	}
}

func TestClient_NonSuccessIsStatusError(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	_, err := c.Summary(context.Background())
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StatusError, got %v", err)
	}
	if se.Code != http.StatusBadGateway || se.Error() != "API error: 502" {
		t.Errorf("err = %d %q", se.Code, se.Error())
	}
}

func TestClient_AssignPrefersBodyText(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"estimated_minutes":["too long"]}`)
	}))
	_, err := c.AssignTechnician(context.Background(), 4, AssignRequest{TechnicianID: 1})
	if err == nil || !strings.Contains(err.Error(), "too long") {
		t.Errorf("err = %v", err)
	}

	empty := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	_, err = empty.AssignTechnician(context.Background(), 4, AssignRequest{TechnicianID: 1})
	if err == nil || err.Error() != "Assign failed (500)" {
		t.Errorf("err = %v", err)
	}
}

func TestClient_AssignSendsPayload(t *testing.T) {
	var got map[string]any
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/manager/services/12/assign/" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		io.WriteString(w, `{"ok": true, "service": {"id": 12, "status": "scheduled", "scheduled_start": "2024-05-02T14:00:00Z"}}`)
	}))

	form := AssignForm{
		ServiceID: "12", TechnicianID: "3", ScheduledStart: "2024-05-02T14:00:00Z",
		GPSLat: "40.7 N", GPSLng: "74 W",
	}
	id, req, err := form.Request(time.UTC)
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	svc, err := c.AssignTechnician(context.Background(), id, req)
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if svc.ID != 12 || svc.Status != StatusScheduled {
		t.Errorf("service = %+v", svc)
	}
	if got["technician_id"] != float64(3) || got["estimated_minutes"] != float64(90) {
		t.Errorf("payload = %v", got)
	}
	if got["gps_lat"] != 40.7 || got["gps_lng"] != float64(-74) {
		t.Errorf("gps = %v %v", got["gps_lat"], got["gps_lng"])
	}
}

func TestClient_SendEmailDetail(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		io.WriteString(w, `{"detail": "Mail is disabled."}`)
	}))
	_, err := c.SendEmail(context.Background(), EmailRequest{CustomerIDs: []int64{1}, Subject: "Hi", Body: "Hello"})
	if err == nil || err.Error() != "Mail is disabled." {
		t.Errorf("err = %v", err)
	}
}

func TestClient_ValidatesBeforeSending(t *testing.T) {
	var calls atomic.Int32
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	if _, err := c.SendEmail(context.Background(), EmailRequest{Subject: "x", Body: "y"}); !apperr.IsValidation(err) {
		t.Errorf("email err = %v", err)
	}
	if _, err := c.CreateService(context.Background(), CreateServiceRequest{}); !apperr.IsValidation(err) {
		t.Errorf("create err = %v", err)
	}
	if calls.Load() != 0 {
		t.Errorf("server called %d times", calls.Load())
	}
}

func TestAssignForm_Validation(t *testing.T) {
	base := AssignForm{ServiceID: "1", TechnicianID: "2", ScheduledStart: "2024-05-02T09:30"}
	cases := []struct {
		name   string
		mutate func(*AssignForm)
		msg    string
	}{
		{"no job", func(f *AssignForm) { f.ServiceID = "" }, "Select a job to schedule."},
		{"no tech", func(f *AssignForm) { f.TechnicianID = " " }, "Select a technician."},
		{"no start", func(f *AssignForm) { f.ScheduledStart = "" }, "Pick a scheduled start time."},
		{"bad start", func(f *AssignForm) { f.ScheduledStart = "tomorrow" }, "Pick a scheduled start time."},
		{"too long", func(f *AssignForm) { f.EstimatedMinutes = "1441" }, "Estimated minutes must be at most 1440 (24 hours)."},
		{"half gps", func(f *AssignForm) { f.GPSLat = "40" }, "Provide both GPS latitude and longitude."},
		{"bad gps", func(f *AssignForm) { f.GPSLat, f.GPSLng = "95", "10" }, "Latitude must be between -90 and 90."},
	}
	for _, tc := range cases {
		f := base
		tc.mutate(&f)
		_, _, err := f.Request(time.UTC)
		var ve *apperr.ValidationError
		if !errors.As(err, &ve) {
			t.Errorf("%s: expected validation error, got %v", tc.name, err)
			continue
		}
		if ve.Message != tc.msg {
			t.Errorf("%s: message = %q, want %q", tc.name, ve.Message, tc.msg)
		}
	}

	_, req, err := base.Request(time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	if req.EstimatedMinutes != DefaultEstimatedMinutes || req.GPSLat != nil {
		t.Errorf("defaults = %+v", req)
	}
	if !req.ScheduledStart.Equal(time.Date(2024, 5, 2, 9, 30, 0, 0, time.UTC)) {
		t.Errorf("start = %v", req.ScheduledStart)
	}
}

func TestCreateServiceRequest_Validate(t *testing.T) {
	if err := (CreateServiceRequest{MemorialID: 3, ServiceType: "repair"}).Validate(); err != nil {
		t.Errorf("valid request: %v", err)
	}
	if err := (CreateServiceRequest{MemorialID: 3}).Validate(); err != nil {
		t.Errorf("empty type should be allowed: %v", err)
	}
	if err := (CreateServiceRequest{MemorialID: 3, ServiceType: "polish"}).Validate(); !apperr.IsValidation(err) {
		t.Errorf("bad type: %v", err)
	}
}

func TestEmailRequest_SubjectLength(t *testing.T) {
	r := EmailRequest{CustomerIDs: []int64{1}, Subject: strings.Repeat("a", 201), Body: "b"}
	if err := r.Validate(); !apperr.IsValidation(err) {
		t.Errorf("long subject: %v", err)
	}
	r.Subject = strings.Repeat("a", 200)
	if err := r.Validate(); err != nil {
		t.Errorf("200 chars: %v", err)
	}
}

func TestResource_DropsResultsAfterCancel(t *testing.T) {
	release := make(chan struct{})
	r := NewResource([]int{}, func(ctx context.Context) ([]int, error) {
		<-release
		return []int{1, 2, 3}, nil
	})
	r.Load(context.Background())
	r.Cancel()
	close(release)

	time.Sleep(50 * time.Millisecond)
	st := r.State()
	if !st.Loading || len(st.Data) != 0 {
		t.Errorf("state after cancel = %+v", st)
	}
}

func TestResource_LoadAndError(t *testing.T) {
	var fail atomic.Bool
	r := NewResource(0, func(ctx context.Context) (int, error) {
		if fail.Load() {
			return 0, &StatusError{Code: 500, Message: "API error: 500"}
		}
		return 42, nil
	})
	r.Load(context.Background())
	eventually(t, time.Second, 5*time.Millisecond, func() bool {
		st := r.State()
		return !st.Loading && st.Data == 42
	}, "resource did not load")

	fail.Store(true)
	r.Load(context.Background())
	eventually(t, time.Second, 5*time.Millisecond, func() bool {
		st := r.State()
		return !st.Loading && st.Error == "API error: 500" && st.Data == 0
	}, "resource did not record error")
}

func TestResource_StaleGenerationDropped(t *testing.T) {
	slow := make(chan struct{})
	var n atomic.Int32
	r := NewResource("", func(ctx context.Context) (string, error) {
		if n.Add(1) == 1 {
			<-slow
			return "stale", nil
		}
		return "fresh", nil
	})
	r.Load(context.Background())
	r.Load(context.Background())
	eventually(t, time.Second, 5*time.Millisecond, func() bool {
		return r.State().Data == "fresh"
	}, "second load not applied")
	close(slow)
	time.Sleep(50 * time.Millisecond)
	if got := r.State().Data; got != "fresh" {
		t.Errorf("data = %q, stale result overwrote", got)
	}
}

func ts(s string) *time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return &t
}

func TestPickCalendarDate(t *testing.T) {
	services := []SchedulingService{
		{ID: 1, Status: StatusDraft},
		{ID: 2, ScheduledStart: ts("2024-05-03T10:00:00Z")},
		{ID: 3, ScheduledStart: ts("2024-05-01T08:00:00Z")},
	}
	if got := PickCalendarDate(services, "2024-05-01", time.UTC); got != "2024-05-01" {
		t.Errorf("kept = %q", got)
	}
	if got := PickCalendarDate(services, "2024-06-01", time.UTC); got != "2024-05-03" {
		t.Errorf("moved = %q, want first scheduled", got)
	}
	if got := PickCalendarDate(services[:1], "2024-06-01", time.UTC); got != "2024-06-01" {
		t.Errorf("none scheduled = %q", got)
	}
}

func TestScheduledForDayAndCounts(t *testing.T) {
	services := []SchedulingService{
		{ID: 1, Status: StatusDraft},
		{ID: 2, Status: StatusScheduled, ScheduledStart: ts("2024-05-01T15:00:00Z")},
		{ID: 3, Status: StatusScheduled, ScheduledStart: ts("2024-05-01T08:00:00Z")},
	}
	day := ScheduledForDay(services, "2024-05-01", time.UTC)
	if len(day) != 2 || day[0].ID != 3 {
		t.Errorf("day = %+v", day)
	}
	if n := UnscheduledCount(services); n != 1 {
		t.Errorf("unscheduled = %d", n)
	}
	if p, ok := PreferredService(services); !ok || p.ID != 1 {
		t.Errorf("preferred = %+v", p)
	}
	f := FormFor(services[1], time.UTC)
	if f.ServiceID != "2" || f.ScheduledStart != "2024-05-01T15:00" || f.EstimatedMinutes != "90" {
		t.Errorf("form = %+v", f)
	}
}
