package backend

import (
	"bytes"
	"fmt"
	"strconv"
	"time"
)

// Decimal accepts both JSON numbers and the quoted decimal strings the
// backend emits for money and coordinates.
type Decimal float64

// UnmarshalJSON implements json.Unmarshaler.
func (d *Decimal) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)
	if len(b) == 0 || string(b) == "null" {
		*d = 0
		return nil
	}
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return fmt.Errorf("decimal %q: %w", b, err)
	}
	*d = Decimal(f)
	return nil
}

// Float returns d as a float64.
func (d Decimal) Float() float64 { return float64(d) }

// Memorial is a row of GET /memorials/.
type Memorial struct {
	ID                int64  `json:"id"`
	Customer          string `json:"customer"`
	Cemetery          string `json:"cemetery"`
	LastServiceStatus string `json:"last_service_status"`
	LastServiceDate   string `json:"last_service_date"`
}

// Customer is a row of GET /customers/.
type Customer struct {
	ID             int64  `json:"id"`
	FullName       string `json:"full_name"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	MemorialsCount int    `json:"memorials_count"`
	LastContact    string `json:"last_contact"`
}

// Cemetery is a row of GET /cemeteries/.
type Cemetery struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	City           string `json:"city"`
	MemorialsCount int    `json:"memorials_count"`
	ActiveServices int    `json:"active_services"`
}

// Technician is a row of GET /technicians/.
type Technician struct {
	ID       int64  `json:"id"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

// Service statuses.
const (
	StatusDraft      = "draft"
	StatusScheduled  = "scheduled"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

// SchedulingService is a row of GET /scheduling/services/.
type SchedulingService struct {
	ID               int64      `json:"id"`
	ServiceType      string     `json:"service_type"`
	Status           string     `json:"status"`
	ScheduledStart   *time.Time `json:"scheduled_start"`
	EstimatedMinutes int        `json:"estimated_minutes"`
	MemorialName     string     `json:"memorial_name"`
	CemeteryName     string     `json:"cemetery_name"`
	TechnicianID     *int64     `json:"technician_id"`
	TechnicianName   *string    `json:"technician_name"`
	Price            *Decimal   `json:"price"`
	GPSLat           *Decimal   `json:"gps_lat"`
	GPSLng           *Decimal   `json:"gps_lng"`
}

// Scheduled reports whether the service has a start time.
func (s SchedulingService) Scheduled() bool { return s.ScheduledStart != nil }

// Summary holds the dashboard totals.
type Summary struct {
	TotalRevenue   float64 `json:"total_revenue"`
	ActiveServices int     `json:"active_services"`
	ServicesToday  int     `json:"services_today"`
	CrewsActive    int     `json:"crews_active"`
	CompletionRate float64 `json:"completion_rate"`
}

// UpcomingService is an entry of the dashboard's upcoming list.
type UpcomingService struct {
	ID             int64      `json:"id"`
	MemorialName   string     `json:"memorial_name"`
	CemeteryName   string     `json:"cemetery_name"`
	ScheduledStart *time.Time `json:"scheduled_start"`
	Status         string     `json:"status"`
	StatusDisplay  string     `json:"status_display"`
}

// CompletedService is an entry of the dashboard's recently completed list.
type CompletedService struct {
	ID            int64    `json:"id"`
	MemorialName  string   `json:"memorial_name"`
	CemeteryName  string   `json:"cemetery_name"`
	CompletedDate string   `json:"completed_date"`
	Amount        *Decimal `json:"amount"`
}

// DashboardSummary is the body of GET /dashboard/summary/.
type DashboardSummary struct {
	Summary          *Summary           `json:"summary"`
	UpcomingServices []UpcomingService  `json:"upcoming_services"`
	RecentCompleted  []CompletedService `json:"recent_completed"`
}

// serviceEnvelope wraps single-service responses.
type serviceEnvelope struct {
	OK      bool              `json:"ok"`
	Service SchedulingService `json:"service"`
}

// EmailResult is the body of a successful POST /emails/send/.
type EmailResult map[string]any

func formatID(id int64) string { return strconv.FormatInt(id, 10) }

func formatFloat(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
