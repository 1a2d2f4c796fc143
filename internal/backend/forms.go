package backend

import (
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/starford/headstone/internal/apperr"
	"github.com/starford/headstone/internal/geo"
)

// Assignment defaults and limits.
const (
	DefaultEstimatedMinutes = 90
	MaxEstimatedMinutes     = 24 * 60
)

// Service types accepted by the create endpoint.
var ServiceTypes = []string{"cleaning", "reset", "leveling", "repair", "engraving", "other"}

// datetimeLocal is the layout of an HTML datetime-local input.
const datetimeLocal = "2006-01-02T15:04"

// AssignRequest is the body of POST /manager/services/{id}/assign/.
type AssignRequest struct {
	TechnicianID     int64     `json:"technician_id"`
	ScheduledStart   time.Time `json:"scheduled_start"`
	EstimatedMinutes int       `json:"estimated_minutes"`
	GPSLat           *float64  `json:"gps_lat,omitempty"`
	GPSLng           *float64  `json:"gps_lng,omitempty"`
}

// AssignForm is the raw scheduling form as typed by the user.
type AssignForm struct {
	ServiceID        string `json:"service_id"`
	TechnicianID     string `json:"technician_id"`
	ScheduledStart   string `json:"scheduled_start"`
	EstimatedMinutes string `json:"estimated_minutes"`
	GPSLat           string `json:"gps_lat"`
	GPSLng           string `json:"gps_lng"`
}

// Request validates the form in field order and builds the assign payload.
// Local datetimes are interpreted in loc.
func (f AssignForm) Request(loc *time.Location) (int64, AssignRequest, error) {
	if loc == nil {
		loc = time.Local
	}
	if err := validation.Validate(strings.TrimSpace(f.ServiceID),
		validation.Required.Error("Select a job to schedule.")); err != nil {
		return 0, AssignRequest{}, apperr.Invalid(err.Error())
	}
	serviceID, err := strconv.ParseInt(strings.TrimSpace(f.ServiceID), 10, 64)
	if err != nil {
		return 0, AssignRequest{}, apperr.Invalid("Select a job to schedule.")
	}
	if err := validation.Validate(strings.TrimSpace(f.TechnicianID),
		validation.Required.Error("Select a technician.")); err != nil {
		return 0, AssignRequest{}, apperr.Invalid(err.Error())
	}
	techID, err := strconv.ParseInt(strings.TrimSpace(f.TechnicianID), 10, 64)
	if err != nil {
		return 0, AssignRequest{}, apperr.Invalid("Select a technician.")
	}
	start, ok := parseStart(f.ScheduledStart, loc)
	if !ok {
		return 0, AssignRequest{}, apperr.Invalid("Pick a scheduled start time.")
	}

	minutes, err := strconv.Atoi(strings.TrimSpace(f.EstimatedMinutes))
	if err != nil || minutes == 0 {
		minutes = DefaultEstimatedMinutes
	}
	if err := validation.Validate(minutes,
		validation.Min(1).Error("Estimated minutes must be at least 1."),
		validation.Max(MaxEstimatedMinutes).Error("Estimated minutes must be at most 1440 (24 hours).")); err != nil {
		return 0, AssignRequest{}, apperr.Invalid(err.Error())
	}

	req := AssignRequest{
		TechnicianID:     techID,
		ScheduledStart:   start.UTC(),
		EstimatedMinutes: minutes,
	}

	lat, lng := strings.TrimSpace(f.GPSLat), strings.TrimSpace(f.GPSLng)
	if (lat == "") != (lng == "") {
		return 0, AssignRequest{}, apperr.Invalid("Provide both GPS latitude and longitude.")
	}
	if lat != "" {
		p, err := geo.ParsePoint(lat, lng)
		if err != nil {
			return 0, AssignRequest{}, err
		}
		req.GPSLat, req.GPSLng = &p.Lat, &p.Lng
	}
	return serviceID, req, nil
}

func parseStart(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.ParseInLocation(datetimeLocal, s, loc); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// CreateServiceRequest is the body of POST /scheduling/services/create/.
type CreateServiceRequest struct {
	MemorialID   int64    `json:"memorial_id"`
	ServiceType  string   `json:"service_type,omitempty"`
	InitialPrice *float64 `json:"initial_price,omitempty"`
}

// Validate checks the request before it is sent.
func (r CreateServiceRequest) Validate() error {
	types := make([]any, len(ServiceTypes))
	for i, t := range ServiceTypes {
		types[i] = t
	}
	return apperr.FromValidation(validation.ValidateStruct(&r,
		validation.Field(&r.MemorialID, validation.Required.Error("Select a memorial.")),
		validation.Field(&r.ServiceType, validation.In(types...).Error("Choose a valid service type.")),
		validation.Field(&r.InitialPrice, validation.Min(0.0).Error("Price cannot be negative.")),
	))
}

// EmailRequest is the body of POST /emails/send/.
type EmailRequest struct {
	CustomerIDs []int64 `json:"customer_ids"`
	Subject     string  `json:"subject"`
	Body        string  `json:"body"`
}

// Validate checks the request before it is sent.
func (r EmailRequest) Validate() error {
	if len(r.CustomerIDs) == 0 {
		return apperr.Invalid("Select at least one customer.")
	}
	if strings.TrimSpace(r.Subject) == "" || strings.TrimSpace(r.Body) == "" {
		return apperr.Invalid("Subject and body are required.")
	}
	return apperr.FromValidation(validation.ValidateStruct(&r,
		validation.Field(&r.Subject, validation.RuneLength(1, 200).Error("Subject must be at most 200 characters.")),
	))
}
