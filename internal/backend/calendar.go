package backend

import (
	"slices"
	"time"
)

const dateLayout = "2006-01-02"

func dayOf(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(dateLayout)
}

// PickCalendarDate keeps current when any service starts that day, otherwise
// moves to the day of the first scheduled service. With no scheduled
// services current is returned unchanged.
func PickCalendarDate(services []SchedulingService, current string, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	var first *time.Time
	for _, s := range services {
		if !s.Scheduled() {
			continue
		}
		if dayOf(*s.ScheduledStart, loc) == current {
			return current
		}
		if first == nil {
			first = s.ScheduledStart
		}
	}
	if first == nil {
		return current
	}
	return dayOf(*first, loc)
}

// ScheduledForDay returns the services starting on date, earliest first.
func ScheduledForDay(services []SchedulingService, date string, loc *time.Location) []SchedulingService {
	if loc == nil {
		loc = time.Local
	}
	var out []SchedulingService
	for _, s := range services {
		if s.Scheduled() && dayOf(*s.ScheduledStart, loc) == date {
			out = append(out, s)
		}
	}
	slices.SortStableFunc(out, func(a, b SchedulingService) int {
		return a.ScheduledStart.Compare(*b.ScheduledStart)
	})
	return out
}

// UnscheduledCount counts drafts and services without a start time.
func UnscheduledCount(services []SchedulingService) int {
	n := 0
	for _, s := range services {
		if !s.Scheduled() || s.Status == StatusDraft {
			n++
		}
	}
	return n
}

// PreferredService returns the first draft, else the first service.
func PreferredService(services []SchedulingService) (SchedulingService, bool) {
	if len(services) == 0 {
		return SchedulingService{}, false
	}
	for _, s := range services {
		if s.Status == StatusDraft {
			return s, true
		}
	}
	return services[0], true
}

// FormFor pre-fills an assign form from an existing service.
func FormFor(s SchedulingService, loc *time.Location) AssignForm {
	if loc == nil {
		loc = time.Local
	}
	f := AssignForm{
		ServiceID:        formatID(s.ID),
		EstimatedMinutes: "90",
	}
	if s.TechnicianID != nil {
		f.TechnicianID = formatID(*s.TechnicianID)
	}
	if s.ScheduledStart != nil {
		f.ScheduledStart = s.ScheduledStart.In(loc).Format(datetimeLocal)
	}
	if s.EstimatedMinutes > 0 {
		f.EstimatedMinutes = formatID(int64(s.EstimatedMinutes))
	}
	if s.GPSLat != nil {
		f.GPSLat = formatFloat(s.GPSLat.Float())
	}
	if s.GPSLng != nil {
		f.GPSLng = formatFloat(s.GPSLng.Float())
	}
	return f
}
