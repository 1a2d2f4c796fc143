package session

import (
	"time"

	"github.com/google/uuid"
	"github.com/starford/headstone/internal/apperr"
	"github.com/starford/headstone/internal/models"
)

// MaxNotices bounds the temporary password queue.
const MaxNotices = 50

const dateLayout = "2006-01-02"

// Notices returns queued temporary password notices, most recent first.
func (s *Store) Notices() []models.TempPasswordNotice {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.notices()
}

func (s *Store) notices() []models.TempPasswordNotice {
	var out []models.TempPasswordNotice
	s.readJSON(KeyTempPasswords, &out)
	if out == nil {
		return []models.TempPasswordNotice{}
	}
	return out
}

// queueNotice prepends n and trims the queue. Caller holds s.mu.
func (s *Store) queueNotice(n models.TempPasswordNotice) bool {
	n.ID = uuid.NewString()
	n.CreatedAt = s.timestamp()
	queue := append([]models.TempPasswordNotice{n}, s.notices()...)
	if len(queue) > MaxNotices {
		queue = queue[:MaxNotices]
	}
	return s.writeJSON(KeyTempPasswords, queue)
}

// CalendarDate returns the remembered scheduling calendar date. A missing or
// malformed value reads as today.
func (s *Store) CalendarDate() string {
	v := s.read(KeyCalendarDate)
	if _, err := time.Parse(dateLayout, v); err == nil {
		return v
	}
	return s.now().Format(dateLayout)
}

// SetCalendarDate remembers d, which must be YYYY-MM-DD.
func (s *Store) SetCalendarDate(d string) error {
	if _, err := time.Parse(dateLayout, d); err != nil {
		return apperr.Invalid("Date must be in YYYY-MM-DD format.")
	}
	s.mu.Lock()
	ok := s.write(KeyCalendarDate, d)
	s.mu.Unlock()
	if ok {
		s.emit(Change{Topic: TopicCalendar, Value: d})
	}
	return nil
}
