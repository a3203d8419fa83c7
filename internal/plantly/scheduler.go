package plantly

import (
	"time"

	"plantly/internal/model"
)

// dueSoonWindow is the inclusive distance to the due date at which a plant
// turns DueSoon.
const dueSoonWindow = 24 * time.Hour

// Scheduler derives watering status from a plant's last watering and
// frequency. It holds no state besides the location used for calendar
// arithmetic and is safe for concurrent use.
//
// All calendar math happens in Location: a plant watered at any time on
// day N is due at the same wall-clock time on day N+frequency.
type Scheduler struct {
	Location *time.Location
}

// NewScheduler returns a Scheduler using loc, or the process local zone if loc is nil.
func NewScheduler(loc *time.Location) Scheduler {
	if loc == nil {
		loc = time.Local
	}
	return Scheduler{Location: loc}
}

func (s Scheduler) loc() *time.Location {
	if s.Location == nil {
		return time.Local
	}
	return s.Location
}

// DueAt returns when p next needs watering.
func (s Scheduler) DueAt(p *model.Plant) time.Time {
	return p.LastWateredAt.In(s.loc()).AddDate(0, 0, p.WateringFrequencyDays)
}

// Status categorizes p at now. A plant watered on the current calendar day
// is always Healthy, even with a one-day frequency.
func (s Scheduler) Status(p *model.Plant, now time.Time) model.Status {
	due := s.DueAt(p)
	now = now.In(s.loc())
	switch {
	case now.After(due):
		return model.Overdue
	case calendarDays(p.LastWateredAt.In(s.loc()), now) <= 0:
		return model.Healthy
	case due.Sub(now) <= dueSoonWindow:
		return model.DueSoon
	default:
		return model.Healthy
	}
}

// DaysUntilDue returns the number of calendar days between now and the due
// date. Negative values mean the plant is overdue by that many days.
func (s Scheduler) DaysUntilDue(p *model.Plant, now time.Time) int {
	return calendarDays(now.In(s.loc()), s.DueAt(p))
}

// View attaches the derived schedule fields to a copy of p. Both timestamps
// of the view are expressed in the scheduler's location.
func (s Scheduler) View(p *model.Plant, now time.Time) model.PlantView {
	v := model.PlantView{
		Plant:        *p,
		DueAt:        s.DueAt(p),
		Status:       s.Status(p, now),
		DaysUntilDue: s.DaysUntilDue(p, now),
	}
	v.LastWateredAt = p.LastWateredAt.In(s.loc())
	return v
}

// calendarDays counts whole dates from a to b, both already in the same location.
// Dates are projected onto UTC midnights so DST transitions cannot skew the
// count, and compared as day numbers since a Duration saturates near 292 years.
func calendarDays(a, b time.Time) int {
	return int(dayNumber(b) - dayNumber(a))
}

func dayNumber(t time.Time) int64 {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / secondsPerDay
}

const secondsPerDay = 24 * 60 * 60
