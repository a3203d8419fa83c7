package plantly_test

import (
	"testing"
	"time"

	"plantly/internal/model"
	"plantly/internal/plantly"
)

var t0 = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

func plantAt(freq int, wateredAt time.Time) *model.Plant {
	return &model.Plant{ID: "p", Name: "Casper", WateringFrequencyDays: freq, LastWateredAt: wateredAt}
}

func TestScheduler_DueAt(t *testing.T) {
	s := plantly.NewScheduler(time.UTC)

	got := s.DueAt(plantAt(6, t0))
	if want := t0.AddDate(0, 0, 6); !got.Equal(want) {
		t.Errorf("DueAt() = %v, want %v", got, want)
	}
}

func TestScheduler_Status(t *testing.T) {
	s := plantly.NewScheduler(time.UTC)

	tests := []struct {
		name       string
		freq       int
		now        time.Time
		wantStatus model.Status
		wantDays   int
	}{
		{name: "just watered", freq: 6, now: t0, wantStatus: model.Healthy, wantDays: 6},
		{name: "mid cycle", freq: 6, now: t0.AddDate(0, 0, 3), wantStatus: model.Healthy, wantDays: 3},
		{name: "one day before due", freq: 6, now: t0.AddDate(0, 0, 5), wantStatus: model.DueSoon, wantDays: 1},
		{name: "just outside due-soon window", freq: 6, now: t0.AddDate(0, 0, 5).Add(-time.Minute), wantStatus: model.Healthy, wantDays: 1},
		{name: "exactly due", freq: 6, now: t0.AddDate(0, 0, 6), wantStatus: model.DueSoon, wantDays: 0},
		{name: "just past due", freq: 6, now: t0.AddDate(0, 0, 6).Add(time.Second), wantStatus: model.Overdue, wantDays: 0},
		{name: "overdue by a day", freq: 6, now: t0.AddDate(0, 0, 7), wantStatus: model.Overdue, wantDays: -1},
		{name: "daily plant on creation", freq: 1, now: t0, wantStatus: model.Healthy, wantDays: 1},
		{name: "daily plant later the same day", freq: 1, now: t0.Add(10 * time.Hour), wantStatus: model.Healthy, wantDays: 1},
		{name: "daily plant next morning", freq: 1, now: time.Date(2024, 1, 16, 8, 0, 0, 0, time.UTC), wantStatus: model.DueSoon, wantDays: 0},
		{name: "daily plant two days later", freq: 1, now: t0.AddDate(0, 0, 2), wantStatus: model.Overdue, wantDays: -1},
		{name: "longest frequency on creation", freq: model.MaxWateringFrequencyDays, now: t0, wantStatus: model.Healthy, wantDays: model.MaxWateringFrequencyDays},
		{name: "longest frequency a day before due", freq: model.MaxWateringFrequencyDays, now: t0.AddDate(0, 0, model.MaxWateringFrequencyDays-1), wantStatus: model.DueSoon, wantDays: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := plantAt(tt.freq, t0)
			if got := s.Status(p, tt.now); got != tt.wantStatus {
				t.Errorf("Status() = %v, want %v", got, tt.wantStatus)
			}
			if got := s.DaysUntilDue(p, tt.now); got != tt.wantDays {
				t.Errorf("DaysUntilDue() = %d, want %d", got, tt.wantDays)
			}
		})
	}
}

func TestScheduler_WateringResetsCycle(t *testing.T) {
	s := plantly.NewScheduler(time.UTC)
	p := plantAt(6, t0)

	if got := s.Status(p, t0.AddDate(0, 0, 5)); got != model.DueSoon {
		t.Fatalf("day 5 Status() = %v, want due-soon", got)
	}
	if got := s.Status(p, t0.AddDate(0, 0, 7)); got != model.Overdue {
		t.Fatalf("day 7 Status() = %v, want overdue", got)
	}

	p.LastWateredAt = t0.AddDate(0, 0, 7)

	now := t0.AddDate(0, 0, 7)
	if got := s.Status(p, now); got != model.Healthy {
		t.Errorf("after watering Status() = %v, want healthy", got)
	}
	if got, want := s.DueAt(p), t0.AddDate(0, 0, 13); !got.Equal(want) {
		t.Errorf("after watering DueAt() = %v, want %v", got, want)
	}
}

func TestScheduler_CalendarDaysInLocation(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("timezone data unavailable: %v", err)
	}
	s := plantly.NewScheduler(ny)

	t.Run("late evening counts as the same day", func(t *testing.T) {
		// 23:00 local on Jan 15 is already Jan 16 in UTC.
		watered := time.Date(2024, 1, 15, 23, 0, 0, 0, ny)
		p := plantAt(3, watered.UTC())

		now := time.Date(2024, 1, 16, 1, 0, 0, 0, ny)
		if got := s.DaysUntilDue(p, now); got != 2 {
			t.Errorf("DaysUntilDue() = %d, want 2", got)
		}
	})

	t.Run("daylight saving transition", func(t *testing.T) {
		// Clocks spring forward on 2024-03-10; that day has 23 hours.
		watered := time.Date(2024, 3, 9, 12, 0, 0, 0, ny)
		p := plantAt(1, watered.UTC())

		due := s.DueAt(p)
		if want := time.Date(2024, 3, 10, 12, 0, 0, 0, ny); !due.Equal(want) {
			t.Errorf("DueAt() = %v, want %v", due, want)
		}
		if got := due.Sub(watered); got != 23*time.Hour {
			t.Errorf("cycle length = %v, want 23h", got)
		}
		if got := s.DaysUntilDue(p, time.Date(2024, 3, 9, 23, 30, 0, 0, ny)); got != 1 {
			t.Errorf("DaysUntilDue() = %d, want 1", got)
		}
	})
}

func TestScheduler_View(t *testing.T) {
	s := plantly.NewScheduler(time.UTC)
	p := plantAt(6, t0)

	v := s.View(p, t0.AddDate(0, 0, 7))
	if v.ID != p.ID || v.Name != p.Name {
		t.Errorf("View() plant = %+v, want %+v", v.Plant, *p)
	}
	if v.Status != model.Overdue || v.DaysUntilDue != -1 {
		t.Errorf("View() = {Status: %v, DaysUntilDue: %d}, want {overdue, -1}", v.Status, v.DaysUntilDue)
	}
	if !v.DueAt.Equal(t0.AddDate(0, 0, 6)) {
		t.Errorf("View().DueAt = %v", v.DueAt)
	}
}

func TestNewScheduler_NilLocation(t *testing.T) {
	if s := plantly.NewScheduler(nil); s.Location != time.Local {
		t.Errorf("NewScheduler(nil).Location = %v, want Local", s.Location)
	}
}

func TestScheduler_DaysUntilDueBeyondDurationRange(t *testing.T) {
	s := plantly.NewScheduler(time.UTC)
	// 300 years before t0 is 109573 days; the plant was due 7 days after that.
	p := plantAt(7, t0.AddDate(-300, 0, 0))

	if got, want := s.DaysUntilDue(p, t0), -109566; got != want {
		t.Errorf("DaysUntilDue() = %d, want %d", got, want)
	}
	if got := s.Status(p, t0); got != model.Overdue {
		t.Errorf("Status() = %v, want overdue", got)
	}
}

func TestScheduler_ViewUsesLocation(t *testing.T) {
	// 10:30 UTC on Jan 15 is already Jan 16 at UTC+14.
	loc := time.FixedZone("UTC+14", 14*60*60)
	s := plantly.NewScheduler(loc)
	p := plantAt(6, t0)

	v := s.View(p, t0)
	if v.LastWateredAt.Location() != loc || !v.LastWateredAt.Equal(t0) {
		t.Errorf("View().LastWateredAt = %v, want %v in %v", v.LastWateredAt, t0, loc)
	}
	if got := v.LastWateredAt.Format("2006-01-02"); got != "2024-01-16" {
		t.Errorf("watered date = %s, want 2024-01-16", got)
	}
	if got := v.DueAt.Format("2006-01-02"); got != "2024-01-22" {
		t.Errorf("due date = %s, want 2024-01-22", got)
	}
	if p.LastWateredAt.Location() != time.UTC {
		t.Error("View() changed the source plant")
	}
}
