package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// MaxWateringFrequencyDays bounds the watering frequency to a century, well
// inside the range time.AddDate handles without overflow.
const MaxWateringFrequencyDays = 36500

// Plant is a tracked houseplant.
type Plant struct {
	ID                    string    // UUID, assigned at creation
	Name                  string    // Display name, never blank
	WateringFrequencyDays int       // Days between waterings, 1..MaxWateringFrequencyDays
	LastWateredAt         time.Time // Defaults to creation time
	ImageURI              string    // Optional local image reference, "" when absent
}

// Validate checks the invariants every stored plant must hold.
func (p *Plant) Validate() error {
	switch {
	case p.ID == "":
		return errors.New("missing id")
	case strings.TrimSpace(p.Name) == "":
		return errors.New("missing name")
	case p.WateringFrequencyDays <= 0 || p.WateringFrequencyDays > MaxWateringFrequencyDays:
		return fmt.Errorf("invalid watering frequency: %d", p.WateringFrequencyDays)
	case p.LastWateredAt.IsZero():
		return errors.New("missing last watered time")
	}
	return nil
}

// Clone returns a copy of p that shares no state with it.
func (p *Plant) Clone() *Plant {
	c := *p
	return &c
}

// Status summarizes how close a plant is to its due date.
type Status int

const (
	Healthy Status = iota
	DueSoon
	Overdue
)

func (s Status) String() string {
	switch s {
	case Healthy:
		return "healthy"
	case DueSoon:
		return "due-soon"
	case Overdue:
		return "overdue"
	default:
		return "unknown"
	}
}

// PlantView is a Plant with its derived schedule fields attached.
// It is computed on read and never persisted.
type PlantView struct {
	Plant
	DueAt        time.Time
	Status       Status
	DaysUntilDue int // negative when overdue
}
