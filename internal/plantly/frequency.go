package plantly

import (
	"strconv"
	"strings"

	"plantly/internal/model"
)

// ParseFrequency converts free-form text input into a watering frequency.
// Non-numeric, fractional, zero, negative and out-of-range values are
// rejected with ValidationError(ReasonInvalidFrequency).
func ParseFrequency(text string) (int, error) {
	days, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || !validFrequency(days) {
		return 0, &ValidationError{Reason: ReasonInvalidFrequency}
	}
	return days, nil
}

func validFrequency(days int) bool {
	return days > 0 && days <= model.MaxWateringFrequencyDays
}
