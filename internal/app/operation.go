package app

import "time"

// Operation describes the CLI command a PlantlyApp was opened for.
// Its ID tags every log line written during the command, and its Status is
// logged when the app is closed.
type Operation struct {
	ID         string
	Name       string
	Parameters string
	Status     string // "success" or "error"
}

// NewOperation creates an operation that started at now.
func NewOperation(name, parameters string, now time.Time) *Operation {
	return &Operation{
		ID:         now.UTC().Format("20060102T150405Z"),
		Name:       name,
		Parameters: parameters,
		Status:     "success",
	}
}

// Fail marks the operation as failed.
func (op *Operation) Fail() {
	op.Status = "error"
}

// Failed reports whether any step of the operation failed.
func (op *Operation) Failed() bool {
	return op.Status == "error"
}
