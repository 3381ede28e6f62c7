package app

import "time"

// Operation tracks the CLI command being run, so its outcome lands in the log
// as a single "operation finished" line.
type Operation struct {
	Name       string
	Parameters string
	Status     string // "success" or "error"
	StartedAt  time.Time
}

// NewOperation creates an operation that starts now and succeeds unless marked failed.
func NewOperation(name, parameters string, now time.Time) *Operation {
	return &Operation{
		Name:       name,
		Parameters: parameters,
		Status:     "success",
		StartedAt:  now,
	}
}

// Finish records the outcome of the command and passes err through.
func (op *Operation) Finish(err error) error {
	if err != nil {
		op.Status = "error"
	}
	return err
}

// Failed returns true if the command reported an error.
func (op *Operation) Failed() bool {
	return op.Status == "error"
}

// Duration returns how long the operation has been running at now.
func (op *Operation) Duration(now time.Time) time.Duration {
	return now.Sub(op.StartedAt)
}
