package usersync

import (
	"errors"
	"fmt"
)

// ErrMissingEmail marks a remote identity that cannot be keyed locally.
var ErrMissingEmail = errors.New("identity has no email")

// RecordStatus is what happened to a single remote identity during a run.
type RecordStatus int

const (
	RecordCreated RecordStatus = iota
	RecordSkipped
	RecordErrored
)

func (s RecordStatus) String() string {
	switch s {
	case RecordCreated:
		return "created"
	case RecordSkipped:
		return "skipped"
	case RecordErrored:
		return "errored"
	default:
		return fmt.Sprintf("RecordStatus(%d)", int(s))
	}
}

// RecordResult is the outcome for one remote identity. Err is set for
// errored records and for skips that have a reason (ErrMissingEmail).
type RecordResult struct {
	Status RecordStatus
	Err    error
}

// SyncOutcome aggregates the record results of one reconciliation run.
type SyncOutcome struct {
	Created int  `json:"created"`
	Skipped int  `json:"skipped"`
	Errored int  `json:"errored"`
	Empty   bool `json:"empty"` // provider returned no identities
}

// Total is the number of identities processed.
func (o SyncOutcome) Total() int {
	return o.Created + o.Skipped + o.Errored
}

func (o *SyncOutcome) add(r RecordResult) {
	switch r.Status {
	case RecordCreated:
		o.Created++
	case RecordSkipped:
		o.Skipped++
	default:
		o.Errored++
	}
}

// Message is the operator-facing summary of the run.
func (o SyncOutcome) Message() string {
	if o.Empty {
		return "User sync completed: identity provider returned no users."
	}
	return fmt.Sprintf("User sync completed: created=%d, skipped=%d, errored=%d.", o.Created, o.Skipped, o.Errored)
}
