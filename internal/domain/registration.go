package domain

import "time"

// RegistrationOutcome classifies one synchronizer attempt.
type RegistrationOutcome string

const (
	// RegistrationRegistered: the execution registry accepted the entry.
	RegistrationRegistered RegistrationOutcome = "registered"

	// RegistrationConflict: the registry already knew the identifier.
	// Counts as success; the goal state is "registered", however reached.
	RegistrationConflict RegistrationOutcome = "conflict"

	// RegistrationFailed: the attempt failed. Other entries in the same
	// pass are unaffected; a later pass retries.
	RegistrationFailed RegistrationOutcome = "failed"
)

func (o RegistrationOutcome) Success() bool {
	return o == RegistrationRegistered || o == RegistrationConflict
}

// RegistrationRecord is the per-identifier result of the most recent
// synchronization pass.
type RegistrationRecord struct {
	Name      string              `json:"name"`
	Outcome   RegistrationOutcome `json:"outcome"`
	Error     string              `json:"error,omitempty"`
	UpdatedAt time.Time           `json:"updatedAt"`
}
