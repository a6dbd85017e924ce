// Package domain defines the core domain models for the chat relay.
package domain

// Role is the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Valid reports whether r is one of the recognized roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// RunStatus is the provider-reported status of an assistant run.
type RunStatus string

const (
	RunStatusQueued         RunStatus = "queued"
	RunStatusInProgress     RunStatus = "in_progress"
	RunStatusRequiresAction RunStatus = "requires_action"
	RunStatusCancelling     RunStatus = "cancelling"
	RunStatusCompleted      RunStatus = "completed"
	RunStatusFailed         RunStatus = "failed"
	RunStatusExpired        RunStatus = "expired"
	RunStatusCancelled      RunStatus = "cancelled"
	RunStatusIncomplete     RunStatus = "incomplete"
)

// IsFailure reports whether the status ends the run without a reply.
func (s RunStatus) IsFailure() bool {
	switch s {
	case RunStatusFailed, RunStatusExpired, RunStatusCancelled, RunStatusIncomplete:
		return true
	}
	return false
}

// IsTerminal reports whether no further progress will be made on the run.
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusCompleted || s.IsFailure()
}
