// Package domain defines the core domain models for the companion backend.
package domain

// RequestStatus represents the lifecycle status of a submitted prompt request.
type RequestStatus string

const (
	RequestStatusProcessing RequestStatus = "processing"
	RequestStatusCompleted  RequestStatus = "completed"
	RequestStatusFailed     RequestStatus = "failed"
)

// ErrorKind tags a failed request entry so clients can branch programmatically
// instead of parsing the message text.
type ErrorKind string

const (
	ErrorKindProvider ErrorKind = "provider"
	ErrorKindSpeech   ErrorKind = "speech"
	ErrorKindStore    ErrorKind = "store"
	ErrorKindInternal ErrorKind = "internal"
)

// Target selects which provider pipeline answers a prompt.
type Target string

const (
	TargetChat      Target = "chat"
	TargetAssistant Target = "assistant"
)

// RunStatus represents the state of a remote assistant run.
type RunStatus string

const (
	RunStatusQueued         RunStatus = "queued"
	RunStatusInProgress     RunStatus = "in_progress"
	RunStatusRequiresAction RunStatus = "requires_action"
	RunStatusCompleted      RunStatus = "completed"
	RunStatusFailed         RunStatus = "failed"
	RunStatusCancelled      RunStatus = "cancelled"
	RunStatusExpired        RunStatus = "expired"
)

// Terminal reports whether the run has reached a final state.
func (s RunStatus) Terminal() bool {
	switch s {
	case RunStatusCompleted, RunStatusFailed, RunStatusCancelled, RunStatusExpired:
		return true
	}
	return false
}

// Conversation roles. The companion is the end user; the guide is the
// model-backed persona. The provider wire protocol only understands
// user/assistant/system, so turns are mapped at the provider boundary.
const (
	RoleCompanion = "companion"
	RoleGuide     = "guide"
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)
