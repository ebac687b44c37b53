package audit

import (
	"time"
)

// EventType represents the category of audit event
type EventType string

const (
	EventTypeAuthLogin       EventType = "auth.login"
	EventTypeAuthLoginFailed EventType = "auth.login_failed"
	EventTypeAuthLogout      EventType = "auth.logout"

	EventTypeAdminUserCreate     EventType = "admin.user_create"
	EventTypeAdminUserUpdate     EventType = "admin.user_update"
	EventTypeAdminUserActivate   EventType = "admin.user_activate"
	EventTypeAdminUserDeactivate EventType = "admin.user_deactivate"

	EventTypeProfileUpdate EventType = "user.profile_update"
)

// EventStatus represents the outcome of an event
type EventStatus string

const (
	EventStatusSuccess EventStatus = "success"
	EventStatusFailure EventStatus = "failure"
	EventStatusDenied  EventStatus = "denied"
)

// Event is a single audit trail entry
type Event struct {
	Timestamp time.Time   `json:"timestamp"`
	Type      EventType   `json:"event_type"`
	Status    EventStatus `json:"status"`

	// Actor
	ActorID    int64  `json:"actor_id,omitempty"`
	ActorEmail string `json:"actor_email,omitempty"`

	// Target account
	TargetID    int64  `json:"target_id,omitempty"`
	TargetEmail string `json:"target_email,omitempty"`

	RequestID    string         `json:"request_id,omitempty"`
	Message      string         `json:"message,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
	Changes      *ChangeDetails `json:"changes,omitempty"`
}

// ChangeDetails tracks before/after values for updates
type ChangeDetails struct {
	Before map[string]interface{} `json:"before,omitempty"`
	After  map[string]interface{} `json:"after,omitempty"`
}

// StatusFor maps an operation error to an event status
func StatusFor(err error, denied bool) EventStatus {
	switch {
	case err == nil:
		return EventStatusSuccess
	case denied:
		return EventStatusDenied
	default:
		return EventStatusFailure
	}
}
