package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Activity log event names
const (
	EventSessionCreated    = "session_created"
	EventResponseSubmitted = "response_submitted"
	EventRoundAdvanced     = "round_advanced"
	EventSessionCompleted  = "session_completed"
	EventSessionCancelled  = "session_cancelled"
	EventSessionExpired    = "session_expired"
	EventDeadlineExtended  = "deadline_extended"
	EventReminderSent      = "reminder_sent"
	EventOptionSelected    = "option_selected"
	EventConsensusReached  = "consensus_reached"
	EventCompromiseAsked   = "compromise_requested"
	EventCaseForwarded     = "case_forwarded"
	EventDependencyFailed  = "dependency_failure"
)

// ActivityLogEntry holds the structure for the activitylog collection in
// mongo. Entries are append-only and never updated.
type ActivityLogEntry struct {
	ID        primitive.ObjectID     `json:"_id" bson:"_id,omitempty"`
	EntryID   string                 `json:"entryID" bson:"entryID"`
	CaseID    string                 `json:"caseID" bson:"caseID"`
	SessionID string                 `json:"sessionID,omitempty" bson:"sessionID,omitempty"`
	Event     string                 `json:"event" bson:"event"`
	Actor     string                 `json:"actor,omitempty" bson:"actor,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty" bson:"details,omitempty"`
	CreatedAt primitive.DateTime     `json:"createdAt" bson:"createdAt"`
}
