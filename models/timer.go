package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Deadline phases. Each phase carries its own reminder schedule.
const (
	TimerPhaseStatement = "statement"
	TimerPhaseResponse  = "response"
)

// DisputeTimer holds the structure for the disputetimers collection in mongo.
// Exactly one active document exists per (session, phase); the scheduler
// sweep derives all firing decisions from these documents, so the timer set
// survives restarts by construction.
type DisputeTimer struct {
	ID        primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	SessionID string             `json:"sessionID" bson:"sessionID"`
	CaseID    string             `json:"caseID" bson:"caseID"`
	Phase     string             `json:"phase" bson:"phase"`
	Deadline  primitive.DateTime `json:"deadline" bson:"deadline"`

	// RemindersSent records the hour offsets (before the deadline) whose
	// reminder already fired, so a sweep never re-sends one.
	RemindersSent []int `json:"remindersSent" bson:"remindersSent"`

	Active    bool               `json:"active" bson:"active"`
	CreatedAt primitive.DateTime `json:"createdAt" bson:"createdAt"`
	UpdatedAt primitive.DateTime `json:"updatedAt" bson:"updatedAt"`
}

// ReminderFired reports whether the reminder at the given offset already fired
func (t DisputeTimer) ReminderFired(offsetHours int) bool {
	for _, o := range t.RemindersSent {
		if o == offsetHours {
			return true
		}
	}
	return false
}
