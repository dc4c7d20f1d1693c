package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Session status values. Transitions are monotonic: once a session leaves
// "active" it never returns.
const (
	SessionStatusActive             = "active"
	SessionStatusCompletedAccepted  = "completed_accepted"
	SessionStatusCompletedFailed    = "completed_failed"
	SessionStatusCompletedMaxRounds = "completed_max_rounds"
	SessionStatusCancelled          = "cancelled"
	SessionStatusExpired            = "expired"
)

// Response decision values
const (
	DecisionAccept  = "accept"
	DecisionReject  = "reject"
	DecisionCounter = "counter"
)

// NegotiationSession holds the structure for the negotiationsessions collection in mongo
type NegotiationSession struct {
	ID      primitive.ObjectID        `json:"_id" bson:"_id"`
	Details NegotiationSessionDetails `json:"negotiationSession" bson:"negotiationSession"`
	Version int32                     `json:"__v" bson:"__v"`
}

// NegotiationSessionDetails holds the structure for the inner negotiation session details
type NegotiationSessionDetails struct {
	CaseID      string `json:"caseID" bson:"caseID"`
	InitiatorID string `json:"initiatorID" bson:"initiatorID"`

	// Status: "active", "completed_accepted", "completed_failed",
	// "completed_max_rounds", "cancelled", "expired"
	Status string `json:"status" bson:"status"`

	CurrentRound       int                `json:"currentRound" bson:"currentRound"`
	MaxRounds          int                `json:"maxRounds" bson:"maxRounds"`
	Deadline           primitive.DateTime `json:"deadline" bson:"deadline"`
	DeadlineHours      int                `json:"deadlineHours" bson:"deadlineHours"`
	AllowCounterOffers bool               `json:"allowCounterOffers" bson:"allowCounterOffers"`

	InitialOffer Offer `json:"initialOffer" bson:"initialOffer"`
	// CurrentOffer is the offer parties are responding to in the current
	// round. It starts as InitialOffer and is replaced when a round
	// advances on a counter.
	CurrentOffer Offer `json:"currentOffer" bson:"currentOffer"`

	Participants []SessionParticipant `json:"participants" bson:"participants"`
	Responses    []SessionResponse    `json:"responses" bson:"responses"`

	FinalOutcome string `json:"finalOutcome" bson:"finalOutcome"`
	CancelledBy  string `json:"cancelledBy" bson:"cancelledBy"`
	CancelReason string `json:"cancelReason" bson:"cancelReason"`

	CreatedAt primitive.DateTime `json:"createdAt" bson:"createdAt"`
	UpdatedAt primitive.DateTime `json:"updatedAt" bson:"updatedAt"`
}

// Offer represents a settlement offer inside a negotiation session
type Offer struct {
	Amount      float64            `json:"amount" bson:"amount"`
	Terms       string             `json:"terms" bson:"terms"`
	ProposedBy  string             `json:"proposedBy" bson:"proposedBy"`
	SubmittedAt primitive.DateTime `json:"submittedAt" bson:"submittedAt"`
}

// SessionParticipant represents one party of a negotiation session
type SessionParticipant struct {
	UserID            string `json:"userID" bson:"userID"`
	Role              string `json:"role" bson:"role"`
	HasResponded      bool   `json:"hasResponded" bson:"hasResponded"`
	LastResponseRound int    `json:"lastResponseRound" bson:"lastResponseRound"`
}

// SessionResponse represents one party's response in one round.
// Unique per (session, user, round).
type SessionResponse struct {
	UserID       string             `json:"userID" bson:"userID"`
	Round        int                `json:"round" bson:"round"`
	Decision     string             `json:"decision" bson:"decision"`
	CounterOffer *Offer             `json:"counterOffer,omitempty" bson:"counterOffer,omitempty"`
	Message      string             `json:"message" bson:"message"`
	SubmittedAt  primitive.DateTime `json:"submittedAt" bson:"submittedAt"`
}

// IsTerminal reports whether the session has reached a terminal status
func (d NegotiationSessionDetails) IsTerminal() bool {
	return d.Status != SessionStatusActive
}

// ResponsesForRound returns the responses submitted for the given round
func (d NegotiationSessionDetails) ResponsesForRound(round int) []SessionResponse {
	var out []SessionResponse
	for _, r := range d.Responses {
		if r.Round == round {
			out = append(out, r)
		}
	}
	return out
}
