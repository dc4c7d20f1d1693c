package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Dispute case workflow statuses
const (
	CaseStatusMediation         = "mediation"
	CaseStatusConsensusReached  = "consensus_reached"
	CaseStatusReanalysis        = "reanalysis"
	CaseStatusSettled           = "settled"
	CaseStatusPendingEscalation = "pending_escalation"
	CaseStatusForwarded         = "forwarded"
)

// Required party roles for consensus
const (
	RoleClaimant   = "claimant"
	RoleRespondent = "respondent"
)

// Court tiers a case can be forwarded to
const (
	CourtTierSmallClaims = "small_claims"
	CourtTierDistrict    = "district"
)

// DisputeCase holds the structure for the disputecases collection in mongo
type DisputeCase struct {
	ID      primitive.ObjectID `json:"_id" bson:"_id"`
	Details DisputeCaseDetails `json:"disputeCase" bson:"disputeCase"`
	Version int32              `json:"__v" bson:"__v"`
}

// DisputeCaseDetails holds the structure for the inner dispute case details
type DisputeCaseDetails struct {
	Title  string  `json:"title" bson:"title"`
	Amount float64 `json:"amount" bson:"amount"`

	ClaimantID   string `json:"claimantID" bson:"claimantID"`
	RespondentID string `json:"respondentID" bson:"respondentID"`

	// Status: "mediation", "consensus_reached", "reanalysis", "settled",
	// "pending_escalation", "forwarded"
	Status string `json:"status" bson:"status"`

	// CompromiseRounds counts how many compromise generations this case
	// has consumed; bounded by the consensus evaluator.
	CompromiseRounds int `json:"compromiseRounds" bson:"compromiseRounds"`

	Forwarding *ForwardingRecord `json:"forwarding,omitempty" bson:"forwarding,omitempty"`

	OpenedAt  primitive.DateTime `json:"openedAt" bson:"openedAt"`
	SettledAt primitive.DateTime `json:"settledAt,omitempty" bson:"settledAt,omitempty"`
	CreatedAt primitive.DateTime `json:"createdAt" bson:"createdAt"`
	UpdatedAt primitive.DateTime `json:"updatedAt" bson:"updatedAt"`
}

// ForwardingRecord is the archival record written when a case is handed off
// to an external judicial process
type ForwardingRecord struct {
	FilingReference string             `json:"filingReference" bson:"filingReference"`
	CourtTier       string             `json:"courtTier" bson:"courtTier"`
	Reason          string             `json:"reason" bson:"reason"`
	ForwardedAt     primitive.DateTime `json:"forwardedAt" bson:"forwardedAt"`
}

// IsSettledTerminal reports whether the case reached a settled terminal state
func (d DisputeCaseDetails) IsSettledTerminal() bool {
	return d.Status == CaseStatusSettled || d.Status == CaseStatusForwarded
}
