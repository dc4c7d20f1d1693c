package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Settlement option sources
const (
	OptionSourceProposed   = "proposed"
	OptionSourceCompromise = "compromise"
)

// SettlementOption holds the structure for the settlementoptions collection in mongo
type SettlementOption struct {
	ID        primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	CaseID    string             `json:"caseID" bson:"caseID"`
	Title     string             `json:"title" bson:"title"`
	Terms     string             `json:"terms" bson:"terms"`
	Amount    float64            `json:"amount" bson:"amount"`
	Source    string             `json:"source" bson:"source"`
	CreatedBy string             `json:"createdBy" bson:"createdBy"`
	CreatedAt primitive.DateTime `json:"createdAt" bson:"createdAt"`
}
