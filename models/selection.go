package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Selection decision values. RejectedAll is the structured signal that a
// party explicitly rejected every presented option in the current round.
const (
	SelectionDecisionSelected    = "selected"
	SelectionDecisionRejectedAll = "rejected_all"
)

// OptionSelection holds the structure for the optionselections collection in
// mongo. One document per (case, user); the latest write is authoritative.
type OptionSelection struct {
	ID         primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	CaseID     string             `json:"caseID" bson:"caseID"`
	UserID     string             `json:"userID" bson:"userID"`
	Role       string             `json:"role" bson:"role"`
	OptionID   string             `json:"optionID" bson:"optionID"`
	Decision   string             `json:"decision" bson:"decision"`
	Comments   string             `json:"comments" bson:"comments"`
	Rejections int                `json:"rejections" bson:"rejections"`
	SelectedAt primitive.DateTime `json:"selectedAt" bson:"selectedAt"`
}
