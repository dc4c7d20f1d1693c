package models

// Party holds the structure for the parties collection in mongo
type Party struct {
	ID      string       `json:"_id" bson:"_id"`
	Details PartyDetails `json:"party" bson:"party"`
	Version int32        `json:"__v" bson:"__v"`
}

// PartyDetails holds the structure for the inner party details
type PartyDetails struct {
	Email     string      `json:"email" bson:"email"`
	Name      string      `json:"name" bson:"name"`
	Password  string      `json:"password" bson:"password"`
	Phone     string      `json:"phone" bson:"phone"`
	CreatedAt interface{} `json:"createdAt" bson:"createdAt"`
	UpdatedAt interface{} `json:"updatedAt" bson:"updatedAt"`
}
