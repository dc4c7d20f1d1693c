package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"github.com/accordlabs/dispute-mediation-api/api"
	"github.com/accordlabs/dispute-mediation-api/config"
	"github.com/accordlabs/dispute-mediation-api/databases"
	"github.com/accordlabs/dispute-mediation-api/models"
)

// Party exported for testing purposes
type Party struct {
	DB databases.PartyDatabase
}

// PartyCreateHandler registers a new party with a bcrypt-hashed password
func (p Party) PartyCreateHandler(w http.ResponseWriter, r *http.Request) {
	var details models.PartyDetails
	if err := json.NewDecoder(r.Body).Decode(&details); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if details.Email == "" || details.Password == "" {
		config.ErrorStatus("failed to validate request body", http.StatusBadRequest, w, fmt.Errorf("email and password are required"))
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	existing, err := p.DB.Find(ctx, bson.M{"party.email": details.Email})
	if err == nil && len(existing) > 0 {
		config.ErrorStatus("failed to create party", http.StatusConflict, w, fmt.Errorf("email is already registered"))
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(details.Password), bcrypt.DefaultCost)
	if err != nil {
		config.ErrorStatus("failed to hash password", http.StatusInternalServerError, w, err)
		return
	}
	details.Password = string(hashed)

	now := primitive.NewDateTimeFromTime(time.Now().UTC())
	details.CreatedAt = now
	details.UpdatedAt = now

	party := models.Party{
		ID:      primitive.NewObjectID().Hex(),
		Details: details,
	}
	if _, err := p.DB.InsertOne(ctx, party); err != nil {
		config.ErrorStatus("failed to create party", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Party created successfully",
		"id":      party.ID,
	})
}

// PartyByIDHandler returns a party by ID, password redacted
func (p Party) PartyByIDHandler(w http.ResponseWriter, r *http.Request) {
	partyID := mux.Vars(r)["party_id"]

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	party, err := p.DB.FindOne(ctx, bson.M{"_id": partyID})
	if err != nil {
		config.ErrorStatus("failed to get party by ID", http.StatusNotFound, w, err)
		return
	}

	party.Details.Password = ""
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(party)
}
