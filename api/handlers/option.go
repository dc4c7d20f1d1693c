package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/accordlabs/dispute-mediation-api/api"
	"github.com/accordlabs/dispute-mediation-api/api/consensus"
	"github.com/accordlabs/dispute-mediation-api/config"
	"github.com/accordlabs/dispute-mediation-api/databases"
	"github.com/accordlabs/dispute-mediation-api/models"
)

// Option exported for testing purposes
type Option struct {
	DB        databases.OptionDatabase
	Evaluator *consensus.Evaluator
}

// CreateOptionHandler adds a proposed settlement option to a case
func (o Option) CreateOptionHandler(w http.ResponseWriter, r *http.Request) {
	caseID := mux.Vars(r)["case_id"]

	var option models.SettlementOption
	if err := json.NewDecoder(r.Body).Decode(&option); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	option.ID = primitive.NewObjectID()
	option.CaseID = caseID
	if option.Source == "" {
		option.Source = models.OptionSourceProposed
	}
	option.CreatedAt = primitive.NewDateTimeFromTime(o.Evaluator.Clock.Now())

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if _, err := o.DB.InsertOne(ctx, option); err != nil {
		config.ErrorStatus("failed to create settlement option", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Settlement option created successfully",
		"id":      option.ID.Hex(),
	})
}

// OptionsByCaseHandler lists the settlement options on the table for a case
func (o Option) OptionsByCaseHandler(w http.ResponseWriter, r *http.Request) {
	caseID := mux.Vars(r)["case_id"]

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	options, err := o.DB.Find(ctx, bson.M{"caseID": caseID})
	if err != nil {
		config.ErrorStatus("failed to get settlement options", http.StatusNotFound, w, err)
		return
	}
	if len(options) == 0 {
		options = []models.SettlementOption{}
	}

	b, err := json.Marshal(options)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// SelectOptionHandler records one party's selection and re-checks consensus
func (o Option) SelectOptionHandler(w http.ResponseWriter, r *http.Request) {
	caseID := mux.Vars(r)["case_id"]

	var body struct {
		UserID   string `json:"userID"`
		OptionID string `json:"optionID"`
		Decision string `json:"decision"`
		Comments string `json:"comments"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	result, err := o.Evaluator.SelectOption(ctx, caseID, body.UserID, body.OptionID, body.Decision, body.Comments)
	if err != nil {
		writeDomainError("failed to record option selection", w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(result)
}

// ConsensusHandler re-evaluates consensus for a case without a new selection
func (o Option) ConsensusHandler(w http.ResponseWriter, r *http.Request) {
	caseID := mux.Vars(r)["case_id"]

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	result, err := o.Evaluator.CheckConsensus(ctx, caseID)
	if err != nil {
		writeDomainError("failed to check consensus", w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(result)
}
