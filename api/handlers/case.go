package handlers

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/accordlabs/dispute-mediation-api/api"
	"github.com/accordlabs/dispute-mediation-api/api/escalation"
	"github.com/accordlabs/dispute-mediation-api/config"
	"github.com/accordlabs/dispute-mediation-api/databases"
	"github.com/accordlabs/dispute-mediation-api/models"
)

// Case exported for testing purposes
type Case struct {
	DB          databases.CaseDatabase
	ADB         databases.ActivityDatabase
	Coordinator *escalation.Coordinator
}

// CreateCaseHandler opens a new dispute case in mediation
func (c Case) CreateCaseHandler(w http.ResponseWriter, r *http.Request) {
	var disputeCase models.DisputeCase
	if err := json.NewDecoder(r.Body).Decode(&disputeCase.Details); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if disputeCase.Details.ClaimantID == "" || disputeCase.Details.RespondentID == "" {
		config.ErrorStatus("failed to validate request body", http.StatusBadRequest, w, fmt.Errorf("claimantID and respondentID are required"))
		return
	}

	disputeCase.ID = primitive.NewObjectID()
	now := primitive.NewDateTimeFromTime(time.Now().UTC())
	disputeCase.Details.Status = models.CaseStatusMediation
	disputeCase.Details.CompromiseRounds = 0
	disputeCase.Details.Forwarding = nil
	disputeCase.Details.OpenedAt = now
	disputeCase.Details.CreatedAt = now
	disputeCase.Details.UpdatedAt = now

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if _, err := c.DB.InsertOne(ctx, disputeCase); err != nil {
		config.ErrorStatus("failed to create dispute case", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Dispute case created successfully",
		"id":      disputeCase.ID.Hex(),
		"status":  disputeCase.Details.Status,
	})
}

// CaseByIDHandler returns a dispute case by ID
func (c Case) CaseByIDHandler(w http.ResponseWriter, r *http.Request) {
	caseID := mux.Vars(r)["case_id"]

	bID, err := primitive.ObjectIDFromHex(caseID)
	if err != nil {
		config.ErrorStatus("invalid dispute case ID", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	dbResp, err := c.DB.FindOne(ctx, bson.M{"_id": bID})
	if err != nil {
		config.ErrorStatus("failed to find dispute case", http.StatusNotFound, w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(dbResp)
}

// CasesByPartyHandler returns paginated cases where the party is claimant or respondent
func (c Case) CasesByPartyHandler(w http.ResponseWriter, r *http.Request) {
	partyID := mux.Vars(r)["party_id"]
	status := r.URL.Query().Get("status")
	Limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || Limit <= 0 {
		Limit = 10
	}
	limit64 := int64(Limit)
	Page := getPage(0, r)
	skip64 := int64(Page * Limit)

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	filter := bson.M{
		"$or": []bson.M{
			{"disputeCase.claimantID": partyID},
			{"disputeCase.respondentID": partyID},
		},
	}
	if status != "" {
		filter["disputeCase.status"] = status
	}

	cases, err := c.DB.Find(ctx, filter, &options.FindOptions{
		Limit: &limit64,
		Skip:  &skip64,
		Sort:  bson.M{"_id": -1},
	})
	if err != nil {
		config.ErrorStatus("failed to get dispute cases", http.StatusNotFound, w, err)
		return
	}
	if len(cases) == 0 {
		cases = []models.DisputeCase{}
	}

	totalCount, err := c.DB.CountDocuments(ctx, filter)
	if err != nil {
		config.ErrorStatus("failed to count dispute cases", http.StatusInternalServerError, w, err)
		return
	}
	totalPages := int(math.Ceil(float64(totalCount) / float64(Limit)))

	response := map[string]interface{}{
		"data":       cases,
		"page":       Page,
		"limit":      Limit,
		"totalCount": totalCount,
		"totalPages": totalPages,
	}

	b, err := json.Marshal(response)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// CaseActivityHandler returns a page of the case's audit trail, newest first
func (c Case) CaseActivityHandler(w http.ResponseWriter, r *http.Request) {
	caseID := mux.Vars(r)["case_id"]
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = 50
	}
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page <= 0 {
		page = 1
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	entries, err := c.ADB.FindByCase(ctx, caseID, limit, page)
	if err != nil {
		config.ErrorStatus("failed to get case activity", http.StatusNotFound, w, err)
		return
	}
	if len(entries) == 0 {
		entries = []models.ActivityLogEntry{}
	}

	b, err := json.Marshal(entries)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// EscalationStatusHandler reports whether the case currently qualifies for
// automatic court forwarding, and why
func (c Case) EscalationStatusHandler(w http.ResponseWriter, r *http.Request) {
	caseID := mux.Vars(r)["case_id"]

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	qualifies, reason, err := c.Coordinator.ShouldAutoForward(ctx, caseID)
	if err != nil {
		writeDomainError("failed to evaluate escalation status", w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"caseID":    caseID,
		"qualifies": qualifies,
		"reason":    reason,
	})
}

// ForwardCaseHandler files the case with the external court system
func (c Case) ForwardCaseHandler(w http.ResponseWriter, r *http.Request) {
	caseID := mux.Vars(r)["case_id"]

	var body struct {
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if body.Reason == "" {
		body.Reason = "manual escalation"
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if err := c.Coordinator.AutoForwardCase(ctx, caseID, body.Reason); err != nil {
		writeDomainError("failed to forward case", w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Case forwarded to court successfully",
	})
}
