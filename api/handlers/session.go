package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/accordlabs/dispute-mediation-api/api"
	"github.com/accordlabs/dispute-mediation-api/api/negotiation"
	"github.com/accordlabs/dispute-mediation-api/api/scheduler"
	"github.com/accordlabs/dispute-mediation-api/config"
	"github.com/accordlabs/dispute-mediation-api/models"
)

// Session exported for testing purposes
type Session struct {
	Engine    *negotiation.Engine
	Scheduler *scheduler.Scheduler
}

// CreateSessionHandler opens a new negotiation session for a case
func (s Session) CreateSessionHandler(w http.ResponseWriter, r *http.Request) {
	var in negotiation.CreateSessionInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	session, err := s.Engine.CreateSession(ctx, in)
	if err != nil {
		writeDomainError("failed to create negotiation session", w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(session)
}

// SessionByIDHandler returns a negotiation session by ID
func (s Session) SessionByIDHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["session_id"]

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	session, err := s.Engine.GetSession(ctx, sessionID)
	if err != nil {
		writeDomainError("failed to get negotiation session", w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(session)
}

// SubmitResponseHandler records one party's decision for the current round
func (s Session) SubmitResponseHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["session_id"]

	var body struct {
		UserID       string        `json:"userID"`
		Round        int           `json:"round"`
		Decision     string        `json:"decision"`
		CounterOffer *models.Offer `json:"counterOffer,omitempty"`
		Message      string        `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	session, err := s.Engine.SubmitResponse(ctx, sessionID, body.UserID, body.Round, body.Decision, body.CounterOffer, body.Message)
	if err != nil {
		writeDomainError("failed to submit response", w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(session)
}

// CancelSessionHandler terminally cancels an active session
func (s Session) CancelSessionHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["session_id"]

	var body struct {
		CancelledBy string `json:"cancelledBy"`
		Reason      string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if err := s.Engine.CancelSession(ctx, sessionID, body.CancelledBy, body.Reason); err != nil {
		writeDomainError("failed to cancel negotiation session", w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Negotiation session cancelled successfully",
	})
}

// ExtendDeadlineHandler pushes the session's deadline forward
func (s Session) ExtendDeadlineHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["session_id"]

	var body struct {
		AdditionalHours int `json:"additionalHours"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if err := s.Scheduler.Extend(ctx, sessionID, body.AdditionalHours); err != nil {
		writeDomainError("failed to extend deadline", w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message":         "Deadline extended successfully",
		"additionalHours": body.AdditionalHours,
	})
}
