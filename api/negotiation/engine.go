package negotiation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/accordlabs/dispute-mediation-api/databases"
	"github.com/accordlabs/dispute-mediation-api/gateways"
	"github.com/accordlabs/dispute-mediation-api/models"
)

const (
	cacheTTL        = 30 * time.Second
	cacheMaxEntries = 1024

	notifyTimeout = 30 * time.Second
)

// Escalator is the slice of the escalation coordinator the engine needs: it
// is told when mediation failed for a case and decides whether to forward.
type Escalator interface {
	HandleFailedMediation(ctx context.Context, caseID, trigger string)
}

// Engine owns the negotiation session lifecycle: creation, response
// aggregation, the outcome decision table, cancellation and expiry. One
// long-lived instance is built at startup with its collaborators injected.
type Engine struct {
	SDB      databases.SessionDatabase
	TDB      databases.TimerDatabase
	CDB      databases.CaseDatabase
	ADB      databases.ActivityDatabase
	Notifier gateways.NotificationGateway
	Clock    gateways.Clock
	Escalate Escalator

	cache *sessionCache
	locks sync.Map // session hex id -> *sync.Mutex
}

// NewEngine creates the negotiation engine with injected dependencies
func NewEngine(
	sdb databases.SessionDatabase,
	tdb databases.TimerDatabase,
	cdb databases.CaseDatabase,
	adb databases.ActivityDatabase,
	notifier gateways.NotificationGateway,
	clock gateways.Clock,
	escalate Escalator,
) *Engine {
	return &Engine{
		SDB:      sdb,
		TDB:      tdb,
		CDB:      cdb,
		ADB:      adb,
		Notifier: notifier,
		Clock:    clock,
		Escalate: escalate,
		cache:    newSessionCache(cacheTTL, cacheMaxEntries),
	}
}

// PartyRef identifies one participant of a new session
type PartyRef struct {
	UserID string `json:"userID"`
	Role   string `json:"role"`
}

// CreateSessionInput carries everything needed to open a negotiation session
type CreateSessionInput struct {
	CaseID             string       `json:"caseID"`
	InitiatorID        string       `json:"initiatorID"`
	InitialOffer       models.Offer `json:"initialOffer"`
	MaxRounds          int          `json:"maxRounds"`
	DeadlineHours      int          `json:"deadlineHours"`
	AllowCounterOffers bool         `json:"allowCounterOffers"`
	Parties            []PartyRef   `json:"parties"`
}

// CreateSession validates the input, persists the session with all
// participants as one document (all-or-nothing), arms the response-phase
// timer and fans out the invitations.
func (e *Engine) CreateSession(ctx context.Context, in CreateSessionInput) (*models.NegotiationSession, error) {
	if len(in.Parties) < 2 {
		return nil, &models.ValidationError{Field: "parties", Reason: "at least two parties are required"}
	}
	if in.MaxRounds < 1 {
		return nil, &models.ValidationError{Field: "maxRounds", Reason: "must be at least 1"}
	}
	if in.DeadlineHours <= 0 {
		return nil, &models.ValidationError{Field: "deadlineHours", Reason: "must be positive"}
	}
	if _, err := e.loadCase(ctx, in.CaseID); err != nil {
		return nil, err
	}

	now := e.Clock.Now()
	deadline := now.Add(time.Duration(in.DeadlineHours) * time.Hour)

	participants := make([]models.SessionParticipant, 0, len(in.Parties))
	for _, p := range in.Parties {
		participants = append(participants, models.SessionParticipant{
			UserID: p.UserID,
			Role:   p.Role,
		})
	}

	offer := in.InitialOffer
	offer.ProposedBy = in.InitiatorID
	offer.SubmittedAt = primitive.NewDateTimeFromTime(now)

	session := models.NegotiationSession{
		ID: primitive.NewObjectID(),
		Details: models.NegotiationSessionDetails{
			CaseID:             in.CaseID,
			InitiatorID:        in.InitiatorID,
			Status:             models.SessionStatusActive,
			CurrentRound:       1,
			MaxRounds:          in.MaxRounds,
			Deadline:           primitive.NewDateTimeFromTime(deadline),
			DeadlineHours:      in.DeadlineHours,
			AllowCounterOffers: in.AllowCounterOffers,
			InitialOffer:       offer,
			CurrentOffer:       offer,
			Participants:       participants,
			Responses:          []models.SessionResponse{},
			CreatedAt:          primitive.NewDateTimeFromTime(now),
			UpdatedAt:          primitive.NewDateTimeFromTime(now),
		},
	}

	if _, err := e.SDB.InsertOne(ctx, session); err != nil {
		return nil, &models.FatalAtomicityError{Op: "session create", Err: err}
	}

	// the timer is part of the creation unit: a persisted active session
	// without a deadline would never expire
	timer := models.DisputeTimer{
		SessionID:     session.ID.Hex(),
		CaseID:        in.CaseID,
		Phase:         models.TimerPhaseResponse,
		Deadline:      session.Details.Deadline,
		RemindersSent: []int{},
		Active:        true,
		CreatedAt:     primitive.NewDateTimeFromTime(now),
		UpdatedAt:     primitive.NewDateTimeFromTime(now),
	}
	if _, err := e.TDB.InsertOne(ctx, timer); err != nil {
		if delErr := e.SDB.DeleteOne(ctx, bson.M{"_id": session.ID}); delErr != nil {
			zap.S().Errorw("failed to roll back session after timer arm failure",
				"sessionId", session.ID.Hex(), "error", delErr)
		}
		return nil, &models.FatalAtomicityError{Op: "session create", Err: err}
	}

	e.appendActivity(ctx, in.CaseID, session.ID.Hex(), models.EventSessionCreated, in.InitiatorID, map[string]interface{}{
		"maxRounds":     in.MaxRounds,
		"deadlineHours": in.DeadlineHours,
		"amount":        in.InitialOffer.Amount,
	})

	e.notifyAsync(models.EventSessionCreated, participantIDs(participants), map[string]interface{}{
		"sessionID": session.ID.Hex(),
		"caseID":    in.CaseID,
		"amount":    in.InitialOffer.Amount,
		"deadline":  deadline.Format(time.RFC3339),
	}, in.CaseID, session.ID.Hex())

	e.cache.put(session.ID.Hex(), &session, now)
	return &session, nil
}

// SubmitResponse records one party's decision for the current round. When
// the last outstanding participant responds, the outcome is evaluated
// synchronously on the same call.
func (e *Engine) SubmitResponse(ctx context.Context, sessionID, userID string, round int, decision string, counterOffer *models.Offer, message string) (*models.NegotiationSession, error) {
	switch decision {
	case models.DecisionAccept, models.DecisionReject:
	case models.DecisionCounter:
		if counterOffer == nil {
			return nil, &models.ValidationError{Field: "counterOffer", Reason: "required for a counter decision"}
		}
	default:
		return nil, &models.ValidationError{Field: "decision", Reason: fmt.Sprintf("unknown decision %q", decision)}
	}

	unlock := e.lockSession(sessionID)
	defer unlock()

	session, err := e.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Details.IsTerminal() {
		return nil, &models.ConflictError{Reason: fmt.Sprintf("session is already %s", session.Details.Status)}
	}
	if round != session.Details.CurrentRound {
		return nil, &models.ConflictError{Reason: fmt.Sprintf("response is for round %d but the session is in round %d", round, session.Details.CurrentRound)}
	}
	participant := findParticipant(session.Details.Participants, userID)
	if participant == nil {
		return nil, &models.NotFoundError{Resource: "participant", ID: userID}
	}
	for _, r := range session.Details.ResponsesForRound(round) {
		if r.UserID == userID {
			return nil, &models.ConflictError{Reason: "a response for this round was already submitted"}
		}
	}

	now := e.Clock.Now()
	response := models.SessionResponse{
		UserID:      userID,
		Round:       round,
		Decision:    decision,
		Message:     message,
		SubmittedAt: primitive.NewDateTimeFromTime(now),
	}
	if decision == models.DecisionCounter {
		co := *counterOffer
		co.ProposedBy = userID
		co.SubmittedAt = response.SubmittedAt
		response.CounterOffer = &co
	}

	// compare-and-set: the filter re-asserts every guard so a concurrent
	// writer (another response, expiry, cancellation) loses cleanly
	filter := bson.M{
		"_id": session.ID,
		"negotiationSession.status":       models.SessionStatusActive,
		"negotiationSession.currentRound": round,
		"negotiationSession.responses": bson.M{
			"$not": bson.M{"$elemMatch": bson.M{"userID": userID, "round": round}},
		},
	}
	update := bson.M{
		"$push": bson.M{"negotiationSession.responses": response},
		"$set": bson.M{
			"negotiationSession.participants.$[p].hasResponded":      true,
			"negotiationSession.participants.$[p].lastResponseRound": round,
			"negotiationSession.updatedAt":                           primitive.NewDateTimeFromTime(now),
		},
	}
	arrayFilters := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{bson.M{"p.userID": userID}},
	})

	e.cache.invalidate(sessionID)
	res, err := e.SDB.UpdateOne(ctx, filter, update, arrayFilters)
	if err != nil {
		return nil, err
	}
	if res.MatchedCount == 0 {
		return nil, &models.ConflictError{Reason: "session state changed while submitting the response"}
	}

	e.appendActivity(ctx, session.Details.CaseID, sessionID, models.EventResponseSubmitted, userID, map[string]interface{}{
		"round":    round,
		"decision": decision,
	})

	session, err = e.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if allResponded(session.Details) {
		if err := e.evaluateLocked(ctx, session); err != nil {
			return nil, err
		}
		session, err = e.loadSession(ctx, sessionID)
		if err != nil {
			return nil, err
		}
	}

	e.cache.put(sessionID, session, now)
	return session, nil
}

// Evaluate runs the outcome decision table for a session. Public entry
// point used by callers that do not already hold the session lock.
func (e *Engine) Evaluate(ctx context.Context, sessionID string) error {
	unlock := e.lockSession(sessionID)
	defer unlock()

	session, err := e.loadSession(ctx, sessionID)
	if err != nil {
		return err
	}
	return e.evaluateLocked(ctx, session)
}

// evaluateLocked applies the decision table. Caller holds the session lock.
//
//  1. all accept                       -> completed_accepted
//  2. all reject                       -> completed_failed
//  3. round cap reached                -> completed_max_rounds
//  4. any counter and counters allowed -> advance round
//  5. otherwise                        -> completed_failed
func (e *Engine) evaluateLocked(ctx context.Context, session *models.NegotiationSession) error {
	if session.Details.IsTerminal() {
		return nil
	}

	responses := session.Details.ResponsesForRound(session.Details.CurrentRound)
	if len(responses) < len(session.Details.Participants) {
		// partial participation: nothing to decide yet
		return nil
	}

	accepts, rejects, counters := 0, 0, 0
	var latestCounter *models.Offer
	for i := range responses {
		switch responses[i].Decision {
		case models.DecisionAccept:
			accepts++
		case models.DecisionReject:
			rejects++
		case models.DecisionCounter:
			counters++
			co := responses[i].CounterOffer
			// most recent counter wins the tie for the next base offer
			if co != nil && (latestCounter == nil || co.SubmittedAt > latestCounter.SubmittedAt) {
				latestCounter = co
			}
		}
	}

	total := len(responses)
	switch {
	case accepts == total:
		return e.completeSession(ctx, session, models.SessionStatusCompletedAccepted)
	case rejects == total:
		return e.completeSession(ctx, session, models.SessionStatusCompletedFailed)
	case session.Details.CurrentRound >= session.Details.MaxRounds:
		return e.completeSession(ctx, session, models.SessionStatusCompletedMaxRounds)
	case counters > 0 && session.Details.AllowCounterOffers && latestCounter != nil:
		return e.advanceRound(ctx, session, *latestCounter)
	default:
		return e.completeSession(ctx, session, models.SessionStatusCompletedFailed)
	}
}

// completeSession commits a terminal status and triggers the follow-on
// effects for it. Caller holds the session lock.
func (e *Engine) completeSession(ctx context.Context, session *models.NegotiationSession, status string) error {
	now := e.Clock.Now()
	sessionID := session.ID.Hex()

	e.cache.invalidate(sessionID)
	res, err := e.SDB.UpdateOne(ctx,
		bson.M{
			"_id": session.ID,
			"negotiationSession.status":       models.SessionStatusActive,
			"negotiationSession.currentRound": session.Details.CurrentRound,
		},
		bson.M{"$set": bson.M{
			"negotiationSession.status":       status,
			"negotiationSession.finalOutcome": status,
			"negotiationSession.updatedAt":    primitive.NewDateTimeFromTime(now),
		}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return &models.ConflictError{Reason: "session reached a terminal state through another writer"}
	}

	e.disarmTimers(ctx, sessionID)
	e.appendActivity(ctx, session.Details.CaseID, sessionID, models.EventSessionCompleted, "", map[string]interface{}{
		"outcome": status,
		"round":   session.Details.CurrentRound,
	})

	switch status {
	case models.SessionStatusCompletedAccepted:
		e.settleCase(ctx, session.Details.CaseID)
		e.notifyAsync(models.EventSessionCompleted, participantIDs(session.Details.Participants), map[string]interface{}{
			"sessionID": sessionID,
			"outcome":   status,
			"amount":    session.Details.CurrentOffer.Amount,
		}, session.Details.CaseID, sessionID)
	case models.SessionStatusCompletedFailed, models.SessionStatusCompletedMaxRounds:
		e.notifyAsync(models.EventSessionCompleted, participantIDs(session.Details.Participants), map[string]interface{}{
			"sessionID": sessionID,
			"outcome":   status,
		}, session.Details.CaseID, sessionID)
		if e.Escalate != nil {
			caseID := session.Details.CaseID
			e.safeGo("escalation check", func(bg context.Context) {
				e.Escalate.HandleFailedMediation(bg, caseID, status)
			})
		}
	}
	return nil
}

// advanceRound moves the session into the next round on a counter offer.
// Caller holds the session lock.
func (e *Engine) advanceRound(ctx context.Context, session *models.NegotiationSession, newOffer models.Offer) error {
	now := e.Clock.Now()
	sessionID := session.ID.Hex()
	nextRound := session.Details.CurrentRound + 1
	newDeadline := now.Add(time.Duration(session.Details.DeadlineHours) * time.Hour)

	e.cache.invalidate(sessionID)
	res, err := e.SDB.UpdateOne(ctx,
		bson.M{
			"_id": session.ID,
			"negotiationSession.status":       models.SessionStatusActive,
			"negotiationSession.currentRound": session.Details.CurrentRound,
		},
		bson.M{"$set": bson.M{
			"negotiationSession.currentRound":                    nextRound,
			"negotiationSession.currentOffer":                    newOffer,
			"negotiationSession.deadline":                        primitive.NewDateTimeFromTime(newDeadline),
			"negotiationSession.participants.$[].hasResponded":   false,
			"negotiationSession.updatedAt":                       primitive.NewDateTimeFromTime(now),
		}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return &models.ConflictError{Reason: "session state changed while advancing the round"}
	}

	// rearm the response timer against the new deadline
	if _, err := e.TDB.UpdateOne(ctx,
		bson.M{"sessionID": sessionID, "phase": models.TimerPhaseResponse, "active": true},
		bson.M{"$set": bson.M{
			"deadline":      primitive.NewDateTimeFromTime(newDeadline),
			"remindersSent": []int{},
			"updatedAt":     primitive.NewDateTimeFromTime(now),
		}},
	); err != nil {
		zap.S().Errorw("failed to rearm response timer after round advance",
			"sessionId", sessionID, "error", err)
	}

	e.appendActivity(ctx, session.Details.CaseID, sessionID, models.EventRoundAdvanced, newOffer.ProposedBy, map[string]interface{}{
		"round":  nextRound,
		"amount": newOffer.Amount,
	})
	e.notifyAsync(models.EventRoundAdvanced, participantIDs(session.Details.Participants), map[string]interface{}{
		"sessionID": sessionID,
		"round":     nextRound,
		"amount":    newOffer.Amount,
	}, session.Details.CaseID, sessionID)
	return nil
}

// CancelSession terminally cancels an active session and disarms its timers
func (e *Engine) CancelSession(ctx context.Context, sessionID, cancelledBy, reason string) error {
	unlock := e.lockSession(sessionID)
	defer unlock()

	session, err := e.loadSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.Details.IsTerminal() {
		return &models.ConflictError{Reason: fmt.Sprintf("session is already %s", session.Details.Status)}
	}

	now := e.Clock.Now()
	e.cache.invalidate(sessionID)
	res, err := e.SDB.UpdateOne(ctx,
		bson.M{"_id": session.ID, "negotiationSession.status": models.SessionStatusActive},
		bson.M{"$set": bson.M{
			"negotiationSession.status":       models.SessionStatusCancelled,
			"negotiationSession.finalOutcome": models.SessionStatusCancelled,
			"negotiationSession.cancelledBy":  cancelledBy,
			"negotiationSession.cancelReason": reason,
			"negotiationSession.updatedAt":    primitive.NewDateTimeFromTime(now),
		}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return &models.ConflictError{Reason: "session reached a terminal state through another writer"}
	}

	e.disarmTimers(ctx, sessionID)
	e.appendActivity(ctx, session.Details.CaseID, sessionID, models.EventSessionCancelled, cancelledBy, map[string]interface{}{
		"reason": reason,
	})
	return nil
}

// HandleExpiry marks a session expired after its deadline lapsed. It is
// idempotent: the status is re-checked under the session lock immediately
// before mutating, so a session that completed through submitResponse in
// the meantime is left untouched even when the timer fires late.
func (e *Engine) HandleExpiry(ctx context.Context, sessionID string) error {
	unlock := e.lockSession(sessionID)
	defer unlock()

	session, err := e.loadSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.Details.IsTerminal() {
		e.disarmTimers(ctx, sessionID)
		return nil
	}

	now := e.Clock.Now()
	e.cache.invalidate(sessionID)
	res, err := e.SDB.UpdateOne(ctx,
		bson.M{"_id": session.ID, "negotiationSession.status": models.SessionStatusActive},
		bson.M{"$set": bson.M{
			"negotiationSession.status":       models.SessionStatusExpired,
			"negotiationSession.finalOutcome": models.SessionStatusExpired,
			"negotiationSession.updatedAt":    primitive.NewDateTimeFromTime(now),
		}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		// lost the race against a response or cancellation: nothing to do
		e.disarmTimers(ctx, sessionID)
		return nil
	}

	e.disarmTimers(ctx, sessionID)
	e.appendActivity(ctx, session.Details.CaseID, sessionID, models.EventSessionExpired, "", map[string]interface{}{
		"round": session.Details.CurrentRound,
	})
	e.notifyAsync(models.EventSessionExpired, participantIDs(session.Details.Participants), map[string]interface{}{
		"sessionID": sessionID,
	}, session.Details.CaseID, sessionID)

	if e.Escalate != nil {
		caseID := session.Details.CaseID
		e.safeGo("escalation check", func(bg context.Context) {
			e.Escalate.HandleFailedMediation(bg, caseID, models.SessionStatusExpired)
		})
	}
	return nil
}

// GetSession returns a session, serving repeated reads from the TTL cache
func (e *Engine) GetSession(ctx context.Context, sessionID string) (*models.NegotiationSession, error) {
	if cached, ok := e.cache.get(sessionID, e.Clock.Now()); ok {
		return cached, nil
	}
	session, err := e.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	e.cache.put(sessionID, session, e.Clock.Now())
	return session, nil
}

// --- helpers ---

func (e *Engine) lockSession(sessionID string) func() {
	v, _ := e.locks.LoadOrStore(sessionID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (e *Engine) loadSession(ctx context.Context, sessionID string) (*models.NegotiationSession, error) {
	oid, err := primitive.ObjectIDFromHex(sessionID)
	if err != nil {
		return nil, &models.ValidationError{Field: "sessionID", Reason: "not a valid id"}
	}
	session, err := e.SDB.FindOne(ctx, bson.M{"_id": oid})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &models.NotFoundError{Resource: "session", ID: sessionID}
		}
		return nil, err
	}
	return session, nil
}

func (e *Engine) loadCase(ctx context.Context, caseID string) (*models.DisputeCase, error) {
	oid, err := primitive.ObjectIDFromHex(caseID)
	if err != nil {
		return nil, &models.ValidationError{Field: "caseID", Reason: "not a valid id"}
	}
	disputeCase, err := e.CDB.FindOne(ctx, bson.M{"_id": oid})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &models.NotFoundError{Resource: "case", ID: caseID}
		}
		return nil, err
	}
	return disputeCase, nil
}

// settleCase flips the parent case to settled after an accepted outcome
func (e *Engine) settleCase(ctx context.Context, caseID string) {
	oid, err := primitive.ObjectIDFromHex(caseID)
	if err != nil {
		return
	}
	now := primitive.NewDateTimeFromTime(e.Clock.Now())
	if _, err := e.CDB.UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{
			"disputeCase.status":    models.CaseStatusSettled,
			"disputeCase.settledAt": now,
			"disputeCase.updatedAt": now,
		}},
	); err != nil {
		zap.S().Errorw("failed to mark case settled", "caseId", caseID, "error", err)
	}
}

func (e *Engine) disarmTimers(ctx context.Context, sessionID string) {
	now := primitive.NewDateTimeFromTime(e.Clock.Now())
	if _, err := e.TDB.UpdateMany(ctx,
		bson.M{"sessionID": sessionID, "active": true},
		bson.M{"$set": bson.M{"active": false, "updatedAt": now}},
	); err != nil {
		zap.S().Errorw("failed to disarm session timers", "sessionId", sessionID, "error", err)
	}
}

func (e *Engine) appendActivity(ctx context.Context, caseID, sessionID, event, actor string, details map[string]interface{}) {
	entry := models.ActivityLogEntry{
		EntryID:   uuid.New().String(),
		CaseID:    caseID,
		SessionID: sessionID,
		Event:     event,
		Actor:     actor,
		Details:   details,
		CreatedAt: primitive.NewDateTimeFromTime(e.Clock.Now()),
	}
	if _, err := e.ADB.InsertOne(ctx, entry); err != nil {
		zap.S().Errorw("failed to append activity log entry",
			"event", event, "sessionId", sessionID, "error", err)
	}
}

// notifyAsync dispatches a notification without blocking the committed
// state transition; failures are logged and recorded as dependency
// failures in the activity log, never propagated.
func (e *Engine) notifyAsync(event string, recipients []string, payload map[string]interface{}, caseID, sessionID string) {
	if e.Notifier == nil {
		return
	}
	e.safeGo("notification dispatch", func(bg context.Context) {
		if err := e.Notifier.Notify(bg, event, recipients, payload); err != nil {
			zap.S().Errorw("failed to dispatch notification", "event", event, "error", err)
			e.appendActivity(bg, caseID, sessionID, models.EventDependencyFailed, "", map[string]interface{}{
				"dependency": "notification",
				"event":      event,
				"error":      err.Error(),
			})
		}
	})
}

func (e *Engine) safeGo(name string, fn func(ctx context.Context)) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				zap.S().Errorw("recovered panic in background task", "task", name, "panic", r)
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		fn(ctx)
	}()
}

func findParticipant(participants []models.SessionParticipant, userID string) *models.SessionParticipant {
	for i := range participants {
		if participants[i].UserID == userID {
			return &participants[i]
		}
	}
	return nil
}

func allResponded(d models.NegotiationSessionDetails) bool {
	return len(d.ResponsesForRound(d.CurrentRound)) >= len(d.Participants)
}

func participantIDs(participants []models.SessionParticipant) []string {
	ids := make([]string, 0, len(participants))
	for _, p := range participants {
		ids = append(ids, p.UserID)
	}
	return ids
}
