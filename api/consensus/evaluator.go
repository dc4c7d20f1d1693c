package consensus

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
	"go.uber.org/zap"

	"github.com/accordlabs/dispute-mediation-api/databases"
	"github.com/accordlabs/dispute-mediation-api/gateways"
	"github.com/accordlabs/dispute-mediation-api/models"
)

// maxCompromiseRounds bounds how many compromise generations a case may
// consume. A mismatch beyond the bound flips the case into the escalation
// path instead of asking the generator again.
const maxCompromiseRounds = 3

const backgroundTimeout = 2 * time.Minute

// Consensus check statuses
const (
	StatusWaiting   = "waiting"
	StatusConsensus = "consensus"
	StatusMismatch  = "mismatch"
)

// Escalator is the slice of the escalation coordinator the evaluator needs
type Escalator interface {
	HandleFailedMediation(ctx context.Context, caseID, trigger string)
}

// Result is the outcome of one consensus check
type Result struct {
	Status              string `json:"status"`
	OptionID            string `json:"optionID,omitempty"`
	CompromiseRequested bool   `json:"compromiseRequested"`
}

// Evaluator detects agreement across the two parties' independent option
// selections and requests compromises on mismatch.
type Evaluator struct {
	SelDB     databases.SelectionDatabase
	ODB       databases.OptionDatabase
	CDB       databases.CaseDatabase
	ADB       databases.ActivityDatabase
	Generator gateways.CompromiseGenerator
	Notifier  gateways.NotificationGateway
	Clock     gateways.Clock
	Escalate  Escalator

	locks sync.Map // case hex id -> *sync.Mutex
}

// NewEvaluator creates the consensus evaluator with injected dependencies
func NewEvaluator(
	selDB databases.SelectionDatabase,
	odb databases.OptionDatabase,
	cdb databases.CaseDatabase,
	adb databases.ActivityDatabase,
	generator gateways.CompromiseGenerator,
	notifier gateways.NotificationGateway,
	clock gateways.Clock,
	escalate Escalator,
) *Evaluator {
	return &Evaluator{
		SelDB:     selDB,
		ODB:       odb,
		CDB:       cdb,
		ADB:       adb,
		Generator: generator,
		Notifier:  notifier,
		Clock:     clock,
		Escalate:  escalate,
	}
}

// SelectOption upserts one selection per (case, user) — the last write wins —
// and immediately re-checks consensus.
func (ev *Evaluator) SelectOption(ctx context.Context, caseID, userID, optionID, decision, comments string) (*Result, error) {
	if decision == "" {
		decision = models.SelectionDecisionSelected
	}
	if decision != models.SelectionDecisionSelected && decision != models.SelectionDecisionRejectedAll {
		return nil, &models.ValidationError{Field: "decision", Reason: fmt.Sprintf("unknown decision %q", decision)}
	}

	disputeCase, err := ev.loadCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if disputeCase.Details.IsSettledTerminal() {
		return nil, &models.ConflictError{Reason: fmt.Sprintf("case is already %s", disputeCase.Details.Status)}
	}

	role, err := roleFor(disputeCase, userID)
	if err != nil {
		return nil, err
	}

	if decision == models.SelectionDecisionSelected {
		if optionID == "" {
			return nil, &models.ValidationError{Field: "optionID", Reason: "required when selecting an option"}
		}
		if err := ev.verifyOption(ctx, caseID, optionID); err != nil {
			return nil, err
		}
	}

	now := primitive.NewDateTimeFromTime(ev.Clock.Now())
	update := bson.M{
		"$set": bson.M{
			"caseID":     caseID,
			"userID":     userID,
			"role":       role,
			"optionID":   optionID,
			"decision":   decision,
			"comments":   comments,
			"selectedAt": now,
		},
	}
	if decision == models.SelectionDecisionRejectedAll {
		update["$inc"] = bson.M{"rejections": 1}
	}
	if _, err := ev.SelDB.UpsertOne(ctx, bson.M{"caseID": caseID, "userID": userID}, update); err != nil {
		return nil, err
	}

	ev.appendActivity(ctx, caseID, models.EventOptionSelected, userID, map[string]interface{}{
		"optionID": optionID,
		"decision": decision,
		"role":     role,
	})

	return ev.CheckConsensus(ctx, caseID)
}

// CheckConsensus compares the most recent selections of the two required
// roles. Consensus holds iff both reference the same option. On mismatch at
// most one compromise request is issued per detected mismatch, bounded by
// maxCompromiseRounds across the case's lifetime.
func (ev *Evaluator) CheckConsensus(ctx context.Context, caseID string) (*Result, error) {
	unlock := ev.lockCase(caseID)
	defer unlock()

	disputeCase, err := ev.loadCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if disputeCase.Details.IsSettledTerminal() {
		return nil, &models.ConflictError{Reason: fmt.Sprintf("case is already %s", disputeCase.Details.Status)}
	}

	selections, err := ev.SelDB.Find(ctx, bson.M{"caseID": caseID})
	if err != nil {
		return nil, err
	}

	byRole := map[string]*models.OptionSelection{}
	for i := range selections {
		byRole[selections[i].Role] = &selections[i]
	}

	claimant := byRole[models.RoleClaimant]
	respondent := byRole[models.RoleRespondent]
	if claimant == nil || respondent == nil {
		return &Result{Status: StatusWaiting}, nil
	}

	// a rejected_all from either side never produces consensus; the
	// escalation heuristics decide what happens next
	if claimant.Decision == models.SelectionDecisionRejectedAll || respondent.Decision == models.SelectionDecisionRejectedAll {
		ev.escalateAsync(caseID, "options_rejected")
		return &Result{Status: StatusMismatch}, nil
	}

	if claimant.OptionID == respondent.OptionID {
		return ev.commitConsensus(ctx, disputeCase, claimant.OptionID)
	}
	return ev.handleMismatch(ctx, disputeCase, claimant, respondent)
}

// commitConsensus transitions the workflow to consensus_reached
func (ev *Evaluator) commitConsensus(ctx context.Context, disputeCase *models.DisputeCase, optionID string) (*Result, error) {
	now := primitive.NewDateTimeFromTime(ev.Clock.Now())
	caseID := disputeCase.ID.Hex()

	res, err := ev.CDB.UpdateOne(ctx,
		bson.M{"_id": disputeCase.ID, "disputeCase.status": bson.M{
			"$in": []string{models.CaseStatusMediation, models.CaseStatusReanalysis},
		}},
		bson.M{"$set": bson.M{
			"disputeCase.status":    models.CaseStatusConsensusReached,
			"disputeCase.updatedAt": now,
		}},
	)
	if err != nil {
		return nil, err
	}
	if res.MatchedCount > 0 {
		ev.appendActivity(ctx, caseID, models.EventConsensusReached, "", map[string]interface{}{
			"optionID": optionID,
		})
		ev.notifyAsync(caseID, models.EventConsensusReached, []string{
			disputeCase.Details.ClaimantID,
			disputeCase.Details.RespondentID,
		}, map[string]interface{}{
			"caseID":   caseID,
			"optionID": optionID,
		})
	}
	return &Result{Status: StatusConsensus, OptionID: optionID}, nil
}

// handleMismatch requests a compromise option, at most once per detected
// mismatch, and moves the workflow into reanalysis.
func (ev *Evaluator) handleMismatch(ctx context.Context, disputeCase *models.DisputeCase, claimant, respondent *models.OptionSelection) (*Result, error) {
	caseID := disputeCase.ID.Hex()

	if disputeCase.Details.CompromiseRounds >= maxCompromiseRounds {
		ev.appendActivity(ctx, caseID, models.EventDependencyFailed, "", map[string]interface{}{
			"reason": "compromise round limit reached",
			"rounds": disputeCase.Details.CompromiseRounds,
		})
		ev.escalateAsync(caseID, "compromise_rounds_exhausted")
		return &Result{Status: StatusMismatch}, nil
	}

	now := primitive.NewDateTimeFromTime(ev.Clock.Now())

	// CAS on the current compromise count: whichever caller wins the
	// update owns this mismatch's single generation request
	res, err := ev.CDB.UpdateOne(ctx,
		bson.M{
			"_id": disputeCase.ID,
			"disputeCase.compromiseRounds": disputeCase.Details.CompromiseRounds,
			"disputeCase.status": bson.M{
				"$in": []string{models.CaseStatusMediation, models.CaseStatusReanalysis},
			},
		},
		bson.M{
			"$inc": bson.M{"disputeCase.compromiseRounds": 1},
			"$set": bson.M{
				"disputeCase.status":    models.CaseStatusReanalysis,
				"disputeCase.updatedAt": now,
			},
		},
	)
	if err != nil {
		return nil, err
	}
	if res.MatchedCount == 0 {
		// another caller already claimed this mismatch
		return &Result{Status: StatusMismatch}, nil
	}

	ev.appendActivity(ctx, caseID, models.EventCompromiseAsked, "", map[string]interface{}{
		"claimantOption":   claimant.OptionID,
		"respondentOption": respondent.OptionID,
		"round":            disputeCase.Details.CompromiseRounds + 1,
	})

	ev.generateCompromiseAsync(caseID, disputeCase.Details.Title, claimant.OptionID, respondent.OptionID)
	return &Result{Status: StatusMismatch, CompromiseRequested: true}, nil
}

// generateCompromiseAsync runs the slow generator off the request path and
// persists its output as a new settlement option when it arrives
func (ev *Evaluator) generateCompromiseAsync(caseID, title, optionAID, optionBID string) {
	if ev.Generator == nil {
		return
	}
	ev.safeGo("compromise generation", func(ctx context.Context) {
		optionA, err := ev.findOption(ctx, caseID, optionAID)
		if err != nil {
			zap.S().Errorw("compromise generation aborted, option missing", "caseId", caseID, "optionId", optionAID, "error", err)
			return
		}
		optionB, err := ev.findOption(ctx, caseID, optionBID)
		if err != nil {
			zap.S().Errorw("compromise generation aborted, option missing", "caseId", caseID, "optionId", optionBID, "error", err)
			return
		}

		compromise, err := ev.Generator.Generate(ctx, *optionA, *optionB, title)
		if err != nil {
			zap.S().Errorw("compromise generation failed", "caseId", caseID, "error", err)
			ev.appendActivity(ctx, caseID, models.EventDependencyFailed, "", map[string]interface{}{
				"dependency": "compromise-generator",
				"error":      err.Error(),
			})
			return
		}

		compromise.CaseID = caseID
		compromise.CreatedAt = primitive.NewDateTimeFromTime(ev.Clock.Now())
		if _, err := ev.ODB.InsertOne(ctx, *compromise); err != nil {
			zap.S().Errorw("failed to persist compromise option", "caseId", caseID, "error", err)
			return
		}
		zap.S().Infow("compromise option persisted", "caseId", caseID, "title", compromise.Title)
	})
}

// --- helpers ---

func (ev *Evaluator) lockCase(caseID string) func() {
	v, _ := ev.locks.LoadOrStore(caseID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (ev *Evaluator) loadCase(ctx context.Context, caseID string) (*models.DisputeCase, error) {
	oid, err := primitive.ObjectIDFromHex(caseID)
	if err != nil {
		return nil, &models.ValidationError{Field: "caseID", Reason: "not a valid id"}
	}
	disputeCase, err := ev.CDB.FindOne(ctx, bson.M{"_id": oid})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &models.NotFoundError{Resource: "case", ID: caseID}
		}
		return nil, err
	}
	return disputeCase, nil
}

func (ev *Evaluator) verifyOption(ctx context.Context, caseID, optionID string) error {
	_, err := ev.findOption(ctx, caseID, optionID)
	return err
}

func (ev *Evaluator) findOption(ctx context.Context, caseID, optionID string) (*models.SettlementOption, error) {
	oid, err := primitive.ObjectIDFromHex(optionID)
	if err != nil {
		return nil, &models.ValidationError{Field: "optionID", Reason: "not a valid id"}
	}
	option, err := ev.ODB.FindOne(ctx, bson.M{"_id": oid, "caseID": caseID})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &models.NotFoundError{Resource: "option", ID: optionID}
		}
		return nil, err
	}
	return option, nil
}

func (ev *Evaluator) appendActivity(ctx context.Context, caseID, event, actor string, details map[string]interface{}) {
	entry := models.ActivityLogEntry{
		EntryID:   uuid.New().String(),
		CaseID:    caseID,
		Event:     event,
		Actor:     actor,
		Details:   details,
		CreatedAt: primitive.NewDateTimeFromTime(ev.Clock.Now()),
	}
	if _, err := ev.ADB.InsertOne(ctx, entry); err != nil {
		zap.S().Errorw("failed to append activity log entry", "event", event, "caseId", caseID, "error", err)
	}
}

func (ev *Evaluator) notifyAsync(caseID, event string, recipients []string, payload map[string]interface{}) {
	if ev.Notifier == nil {
		return
	}
	ev.safeGo("notification dispatch", func(ctx context.Context) {
		if err := ev.Notifier.Notify(ctx, event, recipients, payload); err != nil {
			zap.S().Errorw("failed to dispatch notification", "event", event, "error", err)
			ev.appendActivity(ctx, caseID, models.EventDependencyFailed, "", map[string]interface{}{
				"dependency": "notification",
				"event":      event,
				"error":      err.Error(),
			})
		}
	})
}

func (ev *Evaluator) escalateAsync(caseID, trigger string) {
	if ev.Escalate == nil {
		return
	}
	ev.safeGo("escalation check", func(ctx context.Context) {
		ev.Escalate.HandleFailedMediation(ctx, caseID, trigger)
	})
}

func (ev *Evaluator) safeGo(name string, fn func(ctx context.Context)) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				zap.S().Errorw("recovered panic in background task", "task", name, "panic", r)
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), backgroundTimeout)
		defer cancel()
		fn(ctx)
	}()
}

func roleFor(disputeCase *models.DisputeCase, userID string) (string, error) {
	switch userID {
	case disputeCase.Details.ClaimantID:
		return models.RoleClaimant, nil
	case disputeCase.Details.RespondentID:
		return models.RoleRespondent, nil
	default:
		return "", &models.NotFoundError{Resource: "party", ID: userID}
	}
}
