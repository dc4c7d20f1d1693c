package escalation

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

const (
	// mediationCeiling is how long a case may sit in mediation before it is
	// force-forwarded to court
	mediationCeiling = 30 * 24 * time.Hour

	// smallClaimsLimit is the dispute-amount threshold that picks the court tier
	smallClaimsLimit = 5000.0

	// requiredRejectionRounds is how often each role must have rejected all
	// presented options before auto-forwarding triggers
	requiredRejectionRounds = 2

	notifyTimeout = 30 * time.Second
)

// Coordinator applies the escalation heuristics and hands terminal failures
// off to the external filing sink.
type Coordinator struct {
	CDB      databases.CaseDatabase
	SelDB    databases.SelectionDatabase
	ADB      databases.ActivityDatabase
	Sink     gateways.EscalationSink
	Notifier gateways.NotificationGateway
	Clock    gateways.Clock

	locks sync.Map // case hex id -> *sync.Mutex
}

// NewCoordinator creates the escalation coordinator with injected dependencies
func NewCoordinator(
	cdb databases.CaseDatabase,
	selDB databases.SelectionDatabase,
	adb databases.ActivityDatabase,
	sink gateways.EscalationSink,
	notifier gateways.NotificationGateway,
	clock gateways.Clock,
) *Coordinator {
	return &Coordinator{
		CDB:      cdb,
		SelDB:    selDB,
		ADB:      adb,
		Sink:     sink,
		Notifier: notifier,
		Clock:    clock,
	}
}

// ShouldAutoForward reports whether the case qualifies for automatic
// forwarding, and why. A case qualifies when both required roles rejected
// all presented options at least twice, or when the mediation window has
// been exceeded without a settled terminal state.
func (c *Coordinator) ShouldAutoForward(ctx context.Context, caseID string) (bool, string, error) {
	disputeCase, err := c.loadCase(ctx, caseID)
	if err != nil {
		return false, "", err
	}
	if disputeCase.Details.IsSettledTerminal() {
		return false, "", nil
	}

	selections, err := c.SelDB.Find(ctx, bson.M{"caseID": caseID})
	if err != nil {
		return false, "", err
	}
	rejectionsByRole := map[string]int{}
	for _, sel := range selections {
		rejectionsByRole[sel.Role] = sel.Rejections
	}
	if rejectionsByRole[models.RoleClaimant] >= requiredRejectionRounds &&
		rejectionsByRole[models.RoleRespondent] >= requiredRejectionRounds {
		return true, "both parties rejected all presented options repeatedly", nil
	}

	elapsed := c.Clock.Now().Sub(disputeCase.Details.OpenedAt.Time())
	if elapsed > mediationCeiling {
		return true, fmt.Sprintf("mediation exceeded the %d-day ceiling", int(mediationCeiling.Hours()/24)), nil
	}

	return false, "", nil
}

// AutoForwardCase files the case with the external court system. The case
// is marked forwarded only after the sink accepted the filing; any failure
// leaves it in pending_escalation.
func (c *Coordinator) AutoForwardCase(ctx context.Context, caseID, reason string) error {
	unlock := c.lockCase(caseID)
	defer unlock()

	disputeCase, err := c.loadCase(ctx, caseID)
	if err != nil {
		return err
	}
	if disputeCase.Details.Status == models.CaseStatusForwarded {
		return &models.ConflictError{Reason: "case was already forwarded"}
	}
	if disputeCase.Details.Status == models.CaseStatusSettled {
		return &models.ConflictError{Reason: "case is already settled"}
	}

	now := primitive.NewDateTimeFromTime(c.Clock.Now())
	tier := courtTier(disputeCase.Details.Amount)

	// park the case in pending_escalation before touching the external
	// system, so a crash mid-filing is visible and recoverable
	if disputeCase.Details.Status != models.CaseStatusPendingEscalation {
		if _, err := c.CDB.UpdateOne(ctx,
			bson.M{"_id": disputeCase.ID, "disputeCase.status": disputeCase.Details.Status},
			bson.M{"$set": bson.M{
				"disputeCase.status":    models.CaseStatusPendingEscalation,
				"disputeCase.updatedAt": now,
			}},
		); err != nil {
			return err
		}
	}

	summary := gateways.CaseSummary{
		CaseID:    caseID,
		Title:     disputeCase.Details.Title,
		Amount:    disputeCase.Details.Amount,
		CourtTier: tier,
		Reason:    reason,
		Parties:   []string{disputeCase.Details.ClaimantID, disputeCase.Details.RespondentID},
		OpenedAt:  disputeCase.Details.OpenedAt.Time().Format(time.RFC3339),
	}

	filingReference, err := c.Sink.File(ctx, summary)
	if err != nil {
		c.appendActivity(ctx, caseID, models.EventDependencyFailed, "", map[string]interface{}{
			"dependency": "court-filing",
			"error":      err.Error(),
		})
		return &models.TransientDependencyError{Dependency: "court-filing", Err: err}
	}

	forwarding := models.ForwardingRecord{
		FilingReference: filingReference,
		CourtTier:       tier,
		Reason:          reason,
		ForwardedAt:     now,
	}
	res, err := c.CDB.UpdateOne(ctx,
		bson.M{"_id": disputeCase.ID, "disputeCase.status": models.CaseStatusPendingEscalation},
		bson.M{"$set": bson.M{
			"disputeCase.status":     models.CaseStatusForwarded,
			"disputeCase.forwarding": forwarding,
			"disputeCase.updatedAt":  now,
		}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return &models.ConflictError{Reason: "case state changed while forwarding"}
	}

	c.appendActivity(ctx, caseID, models.EventCaseForwarded, "", map[string]interface{}{
		"filingReference": filingReference,
		"courtTier":       tier,
		"reason":          reason,
	})
	c.notifyAsync(caseID, models.EventCaseForwarded, []string{
		disputeCase.Details.ClaimantID,
		disputeCase.Details.RespondentID,
	}, map[string]interface{}{
		"caseID":          caseID,
		"courtTier":       tier,
		"filingReference": filingReference,
	})

	zap.S().Infow("case forwarded to court",
		"caseId", caseID,
		"courtTier", tier,
		"filingReference", filingReference,
	)
	return nil
}

// HandleFailedMediation is the entry point the engine and the consensus
// evaluator call when mediation failed for a case. Errors are logged, not
// surfaced: the caller's state transition is already committed.
func (c *Coordinator) HandleFailedMediation(ctx context.Context, caseID, trigger string) {
	ok, reason, err := c.ShouldAutoForward(ctx, caseID)
	if err != nil {
		zap.S().Errorw("escalation check failed", "caseId", caseID, "trigger", trigger, "error", err)
		return
	}
	if !ok {
		zap.S().Debugw("case does not qualify for auto-forwarding", "caseId", caseID, "trigger", trigger)
		return
	}
	if err := c.AutoForwardCase(ctx, caseID, reason); err != nil {
		var conflict *models.ConflictError
		if errors.As(err, &conflict) {
			return
		}
		zap.S().Errorw("auto-forwarding failed", "caseId", caseID, "trigger", trigger, "error", err)
	}
}

// courtTier selects the target court purely from the dispute amount
func courtTier(amount float64) string {
	if amount <= smallClaimsLimit {
		return models.CourtTierSmallClaims
	}
	return models.CourtTierDistrict
}

func (c *Coordinator) lockCase(caseID string) func() {
	v, _ := c.locks.LoadOrStore(caseID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (c *Coordinator) loadCase(ctx context.Context, caseID string) (*models.DisputeCase, error) {
	oid, err := primitive.ObjectIDFromHex(caseID)
	if err != nil {
		return nil, &models.ValidationError{Field: "caseID", Reason: "not a valid id"}
	}
	disputeCase, err := c.CDB.FindOne(ctx, bson.M{"_id": oid})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &models.NotFoundError{Resource: "case", ID: caseID}
		}
		return nil, err
	}
	return disputeCase, nil
}

func (c *Coordinator) appendActivity(ctx context.Context, caseID, event, actor string, details map[string]interface{}) {
	entry := models.ActivityLogEntry{
		EntryID:   uuid.New().String(),
		CaseID:    caseID,
		Event:     event,
		Actor:     actor,
		Details:   details,
		CreatedAt: primitive.NewDateTimeFromTime(c.Clock.Now()),
	}
	if _, err := c.ADB.InsertOne(ctx, entry); err != nil {
		zap.S().Errorw("failed to append activity log entry", "event", event, "caseId", caseID, "error", err)
	}
}

func (c *Coordinator) notifyAsync(caseID, event string, recipients []string, payload map[string]interface{}) {
	if c.Notifier == nil {
		return
	}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				zap.S().Errorw("recovered panic in notification dispatch", "panic", r)
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := c.Notifier.Notify(ctx, event, recipients, payload); err != nil {
			zap.S().Errorw("failed to dispatch notification", "event", event, "error", err)
			c.appendActivity(ctx, caseID, models.EventDependencyFailed, "", map[string]interface{}{
				"dependency": "notification",
				"event":      event,
				"error":      err.Error(),
			})
		}
	}()
}
