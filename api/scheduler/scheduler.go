package scheduler

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/accordlabs/dispute-mediation-api/databases"
	"github.com/accordlabs/dispute-mediation-api/gateways"
	"github.com/accordlabs/dispute-mediation-api/models"
)

// Reminder offsets in hours before the deadline, largest first
var (
	statementOffsets = []int{24, 6, 1}
	responseOffsets  = []int{48, 12, 2}
)

const sweepTimeout = 5 * time.Minute

// ExpiryHandler is the slice of the negotiation engine the scheduler
// needs: idempotent expiry of a single session.
type ExpiryHandler interface {
	HandleExpiry(ctx context.Context, sessionID string) error
}

// Scheduler owns deadline bookkeeping for every active session phase. It
// keeps no in-memory timer state: each sweep derives everything from the
// persisted timer documents, so a restart loses nothing.
type Scheduler struct {
	cron       *cron.Cron
	TDB        databases.TimerDatabase
	SDB        databases.SessionDatabase
	ADB        databases.ActivityDatabase
	Notifier   gateways.NotificationGateway
	Clock      gateways.Clock
	Engine     ExpiryHandler
	instanceID string
}

// NewScheduler creates a new scheduler instance
func NewScheduler(
	tdb databases.TimerDatabase,
	sdb databases.SessionDatabase,
	adb databases.ActivityDatabase,
	notifier gateways.NotificationGateway,
	clock gateways.Clock,
	engine ExpiryHandler,
) *Scheduler {
	instanceID := os.Getenv("DYNO")
	if instanceID == "" {
		instanceID = fmt.Sprintf("instance-%d", time.Now().UnixNano())
	}

	return &Scheduler{
		cron:       cron.New(cron.WithLocation(time.UTC)),
		TDB:        tdb,
		SDB:        sdb,
		ADB:        adb,
		Notifier:   notifier,
		Clock:      clock,
		Engine:     engine,
		instanceID: instanceID,
	}
}

// Start begins the periodic deadline sweep
func (s *Scheduler) Start() {
	_, err := s.cron.AddFunc("@every 1m", s.Sweep)
	if err != nil {
		zap.S().Errorw("failed to register deadline sweep job", "error", err)
	}

	s.cron.Start()
	zap.S().Info("Deadline scheduler started")
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	zap.S().Info("Deadline scheduler stopped")
}

// Sweep walks every active timer once, firing due reminders and expiries.
// Firing is idempotent: the session status is re-read before any mutation,
// and sent reminder offsets are recorded so a jittery tick never repeats one.
func (s *Scheduler) Sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	now := s.Clock.Now()

	timers, err := s.TDB.Find(ctx, bson.M{"active": true})
	if err != nil {
		zap.S().Errorw("failed to load active timers", "error", err)
		return
	}

	expired, reminders := 0, 0
	for _, timer := range timers {
		e, r := s.processTimer(ctx, timer, now)
		expired += e
		reminders += r
	}

	if expired > 0 || reminders > 0 {
		zap.S().Infow("deadline sweep complete",
			"instance", s.instanceID,
			"timers", len(timers),
			"expired", expired,
			"remindersSent", reminders,
		)
	}
}

// processTimer handles one timer at one instant; returns (expiries, reminders) fired
func (s *Scheduler) processTimer(ctx context.Context, timer models.DisputeTimer, now time.Time) (int, int) {
	deadline := timer.Deadline.Time()

	if !deadline.After(now) {
		if err := s.Engine.HandleExpiry(ctx, timer.SessionID); err != nil {
			zap.S().Errorw("deadline expiry handling failed",
				"sessionId", timer.SessionID, "phase", timer.Phase, "error", err)
			return 0, 0
		}
		return 1, 0
	}

	// deadline is strictly in the future here, so remaining is never negative
	remaining := deadline.Sub(now)

	var due []int
	for _, offset := range offsetsForPhase(timer.Phase) {
		if remaining <= time.Duration(offset)*time.Hour && !timer.ReminderFired(offset) {
			due = append(due, offset)
		}
	}
	if len(due) == 0 {
		return 0, 0
	}

	// the session may have completed since the timer doc was read
	session, err := s.loadSession(ctx, timer.SessionID)
	if err != nil {
		zap.S().Errorw("failed to load session for reminder", "sessionId", timer.SessionID, "error", err)
		return 0, 0
	}
	if session.Details.IsTerminal() {
		s.deactivateTimer(ctx, timer, now)
		return 0, 0
	}

	for _, offset := range due {
		s.sendReminder(ctx, timer, session, offset, remaining)
	}

	// record the offsets regardless of dispatch outcome: reminder failures
	// are logged once, never retried every minute until the deadline
	if _, err := s.TDB.UpdateOne(ctx,
		bson.M{"_id": timer.ID},
		bson.M{
			"$addToSet": bson.M{"remindersSent": bson.M{"$each": due}},
			"$set":      bson.M{"updatedAt": primitive.NewDateTimeFromTime(now)},
		},
	); err != nil {
		zap.S().Errorw("failed to record sent reminders", "sessionId", timer.SessionID, "error", err)
	}
	return 0, len(due)
}

// Extend pushes the session's active deadlines forward by additionalHours
// and reschedules all reminders relative to the new deadline.
func (s *Scheduler) Extend(ctx context.Context, sessionID string, additionalHours int) error {
	if additionalHours <= 0 {
		return &models.ValidationError{Field: "additionalHours", Reason: "must be positive"}
	}

	timers, err := s.TDB.Find(ctx, bson.M{"sessionID": sessionID, "active": true})
	if err != nil {
		return err
	}
	if len(timers) == 0 {
		return &models.NotFoundError{Resource: "timer", ID: sessionID}
	}

	now := primitive.NewDateTimeFromTime(s.Clock.Now())
	extension := time.Duration(additionalHours) * time.Hour

	var sessionDeadline primitive.DateTime
	for _, timer := range timers {
		newDeadline := primitive.NewDateTimeFromTime(timer.Deadline.Time().Add(extension))
		// the session document mirrors the response-phase deadline; an
		// extended statement timer must not overwrite it
		if timer.Phase == models.TimerPhaseResponse || sessionDeadline == 0 {
			sessionDeadline = newDeadline
		}
		// clearing remindersSent reschedules every reminder against the
		// new deadline; none are due again until it approaches
		if _, err := s.TDB.UpdateOne(ctx,
			bson.M{"_id": timer.ID},
			bson.M{"$set": bson.M{
				"deadline":      newDeadline,
				"remindersSent": []int{},
				"updatedAt":     now,
			}},
		); err != nil {
			return err
		}
	}

	oid, err := primitive.ObjectIDFromHex(sessionID)
	if err != nil {
		return &models.ValidationError{Field: "sessionID", Reason: "not a valid id"}
	}
	if _, err := s.SDB.UpdateOne(ctx,
		bson.M{"_id": oid, "negotiationSession.status": models.SessionStatusActive},
		bson.M{"$set": bson.M{
			"negotiationSession.deadline":  sessionDeadline,
			"negotiationSession.updatedAt": now,
		}},
	); err != nil {
		return err
	}

	s.appendActivity(ctx, "", sessionID, models.EventDeadlineExtended, "", map[string]interface{}{
		"additionalHours": additionalHours,
	})
	return nil
}

// sendReminder dispatches one reminder to the parties that still owe a
// response; failures are logged and not retried
func (s *Scheduler) sendReminder(ctx context.Context, timer models.DisputeTimer, session *models.NegotiationSession, offset int, remaining time.Duration) {
	recipients := make([]string, 0, len(session.Details.Participants))
	for _, p := range session.Details.Participants {
		if !p.HasResponded {
			recipients = append(recipients, p.UserID)
		}
	}
	if len(recipients) == 0 {
		return
	}

	if err := s.Notifier.Notify(ctx, models.EventReminderSent, recipients, map[string]interface{}{
		"sessionID": timer.SessionID,
		"caseID":    timer.CaseID,
		"phase":     timer.Phase,
		"offset":    offset,
		"hoursLeft": int(remaining.Hours()),
	}); err != nil {
		zap.S().Errorw("failed to send deadline reminder",
			"sessionId", timer.SessionID, "phase", timer.Phase, "offset", offset, "error", err)
		return
	}

	s.appendActivity(ctx, timer.CaseID, timer.SessionID, models.EventReminderSent, "", map[string]interface{}{
		"phase":  timer.Phase,
		"offset": offset,
	})
}

func (s *Scheduler) deactivateTimer(ctx context.Context, timer models.DisputeTimer, now time.Time) {
	if _, err := s.TDB.UpdateOne(ctx,
		bson.M{"_id": timer.ID},
		bson.M{"$set": bson.M{"active": false, "updatedAt": primitive.NewDateTimeFromTime(now)}},
	); err != nil {
		zap.S().Errorw("failed to deactivate orphaned timer", "sessionId", timer.SessionID, "error", err)
	}
}

func (s *Scheduler) loadSession(ctx context.Context, sessionID string) (*models.NegotiationSession, error) {
	oid, err := primitive.ObjectIDFromHex(sessionID)
	if err != nil {
		return nil, err
	}
	return s.SDB.FindOne(ctx, bson.M{"_id": oid})
}

func (s *Scheduler) appendActivity(ctx context.Context, caseID, sessionID, event, actor string, details map[string]interface{}) {
	entry := models.ActivityLogEntry{
		EntryID:   uuid.New().String(),
		CaseID:    caseID,
		SessionID: sessionID,
		Event:     event,
		Actor:     actor,
		Details:   details,
		CreatedAt: primitive.NewDateTimeFromTime(s.Clock.Now()),
	}
	if _, err := s.ADB.InsertOne(ctx, entry); err != nil {
		zap.S().Errorw("failed to append activity log entry", "event", event, "sessionId", sessionID, "error", err)
	}
}

func offsetsForPhase(phase string) []int {
	if phase == models.TimerPhaseStatement {
		return statementOffsets
	}
	return responseOffsets
}
