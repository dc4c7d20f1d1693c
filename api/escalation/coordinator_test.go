package escalation_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/accordlabs/dispute-mediation-api/api/escalation"
	dbMocks "github.com/accordlabs/dispute-mediation-api/databases/mocks"
	"github.com/accordlabs/dispute-mediation-api/gateways"
	gwMocks "github.com/accordlabs/dispute-mediation-api/gateways/mocks"
	"github.com/accordlabs/dispute-mediation-api/models"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

type coordinatorFixture struct {
	cdb         *dbMocks.CaseDatabase
	selDB       *dbMocks.SelectionDatabase
	adb         *dbMocks.ActivityDatabase
	sink        *gwMocks.EscalationSink
	notifier    *gwMocks.NotificationGateway
	clock       *fakeClock
	coordinator *escalation.Coordinator
}

func newCoordinatorFixture() *coordinatorFixture {
	f := &coordinatorFixture{
		cdb:      &dbMocks.CaseDatabase{},
		selDB:    &dbMocks.SelectionDatabase{},
		adb:      &dbMocks.ActivityDatabase{},
		sink:     &gwMocks.EscalationSink{},
		notifier: &gwMocks.NotificationGateway{},
		clock:    &fakeClock{now: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)},
	}
	f.adb.On("InsertOne", mock.Anything, mock.Anything).Return(nil, nil).Maybe()
	f.notifier.On("Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	f.coordinator = escalation.NewCoordinator(f.cdb, f.selDB, f.adb, f.sink, f.notifier, f.clock)
	return f
}

func openCase(id primitive.ObjectID, amount float64, openedAt time.Time) *models.DisputeCase {
	return &models.DisputeCase{
		ID: id,
		Details: models.DisputeCaseDetails{
			Title:        "deposit dispute",
			Amount:       amount,
			ClaimantID:   "claimant-1",
			RespondentID: "respondent-1",
			Status:       models.CaseStatusMediation,
			OpenedAt:     primitive.NewDateTimeFromTime(openedAt),
		},
	}
}

func rejectionSelection(caseID, role string, rejections int) models.OptionSelection {
	return models.OptionSelection{
		CaseID:     caseID,
		Role:       role,
		Decision:   models.SelectionDecisionRejectedAll,
		Rejections: rejections,
	}
}

func TestShouldAutoForwardOnRepeatedRejections(t *testing.T) {
	f := newCoordinatorFixture()
	caseOID := primitive.NewObjectID()

	f.cdb.On("FindOne", mock.Anything, mock.Anything).
		Return(openCase(caseOID, 1800, f.clock.now.Add(-5*24*time.Hour)), nil)
	f.selDB.On("Find", mock.Anything, mock.Anything).Return([]models.OptionSelection{
		rejectionSelection(caseOID.Hex(), models.RoleClaimant, 2),
		rejectionSelection(caseOID.Hex(), models.RoleRespondent, 3),
	}, nil)

	ok, reason, err := f.coordinator.ShouldAutoForward(context.TODO(), caseOID.Hex())

	assert.Nil(t, err)
	assert.True(t, ok)
	assert.Contains(t, reason, "rejected")
}

func TestShouldAutoForwardNeedsBothRoles(t *testing.T) {
	f := newCoordinatorFixture()
	caseOID := primitive.NewObjectID()

	f.cdb.On("FindOne", mock.Anything, mock.Anything).
		Return(openCase(caseOID, 1800, f.clock.now.Add(-5*24*time.Hour)), nil)
	// only one side keeps rejecting
	f.selDB.On("Find", mock.Anything, mock.Anything).Return([]models.OptionSelection{
		rejectionSelection(caseOID.Hex(), models.RoleClaimant, 4),
	}, nil)

	ok, _, err := f.coordinator.ShouldAutoForward(context.TODO(), caseOID.Hex())

	assert.Nil(t, err)
	assert.False(t, ok)
}

func TestShouldAutoForwardOnMediationCeiling(t *testing.T) {
	f := newCoordinatorFixture()
	caseOID := primitive.NewObjectID()

	f.cdb.On("FindOne", mock.Anything, mock.Anything).
		Return(openCase(caseOID, 1800, f.clock.now.Add(-31*24*time.Hour)), nil)
	f.selDB.On("Find", mock.Anything, mock.Anything).Return([]models.OptionSelection{}, nil)

	ok, reason, err := f.coordinator.ShouldAutoForward(context.TODO(), caseOID.Hex())

	assert.Nil(t, err)
	assert.True(t, ok)
	assert.Contains(t, reason, "30-day ceiling")
}

func TestShouldAutoForwardIgnoresTerminalCase(t *testing.T) {
	f := newCoordinatorFixture()
	caseOID := primitive.NewObjectID()

	forwarded := openCase(caseOID, 1800, f.clock.now.Add(-60*24*time.Hour))
	forwarded.Details.Status = models.CaseStatusForwarded
	f.cdb.On("FindOne", mock.Anything, mock.Anything).Return(forwarded, nil)

	ok, _, err := f.coordinator.ShouldAutoForward(context.TODO(), caseOID.Hex())

	assert.Nil(t, err)
	assert.False(t, ok)
	f.selDB.AssertNotCalled(t, "Find", mock.Anything, mock.Anything)
}

func TestAutoForwardCaseFilesAndMarksForwarded(t *testing.T) {
	f := newCoordinatorFixture()
	caseOID := primitive.NewObjectID()

	f.cdb.On("FindOne", mock.Anything, mock.Anything).
		Return(openCase(caseOID, 1800, f.clock.now.Add(-10*24*time.Hour)), nil)

	var filed gateways.CaseSummary
	f.sink.On("File", mock.Anything, mock.AnythingOfType("gateways.CaseSummary")).
		Run(func(args mock.Arguments) {
			filed = args.Get(1).(gateways.CaseSummary)
		}).
		Return("FIL-2025-0042", nil)

	var forwardUpdate bson.M
	f.cdb.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			forwardUpdate = args.Get(2).(bson.M)
		}).
		Return(&mongo.UpdateResult{MatchedCount: 1}, nil)

	err := f.coordinator.AutoForwardCase(context.TODO(), caseOID.Hex(), "both parties deadlocked")

	assert.Nil(t, err)
	assert.Equal(t, models.CourtTierSmallClaims, filed.CourtTier)
	assert.Equal(t, []string{"claimant-1", "respondent-1"}, filed.Parties)

	set := forwardUpdate["$set"].(bson.M)
	assert.Equal(t, models.CaseStatusForwarded, set["disputeCase.status"])
	record := set["disputeCase.forwarding"].(models.ForwardingRecord)
	assert.Equal(t, "FIL-2025-0042", record.FilingReference)
	assert.Equal(t, "both parties deadlocked", record.Reason)
}

func TestAutoForwardCasePicksDistrictCourtAboveLimit(t *testing.T) {
	f := newCoordinatorFixture()
	caseOID := primitive.NewObjectID()

	f.cdb.On("FindOne", mock.Anything, mock.Anything).
		Return(openCase(caseOID, 12500, f.clock.now.Add(-10*24*time.Hour)), nil)

	var filed gateways.CaseSummary
	f.sink.On("File", mock.Anything, mock.AnythingOfType("gateways.CaseSummary")).
		Run(func(args mock.Arguments) {
			filed = args.Get(1).(gateways.CaseSummary)
		}).
		Return("FIL-2025-0043", nil)
	f.cdb.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).
		Return(&mongo.UpdateResult{MatchedCount: 1}, nil)

	err := f.coordinator.AutoForwardCase(context.TODO(), caseOID.Hex(), "deadline exceeded")

	assert.Nil(t, err)
	assert.Equal(t, models.CourtTierDistrict, filed.CourtTier)
}

func TestAutoForwardCaseKeepsPendingOnFilingFailure(t *testing.T) {
	f := newCoordinatorFixture()
	caseOID := primitive.NewObjectID()

	f.cdb.On("FindOne", mock.Anything, mock.Anything).
		Return(openCase(caseOID, 1800, f.clock.now.Add(-10*24*time.Hour)), nil)

	var parkUpdate bson.M
	f.cdb.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			parkUpdate = args.Get(2).(bson.M)
		}).
		Return(&mongo.UpdateResult{MatchedCount: 1}, nil).Once()
	f.sink.On("File", mock.Anything, mock.Anything).Return("", assert.AnError)

	err := f.coordinator.AutoForwardCase(context.TODO(), caseOID.Hex(), "deadlocked")

	var transient *models.TransientDependencyError
	assert.ErrorAs(t, err, &transient)

	// the case was parked in pending_escalation and never marked forwarded
	set := parkUpdate["$set"].(bson.M)
	assert.Equal(t, models.CaseStatusPendingEscalation, set["disputeCase.status"])
	f.cdb.AssertNumberOfCalls(t, "UpdateOne", 1)
}

func TestAutoForwardCaseRejectsAlreadyForwarded(t *testing.T) {
	f := newCoordinatorFixture()
	caseOID := primitive.NewObjectID()

	forwarded := openCase(caseOID, 1800, f.clock.now.Add(-10*24*time.Hour))
	forwarded.Details.Status = models.CaseStatusForwarded
	f.cdb.On("FindOne", mock.Anything, mock.Anything).Return(forwarded, nil)

	err := f.coordinator.AutoForwardCase(context.TODO(), caseOID.Hex(), "retry")

	var conflict *models.ConflictError
	assert.ErrorAs(t, err, &conflict)
	f.sink.AssertNotCalled(t, "File", mock.Anything, mock.Anything)
}

func TestAutoForwardCaseRetriesFromPendingEscalation(t *testing.T) {
	f := newCoordinatorFixture()
	caseOID := primitive.NewObjectID()

	pending := openCase(caseOID, 1800, f.clock.now.Add(-10*24*time.Hour))
	pending.Details.Status = models.CaseStatusPendingEscalation
	f.cdb.On("FindOne", mock.Anything, mock.Anything).Return(pending, nil)

	f.sink.On("File", mock.Anything, mock.Anything).Return("FIL-2025-0044", nil)
	f.cdb.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).
		Return(&mongo.UpdateResult{MatchedCount: 1}, nil)

	err := f.coordinator.AutoForwardCase(context.TODO(), caseOID.Hex(), "retry after outage")

	assert.Nil(t, err)
	// no re-parking update: straight from pending_escalation to forwarded
	f.cdb.AssertNumberOfCalls(t, "UpdateOne", 1)
}
