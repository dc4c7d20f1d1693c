package negotiation_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/accordlabs/dispute-mediation-api/api/negotiation"
	dbMocks "github.com/accordlabs/dispute-mediation-api/databases/mocks"
	gwMocks "github.com/accordlabs/dispute-mediation-api/gateways/mocks"
	"github.com/accordlabs/dispute-mediation-api/models"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

type stubEscalator struct {
	calls chan string
}

func (s *stubEscalator) HandleFailedMediation(ctx context.Context, caseID, trigger string) {
	s.calls <- trigger
}

type engineFixture struct {
	sdb      *dbMocks.SessionDatabase
	tdb      *dbMocks.TimerDatabase
	cdb      *dbMocks.CaseDatabase
	adb      *dbMocks.ActivityDatabase
	notifier *gwMocks.NotificationGateway
	clock    *fakeClock
	escalate *stubEscalator
	engine   *negotiation.Engine
}

func newEngineFixture() *engineFixture {
	f := &engineFixture{
		sdb:      &dbMocks.SessionDatabase{},
		tdb:      &dbMocks.TimerDatabase{},
		cdb:      &dbMocks.CaseDatabase{},
		adb:      &dbMocks.ActivityDatabase{},
		notifier: &gwMocks.NotificationGateway{},
		clock:    &fakeClock{now: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)},
		escalate: &stubEscalator{calls: make(chan string, 4)},
	}
	f.adb.On("InsertOne", mock.Anything, mock.Anything).Return(nil, nil).Maybe()
	f.notifier.On("Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	f.engine = negotiation.NewEngine(f.sdb, f.tdb, f.cdb, f.adb, f.notifier, f.clock, f.escalate)
	return f
}

func activeSession(id primitive.ObjectID, caseID string, round int, responses []models.SessionResponse) *models.NegotiationSession {
	return &models.NegotiationSession{
		ID: id,
		Details: models.NegotiationSessionDetails{
			CaseID:             caseID,
			InitiatorID:        "claimant-1",
			Status:             models.SessionStatusActive,
			CurrentRound:       round,
			MaxRounds:          3,
			DeadlineHours:      48,
			AllowCounterOffers: true,
			CurrentOffer:       models.Offer{Amount: 1200, ProposedBy: "claimant-1"},
			Participants: []models.SessionParticipant{
				{UserID: "claimant-1", Role: models.RoleClaimant},
				{UserID: "respondent-1", Role: models.RoleRespondent},
			},
			Responses: responses,
		},
	}
}

func TestCreateSessionValidation(t *testing.T) {
	f := newEngineFixture()
	caseID := primitive.NewObjectID().Hex()

	var vErr *models.ValidationError

	_, err := f.engine.CreateSession(context.TODO(), negotiation.CreateSessionInput{
		CaseID:    caseID,
		MaxRounds: 3, DeadlineHours: 48,
		Parties: []negotiation.PartyRef{{UserID: "only-one"}},
	})
	assert.ErrorAs(t, err, &vErr)

	_, err = f.engine.CreateSession(context.TODO(), negotiation.CreateSessionInput{
		CaseID:    caseID,
		MaxRounds: 0, DeadlineHours: 48,
		Parties: []negotiation.PartyRef{{UserID: "a"}, {UserID: "b"}},
	})
	assert.ErrorAs(t, err, &vErr)

	_, err = f.engine.CreateSession(context.TODO(), negotiation.CreateSessionInput{
		CaseID:    caseID,
		MaxRounds: 3, DeadlineHours: 0,
		Parties: []negotiation.PartyRef{{UserID: "a"}, {UserID: "b"}},
	})
	assert.ErrorAs(t, err, &vErr)
}

func TestCreateSessionPersistsSessionAndTimer(t *testing.T) {
	f := newEngineFixture()
	caseOID := primitive.NewObjectID()

	f.cdb.On("FindOne", mock.Anything, mock.Anything).
		Return(&models.DisputeCase{ID: caseOID, Details: models.DisputeCaseDetails{Status: models.CaseStatusMediation}}, nil)
	f.sdb.On("InsertOne", mock.Anything, mock.AnythingOfType("models.NegotiationSession")).Return(nil, nil)
	f.tdb.On("InsertOne", mock.Anything, mock.AnythingOfType("models.DisputeTimer")).Return(nil, nil)

	session, err := f.engine.CreateSession(context.TODO(), negotiation.CreateSessionInput{
		CaseID:             caseOID.Hex(),
		InitiatorID:        "claimant-1",
		InitialOffer:       models.Offer{Amount: 1200, Terms: "full refund"},
		MaxRounds:          3,
		DeadlineHours:      48,
		AllowCounterOffers: true,
		Parties: []negotiation.PartyRef{
			{UserID: "claimant-1", Role: models.RoleClaimant},
			{UserID: "respondent-1", Role: models.RoleRespondent},
		},
	})

	assert.Nil(t, err)
	assert.Equal(t, models.SessionStatusActive, session.Details.Status)
	assert.Equal(t, 1, session.Details.CurrentRound)
	assert.Equal(t, "claimant-1", session.Details.InitialOffer.ProposedBy)
	assert.Equal(t, session.Details.InitialOffer, session.Details.CurrentOffer)
	assert.Len(t, session.Details.Participants, 2)

	wantDeadline := f.clock.now.Add(48 * time.Hour)
	assert.Equal(t, primitive.NewDateTimeFromTime(wantDeadline), session.Details.Deadline)

	f.sdb.AssertExpectations(t)
	f.tdb.AssertExpectations(t)
}

func TestCreateSessionRollsBackWhenTimerArmFails(t *testing.T) {
	f := newEngineFixture()
	caseOID := primitive.NewObjectID()

	f.cdb.On("FindOne", mock.Anything, mock.Anything).
		Return(&models.DisputeCase{ID: caseOID}, nil)
	f.sdb.On("InsertOne", mock.Anything, mock.Anything).Return(nil, nil)
	f.tdb.On("InsertOne", mock.Anything, mock.Anything).Return(nil, assert.AnError)
	f.sdb.On("DeleteOne", mock.Anything, mock.Anything).Return(nil)

	_, err := f.engine.CreateSession(context.TODO(), negotiation.CreateSessionInput{
		CaseID:        caseOID.Hex(),
		InitiatorID:   "claimant-1",
		MaxRounds:     3,
		DeadlineHours: 48,
		Parties: []negotiation.PartyRef{
			{UserID: "claimant-1", Role: models.RoleClaimant},
			{UserID: "respondent-1", Role: models.RoleRespondent},
		},
	})

	var fatalErr *models.FatalAtomicityError
	assert.ErrorAs(t, err, &fatalErr)
	f.sdb.AssertCalled(t, "DeleteOne", mock.Anything, mock.Anything)
}

func TestSubmitResponseAllAcceptCompletesSession(t *testing.T) {
	f := newEngineFixture()
	sid := primitive.NewObjectID()
	caseID := primitive.NewObjectID().Hex()

	before := activeSession(sid, caseID, 1, []models.SessionResponse{
		{UserID: "claimant-1", Round: 1, Decision: models.DecisionAccept},
	})
	afterPush := activeSession(sid, caseID, 1, []models.SessionResponse{
		{UserID: "claimant-1", Round: 1, Decision: models.DecisionAccept},
		{UserID: "respondent-1", Round: 1, Decision: models.DecisionAccept},
	})
	terminal := activeSession(sid, caseID, 1, afterPush.Details.Responses)
	terminal.Details.Status = models.SessionStatusCompletedAccepted
	terminal.Details.FinalOutcome = models.SessionStatusCompletedAccepted

	f.sdb.On("FindOne", mock.Anything, mock.Anything).Return(before, nil).Once()
	f.sdb.On("FindOne", mock.Anything, mock.Anything).Return(afterPush, nil).Once()
	f.sdb.On("FindOne", mock.Anything, mock.Anything).Return(terminal, nil).Once()

	// response push carries array filters, the terminal commit does not
	f.sdb.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&mongo.UpdateResult{MatchedCount: 1}, nil).Once()
	f.sdb.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).
		Return(&mongo.UpdateResult{MatchedCount: 1}, nil).Once()

	f.tdb.On("UpdateMany", mock.Anything, mock.Anything, mock.Anything).
		Return(&mongo.UpdateResult{ModifiedCount: 1}, nil)
	f.cdb.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).
		Return(&mongo.UpdateResult{MatchedCount: 1}, nil)

	got, err := f.engine.SubmitResponse(context.TODO(), sid.Hex(), "respondent-1", 1, models.DecisionAccept, nil, "works for me")

	assert.Nil(t, err)
	assert.Equal(t, models.SessionStatusCompletedAccepted, got.Details.Status)
	f.sdb.AssertExpectations(t)
	f.cdb.AssertCalled(t, "UpdateOne", mock.Anything, mock.Anything, mock.Anything)
	f.tdb.AssertCalled(t, "UpdateMany", mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmitResponseAllRejectFailsSessionAndEscalates(t *testing.T) {
	f := newEngineFixture()
	sid := primitive.NewObjectID()
	caseID := primitive.NewObjectID().Hex()

	before := activeSession(sid, caseID, 1, []models.SessionResponse{
		{UserID: "claimant-1", Round: 1, Decision: models.DecisionReject},
	})
	afterPush := activeSession(sid, caseID, 1, []models.SessionResponse{
		{UserID: "claimant-1", Round: 1, Decision: models.DecisionReject},
		{UserID: "respondent-1", Round: 1, Decision: models.DecisionReject},
	})
	terminal := activeSession(sid, caseID, 1, afterPush.Details.Responses)
	terminal.Details.Status = models.SessionStatusCompletedFailed

	f.sdb.On("FindOne", mock.Anything, mock.Anything).Return(before, nil).Once()
	f.sdb.On("FindOne", mock.Anything, mock.Anything).Return(afterPush, nil).Once()
	f.sdb.On("FindOne", mock.Anything, mock.Anything).Return(terminal, nil).Once()
	f.sdb.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&mongo.UpdateResult{MatchedCount: 1}, nil).Once()
	f.sdb.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).
		Return(&mongo.UpdateResult{MatchedCount: 1}, nil).Once()
	f.tdb.On("UpdateMany", mock.Anything, mock.Anything, mock.Anything).
		Return(&mongo.UpdateResult{}, nil)

	got, err := f.engine.SubmitResponse(context.TODO(), sid.Hex(), "respondent-1", 1, models.DecisionReject, nil, "")

	assert.Nil(t, err)
	assert.Equal(t, models.SessionStatusCompletedFailed, got.Details.Status)

	select {
	case trigger := <-f.escalate.calls:
		assert.Equal(t, models.SessionStatusCompletedFailed, trigger)
	case <-time.After(2 * time.Second):
		t.Fatal("expected failed mediation to reach the escalation coordinator")
	}
}

func TestSubmitResponseCounterAdvancesRound(t *testing.T) {
	f := newEngineFixture()
	sid := primitive.NewObjectID()
	caseID := primitive.NewObjectID().Hex()

	counter := &models.Offer{Amount: 900, Terms: "partial refund"}
	before := activeSession(sid, caseID, 1, []models.SessionResponse{
		{UserID: "claimant-1", Round: 1, Decision: models.DecisionAccept},
	})
	afterPush := activeSession(sid, caseID, 1, []models.SessionResponse{
		{UserID: "claimant-1", Round: 1, Decision: models.DecisionAccept},
		{UserID: "respondent-1", Round: 1, Decision: models.DecisionCounter, CounterOffer: &models.Offer{
			Amount: 900, ProposedBy: "respondent-1", SubmittedAt: primitive.NewDateTimeFromTime(f.clock.now),
		}},
	})
	advanced := activeSession(sid, caseID, 2, afterPush.Details.Responses)
	advanced.Details.CurrentOffer = models.Offer{Amount: 900, ProposedBy: "respondent-1"}

	f.sdb.On("FindOne", mock.Anything, mock.Anything).Return(before, nil).Once()
	f.sdb.On("FindOne", mock.Anything, mock.Anything).Return(afterPush, nil).Once()
	f.sdb.On("FindOne", mock.Anything, mock.Anything).Return(advanced, nil).Once()
	f.sdb.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&mongo.UpdateResult{MatchedCount: 1}, nil).Once()
	f.sdb.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).
		Return(&mongo.UpdateResult{MatchedCount: 1}, nil).Once()
	f.tdb.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).
		Return(&mongo.UpdateResult{MatchedCount: 1}, nil)

	got, err := f.engine.SubmitResponse(context.TODO(), sid.Hex(), "respondent-1", 1, models.DecisionCounter, counter, "can do 900")

	assert.Nil(t, err)
	assert.Equal(t, 2, got.Details.CurrentRound)
	assert.Equal(t, models.SessionStatusActive, got.Details.Status)
	assert.Equal(t, float64(900), got.Details.CurrentOffer.Amount)
	// the response timer is rearmed against the new deadline
	f.tdb.AssertCalled(t, "UpdateOne", mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmitResponseRejectsStaleRound(t *testing.T) {
	f := newEngineFixture()
	sid := primitive.NewObjectID()

	session := activeSession(sid, primitive.NewObjectID().Hex(), 2, nil)
	f.sdb.On("FindOne", mock.Anything, mock.Anything).Return(session, nil)

	_, err := f.engine.SubmitResponse(context.TODO(), sid.Hex(), "claimant-1", 1, models.DecisionAccept, nil, "")

	var conflict *models.ConflictError
	assert.ErrorAs(t, err, &conflict)
	f.sdb.AssertNotCalled(t, "UpdateOne", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmitResponseRejectsDuplicate(t *testing.T) {
	f := newEngineFixture()
	sid := primitive.NewObjectID()

	session := activeSession(sid, primitive.NewObjectID().Hex(), 1, []models.SessionResponse{
		{UserID: "claimant-1", Round: 1, Decision: models.DecisionAccept},
	})
	f.sdb.On("FindOne", mock.Anything, mock.Anything).Return(session, nil)

	_, err := f.engine.SubmitResponse(context.TODO(), sid.Hex(), "claimant-1", 1, models.DecisionReject, nil, "changed my mind")

	var conflict *models.ConflictError
	assert.ErrorAs(t, err, &conflict)
}

func TestSubmitResponseRejectsTerminalSession(t *testing.T) {
	f := newEngineFixture()
	sid := primitive.NewObjectID()

	session := activeSession(sid, primitive.NewObjectID().Hex(), 1, nil)
	session.Details.Status = models.SessionStatusCancelled
	f.sdb.On("FindOne", mock.Anything, mock.Anything).Return(session, nil)

	_, err := f.engine.SubmitResponse(context.TODO(), sid.Hex(), "claimant-1", 1, models.DecisionAccept, nil, "")

	var conflict *models.ConflictError
	assert.ErrorAs(t, err, &conflict)
}

func TestSubmitResponseRejectsUnknownParticipant(t *testing.T) {
	f := newEngineFixture()
	sid := primitive.NewObjectID()

	session := activeSession(sid, primitive.NewObjectID().Hex(), 1, nil)
	f.sdb.On("FindOne", mock.Anything, mock.Anything).Return(session, nil)

	_, err := f.engine.SubmitResponse(context.TODO(), sid.Hex(), "stranger-9", 1, models.DecisionAccept, nil, "")

	var notFound *models.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestSubmitResponseValidatesDecision(t *testing.T) {
	f := newEngineFixture()
	sid := primitive.NewObjectID().Hex()

	var vErr *models.ValidationError

	_, err := f.engine.SubmitResponse(context.TODO(), sid, "claimant-1", 1, "maybe", nil, "")
	assert.ErrorAs(t, err, &vErr)

	_, err = f.engine.SubmitResponse(context.TODO(), sid, "claimant-1", 1, models.DecisionCounter, nil, "")
	assert.ErrorAs(t, err, &vErr)
}

func TestSubmitResponseConflictWhenWriteLosesRace(t *testing.T) {
	f := newEngineFixture()
	sid := primitive.NewObjectID()

	session := activeSession(sid, primitive.NewObjectID().Hex(), 1, nil)
	f.sdb.On("FindOne", mock.Anything, mock.Anything).Return(session, nil)
	f.sdb.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&mongo.UpdateResult{MatchedCount: 0}, nil)

	_, err := f.engine.SubmitResponse(context.TODO(), sid.Hex(), "claimant-1", 1, models.DecisionAccept, nil, "")

	var conflict *models.ConflictError
	assert.ErrorAs(t, err, &conflict)
}

func TestHandleExpiryMarksActiveSessionExpired(t *testing.T) {
	f := newEngineFixture()
	sid := primitive.NewObjectID()
	caseID := primitive.NewObjectID().Hex()

	session := activeSession(sid, caseID, 1, nil)
	f.sdb.On("FindOne", mock.Anything, mock.Anything).Return(session, nil)
	f.sdb.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).
		Return(&mongo.UpdateResult{MatchedCount: 1}, nil)
	f.tdb.On("UpdateMany", mock.Anything, mock.Anything, mock.Anything).
		Return(&mongo.UpdateResult{}, nil)

	err := f.engine.HandleExpiry(context.TODO(), sid.Hex())

	assert.Nil(t, err)
	f.sdb.AssertCalled(t, "UpdateOne", mock.Anything, mock.Anything, mock.Anything)
	f.tdb.AssertCalled(t, "UpdateMany", mock.Anything, mock.Anything, mock.Anything)

	select {
	case trigger := <-f.escalate.calls:
		assert.Equal(t, models.SessionStatusExpired, trigger)
	case <-time.After(2 * time.Second):
		t.Fatal("expected expiry to reach the escalation coordinator")
	}
}

func TestHandleExpiryIsIdempotentOnTerminalSession(t *testing.T) {
	f := newEngineFixture()
	sid := primitive.NewObjectID()

	session := activeSession(sid, primitive.NewObjectID().Hex(), 1, nil)
	session.Details.Status = models.SessionStatusCompletedAccepted
	f.sdb.On("FindOne", mock.Anything, mock.Anything).Return(session, nil)
	f.tdb.On("UpdateMany", mock.Anything, mock.Anything, mock.Anything).
		Return(&mongo.UpdateResult{}, nil)

	err := f.engine.HandleExpiry(context.TODO(), sid.Hex())

	assert.Nil(t, err)
	f.sdb.AssertNotCalled(t, "UpdateOne", mock.Anything, mock.Anything, mock.Anything)
}

func TestCancelSession(t *testing.T) {
	f := newEngineFixture()
	sid := primitive.NewObjectID()

	session := activeSession(sid, primitive.NewObjectID().Hex(), 1, nil)
	f.sdb.On("FindOne", mock.Anything, mock.Anything).Return(session, nil)
	f.sdb.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).
		Return(&mongo.UpdateResult{MatchedCount: 1}, nil)
	f.tdb.On("UpdateMany", mock.Anything, mock.Anything, mock.Anything).
		Return(&mongo.UpdateResult{}, nil)

	err := f.engine.CancelSession(context.TODO(), sid.Hex(), "claimant-1", "settled privately")
	assert.Nil(t, err)
}

func TestCancelSessionRejectsTerminal(t *testing.T) {
	f := newEngineFixture()
	sid := primitive.NewObjectID()

	session := activeSession(sid, primitive.NewObjectID().Hex(), 1, nil)
	session.Details.Status = models.SessionStatusExpired
	f.sdb.On("FindOne", mock.Anything, mock.Anything).Return(session, nil)

	err := f.engine.CancelSession(context.TODO(), sid.Hex(), "claimant-1", "too late")

	var conflict *models.ConflictError
	assert.ErrorAs(t, err, &conflict)
}

func TestGetSessionServesRepeatReadsFromCache(t *testing.T) {
	f := newEngineFixture()
	sid := primitive.NewObjectID()

	session := activeSession(sid, primitive.NewObjectID().Hex(), 1, nil)
	f.sdb.On("FindOne", mock.Anything, mock.Anything).Return(session, nil).Once()

	first, err := f.engine.GetSession(context.TODO(), sid.Hex())
	assert.Nil(t, err)

	second, err := f.engine.GetSession(context.TODO(), sid.Hex())
	assert.Nil(t, err)
	assert.Equal(t, first, second)

	f.sdb.AssertExpectations(t)
}

func TestGetSessionNotFound(t *testing.T) {
	f := newEngineFixture()
	sid := primitive.NewObjectID()

	f.sdb.On("FindOne", mock.Anything, mock.Anything).Return(nil, mongo.ErrNoDocuments)

	_, err := f.engine.GetSession(context.TODO(), sid.Hex())

	var notFound *models.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}
