package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/accordlabs/dispute-mediation-api/api/escalation"
	"github.com/accordlabs/dispute-mediation-api/api/handlers"
	dbMocks "github.com/accordlabs/dispute-mediation-api/databases/mocks"
	gwMocks "github.com/accordlabs/dispute-mediation-api/gateways/mocks"
	"github.com/accordlabs/dispute-mediation-api/models"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func testClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)}
}

func quietGatewayMocks() (*gwMocks.NotificationGateway, *dbMocks.ActivityDatabase) {
	notifier := &gwMocks.NotificationGateway{}
	notifier.On("Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	adb := &dbMocks.ActivityDatabase{}
	adb.On("InsertOne", mock.Anything, mock.Anything).Return(nil, nil).Maybe()
	return notifier, adb
}

func TestCreateCaseHandler(t *testing.T) {
	caseDB := &dbMocks.CaseDatabase{}
	caseDB.On("InsertOne", mock.Anything, mock.AnythingOfType("models.DisputeCase")).Return(nil, nil)

	body, _ := json.Marshal(map[string]interface{}{
		"title":        "deposit dispute",
		"amount":       1800,
		"claimantID":   "claimant-1",
		"respondentID": "respondent-1",
	})
	req, err := http.NewRequest(http.MethodPost, "/api/v1/case", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	rr := httptest.NewRecorder()

	c := handlers.Case{DB: caseDB}
	handler := http.HandlerFunc(c.CreateCaseHandler)
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusCreated, rr.Code)

	var resp map[string]interface{}
	assert.Nil(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, models.CaseStatusMediation, resp["status"])
	assert.NotEmpty(t, resp["id"])
	caseDB.AssertExpectations(t)
}

func TestCreateCaseHandlerRequiresBothParties(t *testing.T) {
	body, _ := json.Marshal(map[string]interface{}{
		"title":      "deposit dispute",
		"claimantID": "claimant-1",
	})
	req, err := http.NewRequest(http.MethodPost, "/api/v1/case", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	rr := httptest.NewRecorder()

	c := handlers.Case{DB: &dbMocks.CaseDatabase{}}
	handler := http.HandlerFunc(c.CreateCaseHandler)
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, `{"response": "failed to validate request body, claimantID and respondentID are required"}`, rr.Body.String())
}

func TestCaseByIDHandler(t *testing.T) {
	caseOID := primitive.NewObjectID()
	caseDB := &dbMocks.CaseDatabase{}
	caseDB.On("FindOne", mock.Anything, mock.Anything).Return(&models.DisputeCase{
		ID:      caseOID,
		Details: models.DisputeCaseDetails{Title: "deposit dispute", Status: models.CaseStatusMediation},
	}, nil)

	req, err := http.NewRequest(http.MethodGet, "/api/v1/case/"+caseOID.Hex(), nil)
	if err != nil {
		t.Fatal(err)
	}
	req = mux.SetURLVars(req, map[string]string{"case_id": caseOID.Hex()})
	rr := httptest.NewRecorder()

	c := handlers.Case{DB: caseDB}
	handler := http.HandlerFunc(c.CaseByIDHandler)
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var got models.DisputeCase
	assert.Nil(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, caseOID, got.ID)
	assert.Equal(t, "deposit dispute", got.Details.Title)
}

func TestCaseByIDHandlerRejectsInvalidID(t *testing.T) {
	req, err := http.NewRequest(http.MethodGet, "/api/v1/case/not-an-id", nil)
	if err != nil {
		t.Fatal(err)
	}
	req = mux.SetURLVars(req, map[string]string{"case_id": "not-an-id"})
	rr := httptest.NewRecorder()

	c := handlers.Case{DB: &dbMocks.CaseDatabase{}}
	handler := http.HandlerFunc(c.CaseByIDHandler)
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCasesByPartyHandler(t *testing.T) {
	caseDB := &dbMocks.CaseDatabase{}
	caseDB.On("Find", mock.Anything, mock.Anything, mock.Anything).Return([]models.DisputeCase{
		{ID: primitive.NewObjectID(), Details: models.DisputeCaseDetails{ClaimantID: "party-1"}},
		{ID: primitive.NewObjectID(), Details: models.DisputeCaseDetails{RespondentID: "party-1"}},
	}, nil)
	caseDB.On("CountDocuments", mock.Anything, mock.Anything).Return(int64(2), nil)

	req, err := http.NewRequest(http.MethodGet, "/api/v1/party/party-1/cases?limit=10", nil)
	if err != nil {
		t.Fatal(err)
	}
	req = mux.SetURLVars(req, map[string]string{"party_id": "party-1"})
	rr := httptest.NewRecorder()

	c := handlers.Case{DB: caseDB}
	handler := http.HandlerFunc(c.CasesByPartyHandler)
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]interface{}
	assert.Nil(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, float64(2), resp["totalCount"])
	assert.Equal(t, float64(10), resp["limit"])
	assert.Len(t, resp["data"], 2)
}

func TestCasesByPartyHandlerCountsBeyondThePage(t *testing.T) {
	page := make([]models.DisputeCase, 10)
	for i := range page {
		page[i] = models.DisputeCase{ID: primitive.NewObjectID(), Details: models.DisputeCaseDetails{ClaimantID: "party-1"}}
	}

	caseDB := &dbMocks.CaseDatabase{}
	caseDB.On("Find", mock.Anything, mock.Anything, mock.Anything).Return(page, nil)
	// 23 matching documents overall, of which this page holds the first 10
	caseDB.On("CountDocuments", mock.Anything, mock.Anything).Return(int64(23), nil)

	req, err := http.NewRequest(http.MethodGet, "/api/v1/party/party-1/cases?limit=10&page=0", nil)
	if err != nil {
		t.Fatal(err)
	}
	req = mux.SetURLVars(req, map[string]string{"party_id": "party-1"})
	rr := httptest.NewRecorder()

	c := handlers.Case{DB: caseDB}
	handler := http.HandlerFunc(c.CasesByPartyHandler)
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]interface{}
	assert.Nil(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Len(t, resp["data"], 10)
	assert.Equal(t, float64(23), resp["totalCount"])
	assert.Equal(t, float64(3), resp["totalPages"])
}

func TestCaseActivityHandler(t *testing.T) {
	caseID := primitive.NewObjectID().Hex()
	adb := &dbMocks.ActivityDatabase{}
	adb.On("FindByCase", mock.Anything, caseID, 50, 1).Return([]models.ActivityLogEntry{
		{CaseID: caseID, Event: models.EventSessionCreated},
		{CaseID: caseID, Event: models.EventResponseSubmitted},
	}, nil)

	req, err := http.NewRequest(http.MethodGet, "/api/v1/case/"+caseID+"/activity", nil)
	if err != nil {
		t.Fatal(err)
	}
	req = mux.SetURLVars(req, map[string]string{"case_id": caseID})
	rr := httptest.NewRecorder()

	c := handlers.Case{ADB: adb}
	handler := http.HandlerFunc(c.CaseActivityHandler)
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var entries []models.ActivityLogEntry
	assert.Nil(t, json.Unmarshal(rr.Body.Bytes(), &entries))
	assert.Len(t, entries, 2)
	adb.AssertExpectations(t)
}

func TestEscalationStatusHandler(t *testing.T) {
	caseOID := primitive.NewObjectID()
	caseDB := &dbMocks.CaseDatabase{}
	caseDB.On("FindOne", mock.Anything, mock.Anything).Return(&models.DisputeCase{
		ID: caseOID,
		Details: models.DisputeCaseDetails{
			Status:   models.CaseStatusMediation,
			OpenedAt: primitive.NewDateTimeFromTime(testClock().now.Add(-40 * 24 * time.Hour)),
		},
	}, nil)
	selDB := &dbMocks.SelectionDatabase{}
	selDB.On("Find", mock.Anything, mock.Anything).Return([]models.OptionSelection{}, nil)

	notifier, adb := quietGatewayMocks()
	coordinator := escalation.NewCoordinator(caseDB, selDB, adb, &gwMocks.EscalationSink{}, notifier, testClock())

	req, err := http.NewRequest(http.MethodGet, "/api/v1/case/"+caseOID.Hex()+"/escalation", nil)
	if err != nil {
		t.Fatal(err)
	}
	req = mux.SetURLVars(req, map[string]string{"case_id": caseOID.Hex()})
	rr := httptest.NewRecorder()

	c := handlers.Case{Coordinator: coordinator}
	handler := http.HandlerFunc(c.EscalationStatusHandler)
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]interface{}
	assert.Nil(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["qualifies"])
	assert.Contains(t, resp["reason"], "30-day ceiling")
}

func TestForwardCaseHandler(t *testing.T) {
	caseOID := primitive.NewObjectID()
	caseDB := &dbMocks.CaseDatabase{}
	caseDB.On("FindOne", mock.Anything, mock.Anything).Return(&models.DisputeCase{
		ID: caseOID,
		Details: models.DisputeCaseDetails{
			Amount:       1800,
			ClaimantID:   "claimant-1",
			RespondentID: "respondent-1",
			Status:       models.CaseStatusMediation,
			OpenedAt:     primitive.NewDateTimeFromTime(testClock().now.Add(-10 * 24 * time.Hour)),
		},
	}, nil)
	caseDB.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).
		Return(&mongo.UpdateResult{MatchedCount: 1}, nil)

	sink := &gwMocks.EscalationSink{}
	sink.On("File", mock.Anything, mock.Anything).Return("FIL-2025-0042", nil)

	notifier, adb := quietGatewayMocks()
	coordinator := escalation.NewCoordinator(caseDB, &dbMocks.SelectionDatabase{}, adb, sink, notifier, testClock())

	body, _ := json.Marshal(map[string]string{"reason": "both parties deadlocked"})
	req, err := http.NewRequest(http.MethodPost, "/api/v1/case/"+caseOID.Hex()+"/forward", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	req = mux.SetURLVars(req, map[string]string{"case_id": caseOID.Hex()})
	rr := httptest.NewRecorder()

	c := handlers.Case{Coordinator: coordinator}
	handler := http.HandlerFunc(c.ForwardCaseHandler)
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	sink.AssertCalled(t, "File", mock.Anything, mock.Anything)
}

func TestForwardCaseHandlerFilingFailureIsBadGateway(t *testing.T) {
	caseOID := primitive.NewObjectID()
	caseDB := &dbMocks.CaseDatabase{}
	caseDB.On("FindOne", mock.Anything, mock.Anything).Return(&models.DisputeCase{
		ID: caseOID,
		Details: models.DisputeCaseDetails{
			Status:   models.CaseStatusPendingEscalation,
			OpenedAt: primitive.NewDateTimeFromTime(testClock().now.Add(-10 * 24 * time.Hour)),
		},
	}, nil)

	sink := &gwMocks.EscalationSink{}
	sink.On("File", mock.Anything, mock.Anything).Return("", assert.AnError)

	notifier, adb := quietGatewayMocks()
	coordinator := escalation.NewCoordinator(caseDB, &dbMocks.SelectionDatabase{}, adb, sink, notifier, testClock())

	body, _ := json.Marshal(map[string]string{"reason": "retry"})
	req, err := http.NewRequest(http.MethodPost, "/api/v1/case/"+caseOID.Hex()+"/forward", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	req = mux.SetURLVars(req, map[string]string{"case_id": caseOID.Hex()})
	rr := httptest.NewRecorder()

	c := handlers.Case{Coordinator: coordinator}
	handler := http.HandlerFunc(c.ForwardCaseHandler)
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadGateway, rr.Code)
}
