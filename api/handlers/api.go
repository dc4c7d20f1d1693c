package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/accordlabs/dispute-mediation-api/api"
	"github.com/accordlabs/dispute-mediation-api/api/consensus"
	"github.com/accordlabs/dispute-mediation-api/api/escalation"
	"github.com/accordlabs/dispute-mediation-api/api/negotiation"
	"github.com/accordlabs/dispute-mediation-api/api/scheduler"
	"github.com/accordlabs/dispute-mediation-api/config"
	"github.com/accordlabs/dispute-mediation-api/databases"
	"github.com/accordlabs/dispute-mediation-api/gateways"
	"github.com/accordlabs/dispute-mediation-api/models"
)

// App stores the router, db connection and the workflow services, so it can be reused
type App struct {
	Router      *mux.Router
	Config      config.Config
	Engine      *negotiation.Engine
	Evaluator   *consensus.Evaluator
	Coordinator *escalation.Coordinator
	Scheduler   *scheduler.Scheduler
	dbHelper    databases.DatabaseHelper
}

// New creates a new mux router and all the routes
func (a *App) New() *mux.Router {
	// setup go-guardian for middleware
	m := api.MiddlewareDB{DB: databases.NewPartyDatabase(a.dbHelper)}
	m.SetupGoGuardian()

	r := mux.NewRouter()
	r.Use(api.MetricsMiddleware)

	s := Session{Engine: a.Engine, Scheduler: a.Scheduler}
	c := Case{
		DB:          databases.NewCaseDatabase(a.dbHelper),
		ADB:         databases.NewActivityDatabase(a.dbHelper),
		Coordinator: a.Coordinator,
	}
	o := Option{DB: databases.NewOptionDatabase(a.dbHelper), Evaluator: a.Evaluator}
	p := Party{DB: databases.NewPartyDatabase(a.dbHelper)}

	// healthchex
	r.HandleFunc("/health", healthCheckHandler)

	// live workflow events
	r.HandleFunc("/ws/notifications", HandleNotificationsWebSocket)

	apiCreate := r.PathPrefix("/api/v1").Subrouter()

	apiCreate.Handle("/auth/token", api.Middleware(http.HandlerFunc(m.CreateToken))).Methods("POST")
	apiCreate.Handle("/auth/logout", api.Middleware(http.HandlerFunc(api.RevokeToken))).Methods("DELETE")

	apiCreate.Handle("/party/create-party", http.HandlerFunc(p.PartyCreateHandler)).Methods("POST")
	apiCreate.Handle("/party/{party_id}", api.Middleware(http.HandlerFunc(p.PartyByIDHandler))).Methods("GET")
	apiCreate.Handle("/party/{party_id}/cases", api.Middleware(http.HandlerFunc(c.CasesByPartyHandler))).Methods("GET")

	apiCreate.Handle("/case", api.Middleware(http.HandlerFunc(c.CreateCaseHandler))).Methods("POST")
	apiCreate.Handle("/case/{case_id}", api.Middleware(http.HandlerFunc(c.CaseByIDHandler))).Methods("GET")
	apiCreate.Handle("/case/{case_id}/activity", api.Middleware(http.HandlerFunc(c.CaseActivityHandler))).Methods("GET")
	apiCreate.Handle("/case/{case_id}/escalation", api.Middleware(http.HandlerFunc(c.EscalationStatusHandler))).Methods("GET")
	apiCreate.Handle("/case/{case_id}/forward", api.Middleware(http.HandlerFunc(c.ForwardCaseHandler))).Methods("POST")

	apiCreate.Handle("/case/{case_id}/options", api.Middleware(http.HandlerFunc(o.CreateOptionHandler))).Methods("POST")
	apiCreate.Handle("/case/{case_id}/options", api.Middleware(http.HandlerFunc(o.OptionsByCaseHandler))).Methods("GET")
	apiCreate.Handle("/case/{case_id}/selections", api.Middleware(http.HandlerFunc(o.SelectOptionHandler))).Methods("POST")
	apiCreate.Handle("/case/{case_id}/consensus", api.Middleware(http.HandlerFunc(o.ConsensusHandler))).Methods("GET")

	apiCreate.Handle("/session", api.Middleware(http.HandlerFunc(s.CreateSessionHandler))).Methods("POST")
	apiCreate.Handle("/session/{session_id}", api.Middleware(http.HandlerFunc(s.SessionByIDHandler))).Methods("GET")
	apiCreate.Handle("/session/{session_id}/responses", api.Middleware(http.HandlerFunc(s.SubmitResponseHandler))).Methods("POST")
	apiCreate.Handle("/session/{session_id}/cancel", api.Middleware(http.HandlerFunc(s.CancelSessionHandler))).Methods("POST")
	apiCreate.Handle("/session/{session_id}/extend", api.Middleware(http.HandlerFunc(s.ExtendDeadlineHandler))).Methods("POST")

	apiCreate.Handle("/metrics/summary", api.Middleware(http.HandlerFunc(MetricsSummaryHandler))).Methods("GET")

	return r
}

// Initialize is invoked by main to connect with the database and create the
// workflow services and router
func (a *App) Initialize() error {

	client, err := databases.NewClient(&a.Config)
	if err != nil {
		// if we fail to create a new database client, then kill the pod
		zap.S().With(err).Error("failed to create new client")
		return err
	}

	a.dbHelper = databases.NewDatabase(&a.Config, client)
	err = client.Connect()
	if err != nil {
		// if we fail to connect to the database, then kill the pod
		zap.S().With(err).Error("failed to connect to database")
		return err
	}
	zap.S().Info("dispute-mediation-api has connected to the database")

	sessionDB := databases.NewSessionDatabase(a.dbHelper)
	timerDB := databases.NewTimerDatabase(a.dbHelper)
	caseDB := databases.NewCaseDatabase(a.dbHelper)
	selectionDB := databases.NewSelectionDatabase(a.dbHelper)
	optionDB := databases.NewOptionDatabase(a.dbHelper)
	activityDB := databases.NewActivityDatabase(a.dbHelper)
	partyDB := databases.NewPartyDatabase(a.dbHelper)

	clock := gateways.SystemClock{}
	notifier := &gateways.MultiNotifier{Gateways: []gateways.NotificationGateway{
		HubNotifier{},
		gateways.NewEmailNotifier(partyDB, a.Config.BaseURL, clock),
	}}

	a.Coordinator = escalation.NewCoordinator(
		caseDB,
		selectionDB,
		activityDB,
		gateways.NewFilingClient(a.Config.CourtFilingURL),
		notifier,
		clock,
	)
	a.Engine = negotiation.NewEngine(
		sessionDB,
		timerDB,
		caseDB,
		activityDB,
		notifier,
		clock,
		a.Coordinator,
	)
	a.Evaluator = consensus.NewEvaluator(
		selectionDB,
		optionDB,
		caseDB,
		activityDB,
		gateways.NewCompromiseClient(a.Config.CompromiseAPIURL),
		notifier,
		clock,
		a.Coordinator,
	)
	a.Scheduler = scheduler.NewScheduler(
		timerDB,
		sessionDB,
		activityDB,
		notifier,
		clock,
		a.Engine,
	)

	// initialize api router
	a.initializeRoutes()
	return nil

}

func (a *App) initializeRoutes() {
	a.Router = a.New()
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	b, _ := json.Marshal(models.HealthCheckResponse{
		Alive: true,
	})
	_, _ = io.WriteString(w, string(b))
}
