package gateways

import (
	"context"
	"time"

	"github.com/accordlabs/dispute-mediation-api/models"
)

// Clock supplies the current time. Injected everywhere deadline arithmetic
// happens so tests can pin the clock.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock used in production
type SystemClock struct{}

// Now returns the current UTC time
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// NotificationGateway delivers an event to a set of parties. Fire and
// forget: callers log failures and move on, a committed state transition is
// never rolled back because a notification could not be delivered.
type NotificationGateway interface {
	Notify(ctx context.Context, event string, recipients []string, payload map[string]interface{}) error
}

// CompromiseGenerator produces a compromise settlement option from two
// mismatched selections. Generation may be slow; callers invoke it off the
// request path.
type CompromiseGenerator interface {
	Generate(ctx context.Context, optionA, optionB models.SettlementOption, caseContext string) (*models.SettlementOption, error)
}

// CaseSummary is the filing payload handed to the external judicial process
type CaseSummary struct {
	CaseID    string   `json:"caseID"`
	Title     string   `json:"title"`
	Amount    float64  `json:"amount"`
	CourtTier string   `json:"courtTier"`
	Reason    string   `json:"reason"`
	Parties   []string `json:"parties"`
	OpenedAt  string   `json:"openedAt"`
}

// EscalationSink files a case with an external court system. A non-nil
// error means the filing was NOT accepted and the case must stay in a
// pending-escalation state.
type EscalationSink interface {
	File(ctx context.Context, summary CaseSummary) (string, error)
}

// MultiNotifier fans a notification out to several gateways (email,
// websocket). The first error is returned after every gateway has been
// attempted.
type MultiNotifier struct {
	Gateways []NotificationGateway
}

// Notify delivers the event through every configured gateway
func (m *MultiNotifier) Notify(ctx context.Context, event string, recipients []string, payload map[string]interface{}) error {
	var firstErr error
	for _, g := range m.Gateways {
		if err := g.Notify(ctx, event, recipients, payload); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
