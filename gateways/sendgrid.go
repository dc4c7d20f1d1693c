package gateways

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/accordlabs/dispute-mediation-api/databases"
	"github.com/accordlabs/dispute-mediation-api/models"
	templates "github.com/accordlabs/dispute-mediation-api/templates/html"
)

// EmailNotifier delivers mediation events to parties over sendgrid
type EmailNotifier struct {
	Parties databases.PartyDatabase
	BaseURL string
	Clock   Clock
}

// NewEmailNotifier creates an email notifier backed by the party directory
func NewEmailNotifier(parties databases.PartyDatabase, baseURL string, clock Clock) *EmailNotifier {
	return &EmailNotifier{Parties: parties, BaseURL: baseURL, Clock: clock}
}

// Notify renders and sends one email per recipient. The first delivery
// error is returned after every recipient has been attempted.
func (n *EmailNotifier) Notify(ctx context.Context, event string, recipients []string, payload map[string]interface{}) error {
	subject, body := n.render(event, payload)

	var firstErr error
	for _, userID := range recipients {
		party, err := n.Parties.FindOne(ctx, bson.M{"_id": userID})
		if err != nil || party.Details.Email == "" {
			zap.S().Warnw("no deliverable email for party", "userId", userID, "event", event)
			continue
		}
		if err := n.sendEmail(party.Details.Email, party.Details.Name, subject, body); err != nil {
			zap.S().Errorw("failed to send notification email",
				"error", err,
				"userId", userID,
				"event", event,
			)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (n *EmailNotifier) render(event string, payload map[string]interface{}) (subject, htmlContent string) {
	sessionID, _ := payload["sessionID"].(string)

	switch event {
	case models.EventSessionCreated:
		subject = "You have been invited to a settlement negotiation"
		htmlContent = templates.RenderNegotiationInviteEmail(n.sessionLink(sessionID), payload)
	case models.EventReminderSent:
		subject = "Reminder: a negotiation deadline is approaching"
		htmlContent = templates.RenderDeadlineReminderEmail(n.sessionLink(sessionID), payload)
	case models.EventRoundAdvanced:
		subject = "A new negotiation round has started"
		htmlContent = templates.RenderRoundAdvancedEmail(n.sessionLink(sessionID), payload)
	case models.EventSessionCompleted:
		subject = "Your negotiation has concluded"
		htmlContent = templates.RenderGenericEmail(subject, fmt.Sprintf("The negotiation session has concluded with outcome: %v.", payload["outcome"]))
	case models.EventConsensusReached:
		subject = "Both parties agreed on a settlement option"
		htmlContent = templates.RenderGenericEmail(subject, "Both parties selected the same settlement option. The mediator will prepare the settlement agreement.")
	case models.EventCaseForwarded:
		subject = "Your case has been forwarded to court"
		htmlContent = templates.RenderGenericEmail(subject, fmt.Sprintf("Mediation did not resolve the dispute; the case was forwarded to the %v court. Filing reference: %v.", payload["courtTier"], payload["filingReference"]))
	default:
		subject = "Update on your mediation case"
		htmlContent = templates.RenderGenericEmail(subject, fmt.Sprintf("There is a new %s event on your case.", event))
	}
	return subject, htmlContent
}

// sessionLink builds a signed deep link into the negotiation UI. The token
// only proves the link came from us, it is not an auth credential.
func (n *EmailNotifier) sessionLink(sessionID string) string {
	if sessionID == "" {
		return n.BaseURL
	}
	link := fmt.Sprintf("%s/negotiations/%s", n.BaseURL, sessionID)

	jwtSecret := []byte(os.Getenv("JWT_SECRET"))
	if len(jwtSecret) == 0 {
		return link
	}
	claims := jwt.MapClaims{
		"sessionID": sessionID,
		"exp":       n.Clock.Now().Add(14 * 24 * time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(jwtSecret)
	if err != nil {
		zap.S().Warnw("failed to sign session link", "error", err)
		return link
	}
	return fmt.Sprintf("%s?t=%s", link, signed)
}

func (n *EmailNotifier) sendEmail(toEmail, toName, subject, htmlContent string) error {
	from := mail.NewEmail("Accord Mediation", "no-reply@accord-mediation.com")
	to := mail.NewEmail(toName, toEmail)
	plainText := subject
	message := mail.NewSingleEmail(from, subject, to, plainText, htmlContent)
	client := sendgrid.NewSendClient(os.Getenv("SENDGRID_API_KEY"))
	response, err := client.Send(message)
	if err != nil {
		return err
	}
	if response.StatusCode >= 400 {
		zap.S().Errorw("sendgrid returned error status", "status", response.StatusCode, "body", response.Body)
	}
	return nil
}
