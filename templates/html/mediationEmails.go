package templates

import (
	"fmt"
	"html"
)

// RenderNegotiationInviteEmail builds the invitation email sent to every
// party when a negotiation session is created
func RenderNegotiationInviteEmail(link string, payload map[string]interface{}) string {
	deadline, _ := payload["deadline"].(string)
	amount := payload["amount"]

	body := fmt.Sprintf(
		"You have been invited to a time-boxed settlement negotiation.\n\n"+
			"Opening offer: %v\n"+
			"Response deadline: %s\n\n"+
			"Review the offer and submit your response before the deadline. "+
			"If you do not respond in time the session may expire and the case can be forwarded to court.\n\n"+
			"Open your negotiation: %s",
		amount, deadline, link)

	return RenderGenericEmail("Settlement negotiation invitation", body)
}

// RenderDeadlineReminderEmail builds the reminder email fired at fixed
// offsets before a phase deadline
func RenderDeadlineReminderEmail(link string, payload map[string]interface{}) string {
	hoursLeft := payload["hoursLeft"]
	phase, _ := payload["phase"].(string)

	body := fmt.Sprintf(
		"The %s deadline on your mediation case is approaching: about %v hour(s) remain.\n\n"+
			"If you have not submitted yet, please do so now: %s",
		html.EscapeString(phase), hoursLeft, link)

	return RenderGenericEmail("Deadline reminder", body)
}

// RenderRoundAdvancedEmail builds the email sent when a counter offer
// advances the negotiation to a new round
func RenderRoundAdvancedEmail(link string, payload map[string]interface{}) string {
	round := payload["round"]
	amount := payload["amount"]

	body := fmt.Sprintf(
		"A counter offer moved your negotiation into round %v.\n\n"+
			"New base offer: %v\n\n"+
			"All parties must respond again before the deadline: %s",
		round, amount, link)

	return RenderGenericEmail("New negotiation round", body)
}
