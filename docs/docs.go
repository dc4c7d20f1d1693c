// Package docs Accord Dispute Mediation API.
//
// Documentation of the Accord Dispute Mediation API.
//
//     Schemes: https
//     BasePath: /
//     Version: 1.0.0
//
//     Consumes:
//     - application/json
//
//     Produces:
//     - application/json
//
//     Security:
//     - basic
//
//    SecurityDefinitions:
//    basic:
//      type: basic
//
// swagger:meta
package docs

import (
	"github.com/accordlabs/dispute-mediation-api/models"
)

// NegotiationSessionResponse returns a negotiation session
// swagger:response negotiationSessionResponse
type NegotiationSessionResponse struct {
	// in:body
	Body models.NegotiationSession
}

// DisputeCaseResponse returns a dispute case
// swagger:response disputeCaseResponse
type DisputeCaseResponse struct {
	// in:body
	Body models.DisputeCase
}

// SettlementOptionsResponse returns the settlement options for a case
// swagger:response settlementOptionsResponse
type SettlementOptionsResponse struct {
	// in:body
	Body []models.SettlementOption
}

// ActivityLogResponse returns a page of a case's audit trail
// swagger:response activityLogResponse
type ActivityLogResponse struct {
	// in:body
	Body []models.ActivityLogEntry
}

// ErrorResponse returns the standard error body
// swagger:response errorResponse
type ErrorResponse struct {
	// in:body
	Body models.ErrorMessageResponse
}
