package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/accordlabs/dispute-mediation-api/config"
	"github.com/accordlabs/dispute-mediation-api/models"
)

// writeDomainError maps typed domain errors onto HTTP status codes and
// writes the standard error body
func writeDomainError(message string, w http.ResponseWriter, err error) {
	config.ErrorStatus(message, statusForError(err), w, err)
}

func statusForError(err error) int {
	var (
		validation *models.ValidationError
		notFound   *models.NotFoundError
		conflict   *models.ConflictError
		transient  *models.TransientDependencyError
	)
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &conflict):
		return http.StatusConflict
	case errors.As(err, &transient):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// getPage returns the "page" query param, or the default when absent or invalid
func getPage(defaultPage int, r *http.Request) int {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 0 {
		return defaultPage
	}
	return page
}
