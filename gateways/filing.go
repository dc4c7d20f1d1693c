package gateways

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/accordlabs/dispute-mediation-api/models"
)

// FilingClient files cases with the external court intake service. A case
// is only ever marked forwarded after this client returned a filing
// reference, so a failed or half-finished filing never looks like success.
type FilingClient struct {
	baseURL string
	client  *http.Client
}

// NewFilingClient creates a court filing client
func NewFilingClient(baseURL string) *FilingClient {
	return &FilingClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type filingResponse struct {
	FilingReference string `json:"filingReference"`
}

// File submits the case summary and returns the court's filing reference
func (f *FilingClient) File(ctx context.Context, summary CaseSummary) (string, error) {
	body, err := json.Marshal(summary)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.baseURL+"/v1/filings", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	// the intake service deduplicates retried filings on this key, so a
	// re-attempt after a timeout cannot double-file the same case
	req.Header.Set("Idempotency-Key", uuid.NewSHA1(uuid.NameSpaceURL, []byte("filing:"+summary.CaseID)).String())

	resp, err := f.client.Do(req)
	if err != nil {
		return "", &models.TransientDependencyError{Dependency: "court-filing", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return "", &models.TransientDependencyError{
			Dependency: "court-filing",
			Err:        fmt.Errorf("filing not accepted, status %d", resp.StatusCode),
		}
	}

	var out filingResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &models.TransientDependencyError{Dependency: "court-filing", Err: err}
	}
	if out.FilingReference == "" {
		return "", &models.TransientDependencyError{
			Dependency: "court-filing",
			Err:        fmt.Errorf("filing accepted without a reference"),
		}
	}
	return out.FilingReference, nil
}
