package gateways

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/accordlabs/dispute-mediation-api/models"
)

// CompromiseClient calls the external compromise-generation service. The
// service is slow (it drives an LLM), so callers run Generate on a
// goroutine and persist the result when it arrives.
type CompromiseClient struct {
	baseURL string
	client  *http.Client
}

// NewCompromiseClient creates a compromise generator client
func NewCompromiseClient(baseURL string) *CompromiseClient {
	return &CompromiseClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 90 * time.Second},
	}
}

type compromiseRequest struct {
	OptionA models.SettlementOption `json:"optionA"`
	OptionB models.SettlementOption `json:"optionB"`
	Context string                  `json:"context"`
}

type compromiseResponse struct {
	Title  string  `json:"title"`
	Terms  string  `json:"terms"`
	Amount float64 `json:"amount"`
}

// Generate asks the external service for a compromise between two options
func (c *CompromiseClient) Generate(ctx context.Context, optionA, optionB models.SettlementOption, caseContext string) (*models.SettlementOption, error) {
	body, err := json.Marshal(compromiseRequest{OptionA: optionA, OptionB: optionB, Context: caseContext})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/compromises", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &models.TransientDependencyError{Dependency: "compromise-generator", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &models.TransientDependencyError{
			Dependency: "compromise-generator",
			Err:        fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	var out compromiseResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &models.TransientDependencyError{Dependency: "compromise-generator", Err: err}
	}

	return &models.SettlementOption{
		CaseID: optionA.CaseID,
		Title:  out.Title,
		Terms:  out.Terms,
		Amount: out.Amount,
		Source: models.OptionSourceCompromise,
	}, nil
}
