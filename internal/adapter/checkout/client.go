// Package checkout is a thin client for the external payment provider. The
// service never touches card data; it only opens hosted checkout sessions and
// reads their status back.
package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/classifly/ad-service/internal/app/config"
	"github.com/classifly/ad-service/internal/domain/entity"
)

type CreateSessionRequest struct {
	Amount     float64           `json:"amount"`
	Currency   string            `json:"currency"`
	SuccessURL string            `json:"success_url"`
	CancelURL  string            `json:"cancel_url"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

type Session struct {
	SessionID   string `json:"session_id"`
	RedirectURL string `json:"url"`
}

type Client interface {
	CreateSession(ctx context.Context, req CreateSessionRequest) (*Session, error)
	GetSessionStatus(ctx context.Context, sessionID string) (entity.PaymentStatus, error)
}

type httpClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewClient(cfg config.CheckoutConfig) (Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("checkout provider base URL is not configured")
	}
	return &httpClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: cfg.ClientTimeout},
	}, nil
}

func (c *httpClient) CreateSession(ctx context.Context, req CreateSessionRequest) (*Session, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal checkout session request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/checkout/sessions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build checkout session request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("checkout provider request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("checkout provider returned status %d", resp.StatusCode)
	}

	var session Session
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, fmt.Errorf("failed to decode checkout session response: %w", err)
	}
	if session.SessionID == "" || session.RedirectURL == "" {
		return nil, fmt.Errorf("checkout provider returned an incomplete session")
	}
	return &session, nil
}

func (c *httpClient) GetSessionStatus(ctx context.Context, sessionID string) (entity.PaymentStatus, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/checkout/sessions/"+sessionID, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build session status request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("checkout provider request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", fmt.Errorf("checkout session %s not found at provider", sessionID)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("checkout provider returned status %d", resp.StatusCode)
	}

	var out struct {
		PaymentStatus string `json:"payment_status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode session status response: %w", err)
	}

	switch entity.PaymentStatus(out.PaymentStatus) {
	case entity.PaymentPending, entity.PaymentPaid, entity.PaymentFailed, entity.PaymentExpired:
		return entity.PaymentStatus(out.PaymentStatus), nil
	default:
		return "", fmt.Errorf("checkout provider returned unknown payment status %q", out.PaymentStatus)
	}
}
