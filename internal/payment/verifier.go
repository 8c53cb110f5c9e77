package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Verification is the gateway's answer for one reference. PaidAmount is in
// whole currency units.
type Verification struct {
	Status     string
	PaidAmount float64
	RawPayload string
}

// Verifier answers whether a payment reference was actually paid. The
// gateway is authoritative and safe to re-query.
type Verifier interface {
	Verify(ctx context.Context, reference string) (*Verification, error)
}

// PaystackClient verifies transactions against the Paystack REST API.
type PaystackClient struct {
	baseURL   string
	secretKey string
	client    *http.Client
}

func NewPaystackClient(baseURL, secretKey string) *PaystackClient {
	return &PaystackClient{
		baseURL:   baseURL,
		secretKey: secretKey,
		// Generous bound: the gateway can take several seconds to settle.
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

type paystackResponse struct {
	Status bool   `json:"status"`
	Data   struct {
		Status string `json:"status"`
		// Amount is reported in subunits (kobo).
		Amount          int64  `json:"amount"`
		GatewayResponse string `json:"gateway_response"`
	} `json:"data"`
}

func (p *PaystackClient) Verify(ctx context.Context, reference string) (*Verification, error) {
	endpoint := fmt.Sprintf("%s/transaction/verify/%s", p.baseURL, url.PathEscape(reference))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+p.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVerifierUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVerifierUnavailable, err)
	}

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: gateway returned %d", ErrVerifierUnavailable, resp.StatusCode)
	}

	var parsed paystackResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVerificationFailed, err)
	}

	if resp.StatusCode != http.StatusOK || !parsed.Status {
		return nil, fmt.Errorf("%w: gateway status %d", ErrVerificationFailed, resp.StatusCode)
	}

	return &Verification{
		Status:     parsed.Data.Status,
		PaidAmount: float64(parsed.Data.Amount) / 100,
		RawPayload: string(body),
	}, nil
}
