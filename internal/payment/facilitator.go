package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Facilitator verifies and settles payment proofs. Satisfied by the HTTP
// client below; tests substitute fakes.
type Facilitator interface {
	Verify(ctx context.Context, proof *Proof, req Requirements) error
	Settle(ctx context.Context, proof *Proof, req Requirements) (*SettleResult, error)
}

// SettleResult is the facilitator's settlement response. Receipts are
// built strictly from this, never invented locally.
type SettleResult struct {
	Success     bool   `json:"success"`
	TxHash      string `json:"txHash"`
	NetworkID   string `json:"networkId"`
	ErrorReason string `json:"errorReason"`
}

// HTTPFacilitator talks to an external settlement service. Every call is
// bounded by the client timeout so a stuck facilitator surfaces as an
// error instead of a hang.
type HTTPFacilitator struct {
	BaseURL string
	Client  *http.Client
}

func NewHTTPFacilitator(baseURL string, timeout time.Duration) *HTTPFacilitator {
	return &HTTPFacilitator{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: timeout},
	}
}

type facilitatorRequest struct {
	PaymentPayload      *Proof       `json:"paymentPayload"`
	PaymentRequirements Requirements `json:"paymentRequirements"`
}

type verifyResponse struct {
	IsValid       bool   `json:"isValid"`
	InvalidReason string `json:"invalidReason"`
}

func (f *HTTPFacilitator) post(ctx context.Context, path string, body facilitatorRequest, out interface{}) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.BaseURL+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("facilitator returned status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (f *HTTPFacilitator) Verify(ctx context.Context, proof *Proof, req Requirements) error {
	var out verifyResponse
	if err := f.post(ctx, "/verify", facilitatorRequest{PaymentPayload: proof, PaymentRequirements: req}, &out); err != nil {
		return err
	}
	if !out.IsValid {
		reason := out.InvalidReason
		if reason == "" {
			reason = "proof rejected"
		}
		return fmt.Errorf("payment verification failed: %s", reason)
	}
	return nil
}

func (f *HTTPFacilitator) Settle(ctx context.Context, proof *Proof, req Requirements) (*SettleResult, error) {
	var out SettleResult
	if err := f.post(ctx, "/settle", facilitatorRequest{PaymentPayload: proof, PaymentRequirements: req}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
