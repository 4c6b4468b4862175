package payment

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

// HeaderName carries the base64-encoded payment proof.
const HeaderName = "X-Payment"

const supportedScheme = "exact"

// Requirements is the machine-readable quote returned on 402 responses.
// Clients satisfy it by submitting a signed transaction artifact matching
// every field.
type Requirements struct {
	Scheme            string `json:"scheme"`
	Network           string `json:"network"`
	Asset             string `json:"asset"`
	Amount            int64  `json:"amount"`
	PayTo             string `json:"payTo"`
	MaxTimeoutSeconds int    `json:"maxTimeoutSeconds"`
	Resource          string `json:"resource"`
	Description       string `json:"description"`
}

// Proof is the decoded X-Payment header.
type Proof struct {
	X402Version int          `json:"x402Version"`
	Scheme      string       `json:"scheme"`
	Network     string       `json:"network"`
	Payload     ProofPayload `json:"payload"`
}

// ProofPayload is the signed transaction artifact plus the terms the
// payer claims to meet. The facilitator verifies the signature and chain
// state; the gateway only checks well-formedness and term equality.
type ProofPayload struct {
	Transaction string `json:"transaction"`
	Payer       string `json:"payer"`
	PayTo       string `json:"payTo"`
	Asset       string `json:"asset"`
	Amount      int64  `json:"amount"`
	Nonce       string `json:"nonce"`
}

// DecodeProof parses the X-Payment header value.
func DecodeProof(header string) (*Proof, error) {
	raw, err := base64.StdEncoding.DecodeString(header)
	if err != nil {
		return nil, errors.New("payment proof is not valid base64")
	}
	var p Proof
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, errors.New("payment proof is not valid JSON")
	}
	return &p, nil
}

// ValidateProof checks the decoded proof against the advertised
// requirements before any facilitator round trip.
func ValidateProof(p *Proof, req Requirements) error {
	if p.Scheme != supportedScheme {
		return fmt.Errorf("unsupported payment scheme %q", p.Scheme)
	}
	if p.Network != req.Network {
		return fmt.Errorf("payment network %q does not match required %q", p.Network, req.Network)
	}
	if p.Payload.Transaction == "" {
		return errors.New("payment proof is missing the signed transaction")
	}
	if p.Payload.Asset != req.Asset {
		return fmt.Errorf("payment asset %q does not match required %q", p.Payload.Asset, req.Asset)
	}
	if p.Payload.Amount < req.Amount {
		return fmt.Errorf("payment amount %d is below the required %d", p.Payload.Amount, req.Amount)
	}
	if p.Payload.PayTo != req.PayTo {
		return errors.New("payment is not addressed to the required payee")
	}
	if p.Payload.Payer != "" && p.Payload.Payer == req.PayTo {
		return errors.New("self-payment is not allowed")
	}
	return nil
}
