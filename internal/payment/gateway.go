package payment

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
)

// PaymentError marks protocol failures that should surface as a
// 402-equivalent response carrying the requirements. Settlement is true
// when a valid proof could not be settled after the paid operation ran.
type PaymentError struct {
	Msg        string
	Settlement bool
}

func (e *PaymentError) Error() string {
	return e.Msg
}

// Receipt is handed back on a settled payment, built only from the
// facilitator's settlement result.
type Receipt struct {
	Amount    int64  `json:"amount"`
	Asset     string `json:"asset"`
	Network   string `json:"network"`
	TxRef     string `json:"txRef"`
	Timestamp int64  `json:"timestamp"`
}

// Gateway mediates the pay-to-verify protocol: probe responses carry the
// requirements; paid requests run the business operation and settle only
// after it succeeds. Each proof is single-use via the replay guard.
type Gateway struct {
	Requirements Requirements
	Facilitator  Facilitator
	Guard        *ReplayGuard
}

// Operation is the paid business operation. It runs at most once per
// accepted payment proof.
type Operation func(ctx context.Context) (interface{}, error)

// Execute drives one request through the payment state machine. On
// success it returns the operation result and a receipt. A *PaymentError
// means the operation is unpaid-for from the caller's perspective; any
// other error is the operation's own failure (the proof stays unused).
//
// Known limitation: when settlement fails after the operation succeeded,
// whatever the operation persisted stays persisted. The caller is told to
// retry; re-running the operation overwrites the same record.
func (g *Gateway) Execute(ctx context.Context, header string, op Operation) (interface{}, *Receipt, error) {
	if header == "" {
		return nil, nil, &PaymentError{Msg: "Payment required: missing " + HeaderName + " header"}
	}

	proof, err := DecodeProof(header)
	if err != nil {
		return nil, nil, &PaymentError{Msg: "Invalid payment proof: " + err.Error()}
	}
	if err := ValidateProof(proof, g.Requirements); err != nil {
		return nil, nil, &PaymentError{Msg: "Invalid payment proof: " + err.Error()}
	}

	key := ProofKey(header)
	acquired, err := g.Guard.Acquire(ctx, key)
	if err != nil {
		return nil, nil, err
	}
	if !acquired {
		return nil, nil, &PaymentError{Msg: "Payment proof already used"}
	}

	if err := g.Facilitator.Verify(ctx, proof, g.Requirements); err != nil {
		g.release(ctx, key)
		return nil, nil, &PaymentError{Msg: "Payment verification failed: " + err.Error()}
	}

	result, err := op(ctx)
	if err != nil {
		g.release(ctx, key)
		return nil, nil, err
	}

	settle, err := g.Facilitator.Settle(ctx, proof, g.Requirements)
	if err != nil {
		g.release(ctx, key)
		return nil, nil, &PaymentError{Msg: "Payment settlement failed: " + err.Error(), Settlement: true}
	}
	if !settle.Success {
		g.release(ctx, key)
		reason := settle.ErrorReason
		if reason == "" {
			reason = "settlement rejected"
		}
		return nil, nil, &PaymentError{Msg: "Payment settlement failed: " + reason, Settlement: true}
	}

	if err := g.Guard.MarkSettled(ctx, key); err != nil {
		log.Error().Err(err).Msg("Failed to pin settled payment proof")
	}

	receipt := &Receipt{
		Amount:    g.Requirements.Amount,
		Asset:     g.Requirements.Asset,
		Network:   settle.NetworkID,
		TxRef:     settle.TxHash,
		Timestamp: time.Now().Unix(),
	}
	return result, receipt, nil
}

func (g *Gateway) release(ctx context.Context, key string) {
	if err := g.Guard.Release(ctx, key); err != nil {
		log.Error().Err(err).Msg("Failed to release payment proof claim")
	}
}

// IsPaymentError reports whether err is a protocol-level payment failure.
func IsPaymentError(err error) (*PaymentError, bool) {
	var pe *PaymentError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
