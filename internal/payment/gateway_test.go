package payment

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedFacilitator struct {
	verifyErr   error
	settleErr   error
	settle      SettleResult
	verifyCalls int
	settleCalls int
}

func (f *scriptedFacilitator) Verify(ctx context.Context, proof *Proof, req Requirements) error {
	f.verifyCalls++
	return f.verifyErr
}

func (f *scriptedFacilitator) Settle(ctx context.Context, proof *Proof, req Requirements) (*SettleResult, error) {
	f.settleCalls++
	if f.settleErr != nil {
		return nil, f.settleErr
	}
	return &f.settle, nil
}

func gatewayRequirements() Requirements {
	return Requirements{
		Scheme:            "exact",
		Network:           "algorand-testnet",
		Asset:             "31566704",
		Amount:            10000,
		PayTo:             "PLATFORM",
		MaxTimeoutSeconds: 10,
	}
}

func encodeProof(t *testing.T, p Proof) string {
	t.Helper()
	b, err := json.Marshal(p)
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(b)
}

func validHeader(t *testing.T, nonce string) string {
	req := gatewayRequirements()
	return encodeProof(t, Proof{
		X402Version: 1,
		Scheme:      req.Scheme,
		Network:     req.Network,
		Payload: ProofPayload{
			Transaction: "c2lnbmVkLXR4bg==",
			Payer:       "BUYER1",
			PayTo:       req.PayTo,
			Asset:       req.Asset,
			Amount:      req.Amount,
			Nonce:       nonce,
		},
	})
}

func setupGateway(t *testing.T, fac *scriptedFacilitator) *Gateway {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	return &Gateway{
		Requirements: gatewayRequirements(),
		Facilitator:  fac,
		Guard:        &ReplayGuard{Rdb: rdb},
	}
}

func noopOp(result interface{}) Operation {
	return func(ctx context.Context) (interface{}, error) {
		return result, nil
	}
}

func TestExecute_MissingHeader(t *testing.T) {
	g := setupGateway(t, &scriptedFacilitator{settle: SettleResult{Success: true}})

	_, _, err := g.Execute(context.Background(), "", noopOp("ok"))
	pe, ok := IsPaymentError(err)
	require.True(t, ok)
	assert.Contains(t, pe.Msg, "missing "+HeaderName)
	assert.False(t, pe.Settlement)
}

func TestExecute_MalformedProof(t *testing.T) {
	g := setupGateway(t, &scriptedFacilitator{})

	_, _, err := g.Execute(context.Background(), "not base64!!!", noopOp("ok"))
	_, ok := IsPaymentError(err)
	require.True(t, ok)
	assert.Contains(t, err.Error(), "Invalid payment proof")
}

func TestExecute_TermMismatches(t *testing.T) {
	g := setupGateway(t, &scriptedFacilitator{})
	req := gatewayRequirements()

	cases := []struct {
		name  string
		proof Proof
	}{
		{"wrong scheme", Proof{Scheme: "stream", Network: req.Network, Payload: ProofPayload{Transaction: "x", PayTo: req.PayTo, Asset: req.Asset, Amount: req.Amount}}},
		{"wrong network", Proof{Scheme: "exact", Network: "mainnet", Payload: ProofPayload{Transaction: "x", PayTo: req.PayTo, Asset: req.Asset, Amount: req.Amount}}},
		{"wrong asset", Proof{Scheme: "exact", Network: req.Network, Payload: ProofPayload{Transaction: "x", PayTo: req.PayTo, Asset: "0", Amount: req.Amount}}},
		{"short amount", Proof{Scheme: "exact", Network: req.Network, Payload: ProofPayload{Transaction: "x", PayTo: req.PayTo, Asset: req.Asset, Amount: req.Amount - 1}}},
		{"wrong payee", Proof{Scheme: "exact", Network: req.Network, Payload: ProofPayload{Transaction: "x", PayTo: "OTHER", Asset: req.Asset, Amount: req.Amount}}},
		{"self payment", Proof{Scheme: "exact", Network: req.Network, Payload: ProofPayload{Transaction: "x", Payer: req.PayTo, PayTo: req.PayTo, Asset: req.Asset, Amount: req.Amount}}},
		{"no transaction", Proof{Scheme: "exact", Network: req.Network, Payload: ProofPayload{PayTo: req.PayTo, Asset: req.Asset, Amount: req.Amount}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := g.Execute(context.Background(), encodeProof(t, tc.proof), noopOp("ok"))
			_, ok := IsPaymentError(err)
			assert.True(t, ok, "expected payment error")
		})
	}
}

func TestExecute_HappyPath(t *testing.T) {
	fac := &scriptedFacilitator{settle: SettleResult{Success: true, TxHash: "TX9", NetworkID: "algorand-testnet"}}
	g := setupGateway(t, fac)

	result, receipt, err := g.Execute(context.Background(), validHeader(t, "n1"), noopOp("business-result"))
	require.NoError(t, err)
	assert.Equal(t, "business-result", result)
	require.NotNil(t, receipt)
	assert.Equal(t, "TX9", receipt.TxRef)
	assert.Equal(t, "algorand-testnet", receipt.Network)
	assert.EqualValues(t, 10000, receipt.Amount)
	assert.Equal(t, 1, fac.verifyCalls)
	assert.Equal(t, 1, fac.settleCalls)
}

func TestExecute_ReplayRejected(t *testing.T) {
	fac := &scriptedFacilitator{settle: SettleResult{Success: true, TxHash: "TX9"}}
	g := setupGateway(t, fac)
	header := validHeader(t, "n1")

	_, _, err := g.Execute(context.Background(), header, noopOp("ok"))
	require.NoError(t, err)

	_, _, err = g.Execute(context.Background(), header, noopOp("ok"))
	pe, ok := IsPaymentError(err)
	require.True(t, ok)
	assert.Contains(t, pe.Msg, "already used")
	assert.Equal(t, 1, fac.settleCalls)
}

func TestExecute_VerifyRejectionReleasesProof(t *testing.T) {
	fac := &scriptedFacilitator{verifyErr: errors.New("bad signature")}
	g := setupGateway(t, fac)
	header := validHeader(t, "n1")

	_, _, err := g.Execute(context.Background(), header, noopOp("ok"))
	_, ok := IsPaymentError(err)
	require.True(t, ok)

	// The proof was not consumed; a corrected facilitator accepts it.
	fac.verifyErr = nil
	fac.settle = SettleResult{Success: true}
	_, _, err = g.Execute(context.Background(), header, noopOp("ok"))
	require.NoError(t, err)
}

// A failed business operation never settles and leaves the proof usable.
func TestExecute_OpFailureDoesNotSettle(t *testing.T) {
	fac := &scriptedFacilitator{settle: SettleResult{Success: true}}
	g := setupGateway(t, fac)
	header := validHeader(t, "n1")

	opErr := errors.New("Batch not found")
	_, _, err := g.Execute(context.Background(), header, func(ctx context.Context) (interface{}, error) {
		return nil, opErr
	})
	require.Equal(t, opErr, err)
	_, ok := IsPaymentError(err)
	assert.False(t, ok)
	assert.Equal(t, 0, fac.settleCalls)

	_, _, err = g.Execute(context.Background(), header, noopOp("ok"))
	require.NoError(t, err)
}

// Settlement failure after a successful operation surfaces as a distinct
// payment error and keeps the proof retryable.
func TestExecute_SettleFailureSurfacedDistinctly(t *testing.T) {
	fac := &scriptedFacilitator{settle: SettleResult{Success: false, ErrorReason: "insufficient balance"}}
	g := setupGateway(t, fac)
	header := validHeader(t, "n1")

	opRan := 0
	op := func(ctx context.Context) (interface{}, error) {
		opRan++
		return "persisted", nil
	}

	_, _, err := g.Execute(context.Background(), header, op)
	pe, ok := IsPaymentError(err)
	require.True(t, ok)
	assert.True(t, pe.Settlement)
	assert.Contains(t, pe.Msg, "insufficient balance")
	assert.Equal(t, 1, opRan)

	// Retry with the same proof succeeds once settlement recovers.
	fac.settle = SettleResult{Success: true, TxHash: "TX1"}
	_, receipt, err := g.Execute(context.Background(), header, op)
	require.NoError(t, err)
	assert.Equal(t, "TX1", receipt.TxRef)
	assert.Equal(t, 2, opRan)
}
