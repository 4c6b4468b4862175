package verification

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"agritrace-backend/internal/payment"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFacilitator struct {
	settleCalls int
}

func (f *fakeFacilitator) Verify(ctx context.Context, proof *payment.Proof, req payment.Requirements) error {
	return nil
}

func (f *fakeFacilitator) Settle(ctx context.Context, proof *payment.Proof, req payment.Requirements) (*payment.SettleResult, error) {
	f.settleCalls++
	return &payment.SettleResult{Success: true, TxHash: "TX123", NetworkID: req.Network}, nil
}

func testRequirements() payment.Requirements {
	return payment.Requirements{
		Scheme:            "exact",
		Network:           "algorand-testnet",
		Asset:             "31566704",
		Amount:            10000,
		PayTo:             "PLATFORM",
		MaxTimeoutSeconds: 10,
		Resource:          "/verify",
	}
}

func proofHeader(t *testing.T, req payment.Requirements, nonce string) string {
	t.Helper()
	b, err := json.Marshal(payment.Proof{
		X402Version: 1,
		Scheme:      req.Scheme,
		Network:     req.Network,
		Payload: payment.ProofPayload{
			Transaction: "c2lnbmVkLXR4bg==",
			Payer:       "BUYER1",
			PayTo:       req.PayTo,
			Asset:       req.Asset,
			Amount:      req.Amount,
			Nonce:       nonce,
		},
	})
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(b)
}

func setupVerifyApp(t *testing.T) (*fiber.App, *fakeFacilitator) {
	svc, db := setupVerifyTest(t)
	seedBatch(t, db)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})

	fac := &fakeFacilitator{}
	h := &Handlers{
		Service: svc,
		Gateway: &payment.Gateway{
			Requirements: testRequirements(),
			Facilitator:  fac,
			Guard:        &payment.ReplayGuard{Rdb: rdb},
		},
	}

	app := fiber.New()
	app.Get("/verify", h.Probe)
	app.Post("/verify", h.Verify)
	app.Get("/status/:batchAsaId", h.Status)
	return app, fac
}

func postVerify(t *testing.T, app *fiber.App, body map[string]interface{}, header string) (int, map[string]interface{}) {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest("POST", "/verify", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	if header != "" {
		req.Header.Set(payment.HeaderName, header)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	raw, _ := io.ReadAll(resp.Body)
	var out map[string]interface{}
	_ = json.Unmarshal(raw, &out)
	return resp.StatusCode, out
}

func TestProbe_NoProofReturnsRequirements(t *testing.T) {
	app, _ := setupVerifyApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/verify", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusPaymentRequired, resp.StatusCode)

	raw, _ := io.ReadAll(resp.Body)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.NotEmpty(t, out["error"])
	accepts := out["accepts"].([]interface{})
	require.Len(t, accepts, 1)
	quote := accepts[0].(map[string]interface{})
	assert.Equal(t, "exact", quote["scheme"])
	assert.Equal(t, "PLATFORM", quote["payTo"])
}

func TestPostVerify_NoProof402(t *testing.T) {
	app, _ := setupVerifyApp(t)
	status, out := postVerify(t, app, map[string]interface{}{"batchAsaId": 1}, "")

	assert.Equal(t, fiber.StatusPaymentRequired, status)
	assert.Contains(t, out["error"], "Payment required")
	assert.NotNil(t, out["accepts"])
}

func TestPostVerify_MissingBatchAsaID400(t *testing.T) {
	app, _ := setupVerifyApp(t)
	status, out := postVerify(t, app, map[string]interface{}{}, proofHeader(t, testRequirements(), "n1"))

	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "Missing batchAsaId", out["error"])
}

func TestPostVerify_UnknownEvidenceKey400(t *testing.T) {
	app, _ := setupVerifyApp(t)
	status, out := postVerify(t, app, map[string]interface{}{
		"batchAsaId": 1,
		"evidence":   map[string]interface{}{"bogusKey": true},
	}, proofHeader(t, testRequirements(), "n1"))

	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Contains(t, out["error"], "Unrecognized evidence field")
}

func TestPostVerify_PaidRunReturnsRecordAndReceipt(t *testing.T) {
	app, fac := setupVerifyApp(t)
	status, out := postVerify(t, app, map[string]interface{}{"batchAsaId": 1}, proofHeader(t, testRequirements(), "n1"))

	require.Equal(t, fiber.StatusOK, status)
	verification := out["verification"].(map[string]interface{})
	assert.Equal(t, "VERIFIED", verification["result"])
	assert.EqualValues(t, 85, verification["confidence"])

	pay := out["payment"].(map[string]interface{})
	assert.Equal(t, "TX123", pay["txRef"])
	assert.EqualValues(t, 10000, pay["amount"])
	assert.Equal(t, 1, fac.settleCalls)
}

// A settled proof must be rejected on replay, not re-run.
func TestPostVerify_ReplayedProofRejected(t *testing.T) {
	app, fac := setupVerifyApp(t)
	header := proofHeader(t, testRequirements(), "n1")

	status, _ := postVerify(t, app, map[string]interface{}{"batchAsaId": 1}, header)
	require.Equal(t, fiber.StatusOK, status)

	status, out := postVerify(t, app, map[string]interface{}{"batchAsaId": 1}, header)
	assert.Equal(t, fiber.StatusPaymentRequired, status)
	assert.Contains(t, out["error"], "already used")
	assert.Equal(t, 1, fac.settleCalls)
}

func TestStatus_FoundAndNotFound(t *testing.T) {
	app, _ := setupVerifyApp(t)

	status, _ := postVerify(t, app, map[string]interface{}{"batchAsaId": 1}, proofHeader(t, testRequirements(), "n1"))
	require.Equal(t, fiber.StatusOK, status)

	resp, err := app.Test(httptest.NewRequest("GET", "/status/1", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/status/777", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
