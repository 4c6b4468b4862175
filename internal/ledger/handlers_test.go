package ledger

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupLedgerApp(t *testing.T) *fiber.App {
	svc, _ := setupLedgerTest(t)
	h := &Handlers{Service: svc}

	app := fiber.New()
	app.Post("/batch", h.CreateBatch)
	app.Post("/checkpoint", h.AppendCheckpoint)
	app.Post("/handoff/initiate", h.InitiateHandoff)
	app.Post("/handoff/confirm", h.ConfirmHandoff)
	app.Get("/batch/:id", h.GetBatch)
	app.Get("/batch/:id/journey", h.GetJourney)
	app.Get("/farmer/:addr/batches", h.GetFarmerBatches)
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &parsed))
	return resp.StatusCode, parsed
}

func TestCreateBatchEndpoint(t *testing.T) {
	app := setupLedgerApp(t)

	status, body := doJSON(t, app, "POST", "/batch", fiber.Map{
		"cropType":   "mango",
		"weight":     120.5,
		"farmGps":    "1.3521|103.8198",
		"farmerAddr": "FARMER1",
	})
	require.Equal(t, 201, status)
	assert.EqualValues(t, 1, body["batchId"])
	assert.Equal(t, "Batch registered successfully", body["message"])

	status, body = doJSON(t, app, "POST", "/batch", fiber.Map{
		"weight":     1,
		"farmerAddr": "FARMER1",
	})
	require.Equal(t, 400, status)
	assert.Equal(t, "Crop type is required", body["error"])
}

func TestCheckpointEndpoint(t *testing.T) {
	app := setupLedgerApp(t)

	status, _ := doJSON(t, app, "POST", "/batch", fiber.Map{
		"cropType": "mango", "weight": 50, "farmerAddr": "FARMER1",
	})
	require.Equal(t, 201, status)

	status, body := doJSON(t, app, "POST", "/checkpoint", fiber.Map{
		"batchId": 1, "gps": "1.36|103.82", "temperature": 4.5, "timestamp": 1700000000,
	})
	require.Equal(t, 201, status)
	assert.EqualValues(t, 1, body["index"])

	status, body = doJSON(t, app, "POST", "/checkpoint", fiber.Map{
		"gps": "1.36|103.82",
	})
	require.Equal(t, 400, status)
	assert.Equal(t, "Missing batchId", body["error"])

	status, body = doJSON(t, app, "POST", "/checkpoint", fiber.Map{
		"batchId": 999, "gps": "1.36|103.82",
	})
	require.Equal(t, 404, status)
	assert.Equal(t, "Batch not found", body["error"])
}

func TestHandoffEndpoints(t *testing.T) {
	app := setupLedgerApp(t)

	status, _ := doJSON(t, app, "POST", "/batch", fiber.Map{
		"cropType": "mango", "weight": 50, "farmerAddr": "FARMER1",
	})
	require.Equal(t, 201, status)

	status, body := doJSON(t, app, "POST", "/handoff/initiate", fiber.Map{
		"batchId": 1, "fromAddr": "FARMER1", "toAddr": "DIST1",
		"handoffType": "farm-to-distributor", "photoHashes": []string{"QmHash1"},
	})
	require.Equal(t, 201, status)
	assert.EqualValues(t, 1, body["index"])

	status, body = doJSON(t, app, "POST", "/handoff/confirm", fiber.Map{
		"batchId": 1, "index": 1, "confirmedAt": 1700005000,
	})
	require.Equal(t, 200, status)
	assert.Equal(t, "Handoff confirmed successfully", body["message"])

	status, body = doJSON(t, app, "POST", "/handoff/confirm", fiber.Map{
		"batchId": 1, "index": 1, "confirmedAt": 1700006000,
	})
	require.Equal(t, 400, status)
	assert.Equal(t, "Handoff already confirmed", body["error"])

	status, body = doJSON(t, app, "POST", "/handoff/confirm", fiber.Map{
		"batchId": 1, "index": 9,
	})
	require.Equal(t, 404, status)
	assert.Equal(t, "Handoff not found", body["error"])
}

func TestGetBatchEndpoint(t *testing.T) {
	app := setupLedgerApp(t)

	status, _ := doJSON(t, app, "POST", "/batch", fiber.Map{
		"cropType": "durian", "weight": 30, "farmerAddr": "FARMER1",
	})
	require.Equal(t, 201, status)

	status, body := doJSON(t, app, "GET", "/batch/1", nil)
	require.Equal(t, 200, status)
	batch, ok := body["batch"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "durian", batch["cropType"])

	status, body = doJSON(t, app, "GET", "/batch/999", nil)
	require.Equal(t, 404, status)
	assert.Equal(t, "Batch not found", body["error"])

	status, body = doJSON(t, app, "GET", "/batch/abc", nil)
	require.Equal(t, 400, status)
	assert.Equal(t, "Invalid batch id", body["error"])
}

func TestJourneyEndpoint(t *testing.T) {
	app := setupLedgerApp(t)

	status, _ := doJSON(t, app, "POST", "/batch", fiber.Map{
		"cropType": "mango", "weight": 50, "farmerAddr": "FARMER1",
	})
	require.Equal(t, 201, status)
	status, _ = doJSON(t, app, "POST", "/checkpoint", fiber.Map{
		"batchId": 1, "gps": "1.36|103.82", "timestamp": 1700000000,
	})
	require.Equal(t, 201, status)

	status, body := doJSON(t, app, "GET", "/batch/1/journey", nil)
	require.Equal(t, 200, status)
	assert.NotNil(t, body["batch"])
	assert.Len(t, body["checkpoints"], 1)
	assert.Len(t, body["handoffs"], 0)
	assert.Nil(t, body["verification"])
}

func TestFarmerBatchesEndpoint(t *testing.T) {
	app := setupLedgerApp(t)

	for _, farmer := range []string{"FARMER1", "FARMER1", "FARMER2"} {
		status, _ := doJSON(t, app, "POST", "/batch", fiber.Map{
			"cropType": "mango", "weight": 50, "farmerAddr": farmer,
		})
		require.Equal(t, 201, status)
	}

	status, body := doJSON(t, app, "GET", "/farmer/FARMER1/batches", nil)
	require.Equal(t, 200, status)
	assert.Len(t, body["batches"], 2)
}
