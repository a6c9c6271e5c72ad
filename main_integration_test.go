package main_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	testAppBinary         = "./trohub_test_app"
	testAppPort           = "8089"
	testServiceApiPortApi = "8091"
	testServiceApiPortBg  = "8092"
	testAppURL            = "http://localhost:" + testAppPort
	testServiceApiURL     = "http://localhost:" + testServiceApiPortApi
	startupTimeout        = 15 * time.Second
	pingEndpoint          = testAppURL + "/ping"

	adminEmail    = "admin@trohub.test"
	adminPassword = "integration-pass"
)

var testDbName = fmt.Sprintf("trohub_integration_%d", os.Getpid())

// TestMain builds the binary, runs it as separate API and worker processes
// against MONGO_URI_TEST, and tears everything down afterwards.
func TestMain(m *testing.M) {
	os.Exit(runIntegration(m))
}

// runIntegration returns the exit code so deferred teardown always runs.
func runIntegration(m *testing.M) int {
	_ = godotenv.Load()
	mongoURI := os.Getenv("MONGO_URI_TEST")
	if mongoURI == "" {
		log.Println("MONGO_URI_TEST not set, skipping integration tests")
		return 0
	}
	defer func() { _ = os.Remove(testAppBinary) }()

	buildOutput, err := exec.Command("go", "build", "-o", testAppBinary, ".").CombinedOutput()
	if err != nil {
		log.Printf("Failed to build application: %v\nOutput:\n%s", err, string(buildOutput))
		return 1
	}
	defer dropTestDatabase(mongoURI)

	env := append(os.Environ(),
		"MONGO_URI="+mongoURI,
		"MONGO_DB_NAME="+testDbName,
		"MONGO_TRANSACTIONS=false", // Standalone test servers have no replica set
		"JWT_SECRET=integration-test-secret",
		"GIN_MODE=release",
		"MOCK_SERVICES=true",
		"ADMIN_EMAIL="+adminEmail,
		"ADMIN_PASSWORD="+adminPassword,
		"RATE_LIMIT_BUCKET_SIZE=1000",
		"RATE_LIMIT_REFILL_RATE=1000",
	)
	apiCmd, err := startProcess(env, "api", "API_PORT="+testAppPort, "SERVICE_API_PORT="+testServiceApiPortApi)
	if err != nil {
		log.Print(err)
		return 1
	}
	defer stopProcess(apiCmd)
	bgCmd, err := startProcess(env, "bg", "SERVICE_API_PORT="+testServiceApiPortBg)
	if err != nil {
		log.Print(err)
		return 1
	}
	defer stopProcess(bgCmd)

	if !waitForPing() {
		log.Printf("Application failed to start within %v", startupTimeout)
		return 1
	}
	// The worker has no health endpoint; give it a moment to connect.
	time.Sleep(2 * time.Second)

	return m.Run()
}

func startProcess(env []string, mode string, extra ...string) (*exec.Cmd, error) {
	cmd := exec.Command(testAppBinary, "-m", mode)
	cmd.Env = append(append([]string{}, env...), extra...)
	cmd.Stderr = os.Stderr
	cmd.Stdout = os.Stdout
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s process: %w", mode, err)
	}
	return cmd, nil
}

func stopProcess(cmd *exec.Cmd) {
	if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
		_ = cmd.Process.Kill()
		return
	}
	_, _ = cmd.Process.Wait()
}

func waitForPing() bool {
	start := time.Now()
	for time.Since(start) < startupTimeout {
		resp, err := http.Get(pingEndpoint)
		if err == nil {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK && string(body) == "pong" {
				return true
			}
		}
		time.Sleep(200 * time.Millisecond)
	}
	return false
}

func dropTestDatabase(uri string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		log.Printf("Cleanup: failed to connect to MongoDB: %v", err)
		return
	}
	defer client.Disconnect(ctx)
	if err := client.Database(testDbName).Drop(ctx); err != nil {
		log.Printf("Cleanup: failed to drop %s: %v", testDbName, err)
	}
}

type apiResponse struct {
	Status  int
	Success bool                   `json:"success"`
	Data    map[string]interface{} `json:"data"`
	Message string                 `json:"message"`
}

func call(t *testing.T, method, path, token string, body interface{}) apiResponse {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, testAppURL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := apiResponse{Status: resp.StatusCode}
	// List endpoints return arrays in data; callers here only need objects.
	_ = json.Unmarshal(raw, &out)
	return out
}

func login(t *testing.T) string {
	t.Helper()
	resp := call(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": adminEmail, "password": adminPassword})
	require.Equal(t, http.StatusOK, resp.Status, resp.Message)
	return resp.Data["token"].(string)
}

func TestIntegration_Ping(t *testing.T) {
	resp, err := http.Get(pingEndpoint)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "pong", string(body))
}

func TestIntegration_Unauthorized(t *testing.T) {
	resp := call(t, http.MethodGet, "/api/hoa-don", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Status)
	assert.Equal(t, "Unauthorized", resp.Message)
}

// TestIntegration_BillingCycle runs a month end to end: contract, reading,
// generated invoice, partial and final payment, and the tenant email.
func TestIntegration_BillingCycle(t *testing.T) {
	token := login(t)
	loc, err := time.LoadLocation("Asia/Ho_Chi_Minh")
	require.NoError(t, err)
	now := time.Now().In(loc)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)

	building := call(t, http.MethodPost, "/api/toa-nha", token, map[string]interface{}{
		"name":    "Nhà trọ Integration",
		"address": map[string]string{"street": "12 Lê Lợi", "city": "Hồ Chí Minh"},
	})
	require.Equal(t, http.StatusCreated, building.Status, building.Message)

	room := call(t, http.MethodPost, "/api/phong", token, map[string]interface{}{
		"building_id": building.Data["id"],
		"code":        "P101",
		"area":        20,
		"base_rent":   2000000,
		"max_tenants": 2,
	})
	require.Equal(t, http.StatusCreated, room.Status, room.Message)
	roomID := room.Data["id"].(string)
	assert.Equal(t, "vacant", room.Data["status"])

	tenantEmail := fmt.Sprintf("tenant-%d@trohub.test", os.Getpid())
	tenant := call(t, http.MethodPost, "/api/khach-thue", token, map[string]interface{}{
		"full_name": "Nguyễn Văn A",
		"phone":     "0912345678",
		"email":     tenantEmail,
		"id_number": "079123456789",
	})
	require.Equal(t, http.StatusCreated, tenant.Status, tenant.Message)

	contract := call(t, http.MethodPost, "/api/hop-dong", token, map[string]interface{}{
		"room_id":          roomID,
		"tenant_ids":       []interface{}{tenant.Data["id"]},
		"start_date":       monthStart.AddDate(0, -1, 0).Format(time.RFC3339),
		"end_date":         monthStart.AddDate(1, 0, 0).Format(time.RFC3339),
		"rent":             2000000,
		"deposit":          2000000,
		"payment_day":      28,
		"electricity_rate": 3500,
		"water_rate":       25000,
		"service_fees":     []map[string]interface{}{{"name": "Wi-Fi", "price": 100000}},
	})
	require.Equal(t, http.StatusCreated, contract.Status, contract.Message)

	roomNow := call(t, http.MethodGet, "/api/phong/"+roomID, token, nil)
	assert.Equal(t, "occupied", roomNow.Data["status"])

	reading := call(t, http.MethodPost, "/api/chi-so-dien-nuoc", token, map[string]interface{}{
		"room_id":         roomID,
		"month":           int(now.Month()),
		"year":            now.Year(),
		"electricity_old": 100,
		"electricity_new": 150,
		"water_old":       10,
		"water_new":       15,
	})
	require.Equal(t, http.StatusCreated, reading.Status, reading.Message)

	precheck := call(t, http.MethodGet, "/api/auto-invoice", token, nil)
	require.Equal(t, http.StatusOK, precheck.Status)
	assert.EqualValues(t, 1, precheck.Data["readyToGenerate"])

	run := call(t, http.MethodPost, "/api/auto-invoice", token, nil)
	require.Equal(t, http.StatusOK, run.Status, run.Message)
	assert.EqualValues(t, 1, run.Data["createdCount"])
	invoiceID := run.Data["invoiceIds"].([]interface{})[0].(string)

	// A second run for the same period creates nothing.
	again := call(t, http.MethodPost, "/api/auto-invoice", token, nil)
	assert.EqualValues(t, 0, again.Data["createdCount"])

	invoice := call(t, http.MethodGet, "/api/hoa-don/"+invoiceID, token, nil)
	assert.EqualValues(t, 2400000, invoice.Data["total"])
	assert.Equal(t, "unpaid", invoice.Data["status"])

	partial := call(t, http.MethodPost, "/api/thanh-toan", token, map[string]interface{}{"invoice_id": invoiceID, "amount": 1000000, "method": "cash"})
	require.Equal(t, http.StatusCreated, partial.Status, partial.Message)
	inv := partial.Data["invoice"].(map[string]interface{})
	assert.EqualValues(t, 1400000, inv["remaining"])
	assert.Equal(t, "partially_paid", inv["status"])

	over := call(t, http.MethodPost, "/api/thanh-toan", token, map[string]interface{}{"invoice_id": invoiceID, "amount": 1400001, "method": "cash"})
	assert.Equal(t, http.StatusBadRequest, over.Status)

	noInfo := call(t, http.MethodPost, "/api/thanh-toan", token, map[string]interface{}{"invoice_id": invoiceID, "amount": 1400000, "method": "bank_transfer"})
	assert.Equal(t, http.StatusBadRequest, noInfo.Status)

	final := call(t, http.MethodPost, "/api/thanh-toan", token, map[string]interface{}{
		"invoice_id":    invoiceID,
		"amount":        1400000,
		"method":        "bank_transfer",
		"transfer_info": map[string]string{"bank": "VCB", "account_number": "0011001234567", "reference": "P101 T" + now.Format("01")},
	})
	require.Equal(t, http.StatusCreated, final.Status, final.Message)
	inv = final.Data["invoice"].(map[string]interface{})
	assert.EqualValues(t, 0, inv["remaining"])
	assert.Equal(t, "paid", inv["status"])

	del := call(t, http.MethodDelete, "/api/hoa-don?id="+invoiceID, token, nil)
	assert.Equal(t, http.StatusConflict, del.Status)

	// The worker delivers the invoice email into the Redis mailbox.
	var captured struct {
		Success bool `json:"success"`
		Data    struct {
			Subject string `json:"subject"`
		} `json:"data"`
	}
	body := fmt.Sprintf(`{"method":"getTestEmail","arguments":[%q]}`, tenantEmail)
	resp, err := http.Post(testServiceApiURL+"/api", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&captured))
	assert.NotEmpty(t, captured.Data.Subject)
}
