package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/arusnet/arus/internal/alarm"
	"github.com/arusnet/arus/internal/audit"
	"github.com/arusnet/arus/internal/authorization"
	"github.com/arusnet/arus/internal/cache"
	"github.com/arusnet/arus/internal/clock"
	"github.com/arusnet/arus/internal/cloudmetrics"
	"github.com/arusnet/arus/internal/config"
	"github.com/arusnet/arus/internal/customer"
	"github.com/arusnet/arus/internal/dashboard"
	"github.com/arusnet/arus/internal/device"
	"github.com/arusnet/arus/internal/identity"
	"github.com/arusnet/arus/internal/internetpackage"
	"github.com/arusnet/arus/internal/invoice"
	"github.com/arusnet/arus/internal/migration"
	"github.com/arusnet/arus/internal/notification"
	"github.com/arusnet/arus/internal/observability"
	"github.com/arusnet/arus/internal/payment"
	"github.com/arusnet/arus/internal/providers"
	"github.com/arusnet/arus/internal/ratelimit"
	"github.com/arusnet/arus/internal/scheduler"
	schedulertesting "github.com/arusnet/arus/internal/scheduler/testing"
	"github.com/arusnet/arus/internal/seed"
	"github.com/arusnet/arus/internal/server"
	"github.com/arusnet/arus/internal/session"
	"github.com/arusnet/arus/internal/subscription"
	"github.com/arusnet/arus/internal/sysconfig"
	"github.com/arusnet/arus/internal/systemlog"
	"github.com/arusnet/arus/internal/traffic"
	"github.com/arusnet/arus/pkg/db"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

type testEnv struct {
	app       *fx.App
	server    *server.Server
	db        *gorm.DB
	cfg       config.Config
	baseURL   string
	scheduler *scheduler.Scheduler
	httpSrv   *httptest.Server
}

var env *testEnv

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	setDefaultEnv()

	var err error
	env, err = startEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to start test environment:", err)
		os.Exit(1)
	}

	code := m.Run()
	env.shutdown()
	os.Exit(code)
}

func TestE2E_HealthCheck(t *testing.T) {
	resetDatabase(t, env.db)

	resp, err := http.Get(env.baseURL + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}
}

func TestE2E_BootstrapDefaultAdmin(t *testing.T) {
	resetDatabase(t, env.db)

	user := struct {
		ID       int64
		Username string
		Role     string
		IsActive bool
	}{}
	if err := env.db.Raw(
		`SELECT id, username, role, is_active FROM users WHERE username = ?`,
		"admin",
	).Scan(&user).Error; err != nil {
		t.Fatalf("query admin user: %v", err)
	}
	if user.ID == 0 || user.Role != "admin" || !user.IsActive {
		t.Fatalf("default admin not seeded: %+v", user)
	}

	token := loginAdmin(t)

	resp, body := doJSON(t, http.MethodGet, env.baseURL+"/v1/auth/me", nil, authHeaders(token))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("auth me failed: %d: %s", resp.StatusCode, string(body))
	}

	var payload struct {
		Data struct {
			Username string `json:"username"`
			Role     string `json:"role"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("decode me response: %v", err)
	}
	if payload.Data.Username != "admin" || payload.Data.Role != "admin" {
		t.Fatalf("unexpected identity: %+v", payload.Data)
	}
}

func TestE2E_SubscriberBillingFlow(t *testing.T) {
	resetDatabase(t, env.db)

	token := loginAdmin(t)
	fixture := createSubscriberFixture(t, token, "")

	wantPrefix := "INV-" + time.Now().UTC().Format("200601") + "-"
	if !strings.HasPrefix(fixture.InvoiceNumber, wantPrefix) {
		t.Fatalf("expected invoice number prefix %s, got %s", wantPrefix, fixture.InvoiceNumber)
	}

	resp, body := doJSON(t, http.MethodGet, env.baseURL+"/v1/invoices/"+fixture.InvoiceID, nil, authHeaders(token))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get invoice failed: %d: %s", resp.StatusCode, string(body))
	}
	var invPayload struct {
		Data struct {
			Status string `json:"status"`
			Amount int64  `json:"amount"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &invPayload); err != nil {
		t.Fatalf("decode invoice: %v", err)
	}
	if invPayload.Data.Status != "pending" {
		t.Fatalf("expected pending invoice, got %s", invPayload.Data.Status)
	}
	if invPayload.Data.Amount != 250000 {
		t.Fatalf("expected amount 250000, got %d", invPayload.Data.Amount)
	}

	// A second invoice in the same month takes the next sequence slot.
	second := issueInvoice(t, token, fixture.SubscriptionID, "")
	if second.InvoiceNumber == fixture.InvoiceNumber {
		t.Fatalf("expected a fresh invoice number, got duplicate %s", second.InvoiceNumber)
	}
	if !strings.HasPrefix(second.InvoiceNumber, wantPrefix) {
		t.Fatalf("expected invoice number prefix %s, got %s", wantPrefix, second.InvoiceNumber)
	}
}

func TestE2E_WebhookMarksInvoicePaid(t *testing.T) {
	resetDatabase(t, env.db)

	token := loginAdmin(t)
	fixture := createSubscriberFixture(t, token, "xnd-inv-e2e-0001")

	callback := map[string]any{
		"id":              "xnd-inv-e2e-0001",
		"external_id":     fixture.InvoiceNumber,
		"status":          "PAID",
		"amount":          250000,
		"paid_amount":     250000,
		"payment_id":      "xnd-pay-e2e-0001",
		"payment_method":  "BANK_TRANSFER",
		"payment_channel": "BCA",
		"paid_at":         time.Now().UTC().Format(time.RFC3339),
	}

	// A delivery with the wrong callback token never reaches the
	// reconciliation path.
	resp, body := doJSON(t, http.MethodPost, env.baseURL+"/v1/webhooks/xendit", callback, map[string]string{
		"X-Callback-Token": "not-the-token",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad callback token, got %d: %s", resp.StatusCode, string(body))
	}

	resp, body = doJSON(t, http.MethodPost, env.baseURL+"/v1/webhooks/xendit", callback, map[string]string{
		"X-Callback-Token": env.cfg.XenditCallbackToken,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("webhook delivery failed: %d: %s", resp.StatusCode, string(body))
	}

	status := getInvoiceStatus(t, token, fixture.InvoiceID)
	if status != "paid" {
		t.Fatalf("expected paid invoice after webhook, got %s", status)
	}
	if got := countRows(t, env.db, "payments", "xendit_payment_id = ?", "xnd-pay-e2e-0001"); got != 1 {
		t.Fatalf("expected 1 payment row, got %d", got)
	}

	// Gateways retry; the replay answers 200 without writing anything.
	resp, body = doJSON(t, http.MethodPost, env.baseURL+"/v1/webhooks/xendit", callback, map[string]string{
		"X-Callback-Token": env.cfg.XenditCallbackToken,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("webhook replay failed: %d: %s", resp.StatusCode, string(body))
	}
	if got := countRows(t, env.db, "payments", "xendit_payment_id = ?", "xnd-pay-e2e-0001"); got != 1 {
		t.Fatalf("expected replay to keep 1 payment row, got %d", got)
	}
	if status := getInvoiceStatus(t, token, fixture.InvoiceID); status != "paid" {
		t.Fatalf("expected invoice to stay paid after replay, got %s", status)
	}
}

func TestE2E_MonitoringRoleCannotCreateCustomer(t *testing.T) {
	resetDatabase(t, env.db)

	adminToken := loginAdmin(t)

	createReq := map[string]any{
		"username":  "noc-wallboard",
		"email":     "noc@arus.net.id",
		"password":  "wallboard-secret",
		"full_name": "NOC Wallboard",
		"role":      "monitoring",
	}
	resp, body := doJSON(t, http.MethodPost, env.baseURL+"/v1/users", createReq, authHeaders(adminToken))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("create monitoring user failed: %d: %s", resp.StatusCode, string(body))
	}

	nocToken := login(t, "noc-wallboard", "wallboard-secret")

	customerReq := map[string]any{
		"customer_code":   "CUST-0900",
		"name":            "Intrusive Wallboard",
		"connection_type": "pppoe",
	}
	resp, body = doJSON(t, http.MethodPost, env.baseURL+"/v1/customers", customerReq, authHeaders(nocToken))
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for monitoring create customer, got %d: %s", resp.StatusCode, string(body))
	}

	// The same credentials still cover the telemetry surface.
	resp, body = doJSON(t, http.MethodGet, env.baseURL+"/v1/sessions/pppoe", nil, authHeaders(nocToken))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected monitoring to list sessions, got %d: %s", resp.StatusCode, string(body))
	}
}

func TestE2E_SchedulerExpirySweeps(t *testing.T) {
	resetDatabase(t, env.db)

	token := loginAdmin(t)
	fixture := createSubscriberFixture(t, token, "")

	ctx := context.Background()
	accel := schedulertesting.NewTimeAccelerator(env.db)
	if err := accel.ExpireSubscription(ctx, mustParseID(t, fixture.SubscriptionID)); err != nil {
		t.Fatalf("backdate subscription: %v", err)
	}
	if err := accel.OverdueInvoice(ctx, mustParseID(t, fixture.InvoiceID)); err != nil {
		t.Fatalf("backdate invoice: %v", err)
	}

	if err := env.scheduler.RunOnce(ctx); err != nil {
		t.Fatalf("scheduler run failed: %v", err)
	}

	resp, body := doJSON(t, http.MethodGet, env.baseURL+"/v1/subscriptions/"+fixture.SubscriptionID, nil, authHeaders(token))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get subscription failed: %d: %s", resp.StatusCode, string(body))
	}
	var subPayload struct {
		Data struct {
			IsActive bool `json:"is_active"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &subPayload); err != nil {
		t.Fatalf("decode subscription: %v", err)
	}
	if subPayload.Data.IsActive {
		t.Fatalf("expected subscription deactivated by expiry sweep")
	}

	if status := getInvoiceStatus(t, token, fixture.InvoiceID); status != "expired" {
		t.Fatalf("expected expired invoice after sweep, got %s", status)
	}

	// The sweep only touches rows past their dates: a fresh pair
	// issued now survives the next run untouched.
	fresh := createSubscriberFixtureWithCode(t, token, "", "CUST-0002")
	if err := env.scheduler.RunOnce(ctx); err != nil {
		t.Fatalf("second scheduler run failed: %v", err)
	}
	if status := getInvoiceStatus(t, token, fresh.InvoiceID); status != "pending" {
		t.Fatalf("expected fresh invoice to stay pending, got %s", status)
	}
}

type subscriberFixture struct {
	CustomerID     string
	PackageID      string
	SubscriptionID string
	InvoiceID      string
	InvoiceNumber  string
}

func createSubscriberFixture(t *testing.T, token string, gatewayInvoiceID string) subscriberFixture {
	return createSubscriberFixtureWithCode(t, token, gatewayInvoiceID, "CUST-0001")
}

func createSubscriberFixtureWithCode(t *testing.T, token string, gatewayInvoiceID string, customerCode string) subscriberFixture {
	t.Helper()

	customerResp := struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}{}
	customerReq := map[string]any{
		"customer_code":   customerCode,
		"name":            "Budi Santoso",
		"email":           "budi@example.com",
		"phone":           "+6281234567890",
		"address":         "Jl. Merdeka No. 1, Bandung",
		"connection_type": "pppoe",
	}
	resp, body := doJSON(t, http.MethodPost, env.baseURL+"/v1/customers", customerReq, authHeaders(token))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("create customer failed: %d: %s", resp.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, &customerResp); err != nil {
		t.Fatalf("decode customer response: %v", err)
	}

	packageResp := struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}{}
	packageReq := map[string]any{
		"name":            "Paket Rumahan 20 Mbps",
		"connection_type": "pppoe",
		"bandwidth_up":    5,
		"bandwidth_down":  20,
		"price":           250000,
		"validity_days":   30,
	}
	resp, body = doJSON(t, http.MethodPost, env.baseURL+"/v1/packages", packageReq, authHeaders(token))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("create package failed: %d: %s", resp.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, &packageResp); err != nil {
		t.Fatalf("decode package response: %v", err)
	}

	subscriptionResp := struct {
		Data struct {
			ID       string `json:"id"`
			IsActive bool   `json:"is_active"`
		} `json:"data"`
	}{}
	subscriptionReq := map[string]any{
		"customer_id": customerResp.Data.ID,
		"package_id":  packageResp.Data.ID,
	}
	resp, body = doJSON(t, http.MethodPost, env.baseURL+"/v1/subscriptions", subscriptionReq, authHeaders(token))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("create subscription failed: %d: %s", resp.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, &subscriptionResp); err != nil {
		t.Fatalf("decode subscription response: %v", err)
	}
	if !subscriptionResp.Data.IsActive {
		t.Fatalf("expected active subscription")
	}

	inv := issueInvoice(t, token, subscriptionResp.Data.ID, gatewayInvoiceID)

	return subscriberFixture{
		CustomerID:     customerResp.Data.ID,
		PackageID:      packageResp.Data.ID,
		SubscriptionID: subscriptionResp.Data.ID,
		InvoiceID:      inv.ID,
		InvoiceNumber:  inv.InvoiceNumber,
	}
}

type issuedInvoice struct {
	ID            string
	InvoiceNumber string
}

func issueInvoice(t *testing.T, token string, subscriptionID string, gatewayInvoiceID string) issuedInvoice {
	t.Helper()

	invoiceReq := map[string]any{
		"subscription_id": subscriptionID,
		"due_days":        7,
	}
	if strings.TrimSpace(gatewayInvoiceID) != "" {
		invoiceReq["xendit_invoice_id"] = gatewayInvoiceID
	}
	resp, body := doJSON(t, http.MethodPost, env.baseURL+"/v1/invoices", invoiceReq, authHeaders(token))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("issue invoice failed: %d: %s", resp.StatusCode, string(body))
	}

	var payload struct {
		Data struct {
			ID            string `json:"id"`
			InvoiceNumber string `json:"invoice_number"`
			Status        string `json:"status"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("decode invoice response: %v", err)
	}
	if payload.Data.Status != "pending" {
		t.Fatalf("expected pending invoice, got %s", payload.Data.Status)
	}
	return issuedInvoice{ID: payload.Data.ID, InvoiceNumber: payload.Data.InvoiceNumber}
}

func getInvoiceStatus(t *testing.T, token string, invoiceID string) string {
	t.Helper()
	resp, body := doJSON(t, http.MethodGet, env.baseURL+"/v1/invoices/"+invoiceID, nil, authHeaders(token))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get invoice failed: %d: %s", resp.StatusCode, string(body))
	}
	var payload struct {
		Data struct {
			Status string `json:"status"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("decode invoice: %v", err)
	}
	return payload.Data.Status
}

func startEnv() (*testEnv, error) {
	var (
		srv         *server.Server
		dbConn      *gorm.DB
		cfg         config.Config
		schedulerSv *scheduler.Scheduler
	)

	app := fx.New(
		observability.Module,
		config.Module,
		db.Module,
		clock.Module,
		cloudmetrics.Module,
		cache.Module,
		ratelimit.Module,
		providers.Module,
		audit.Module,
		authorization.Module,
		systemlog.Module,
		sysconfig.Module,
		identity.Module,
		customer.Module,
		internetpackage.Module,
		subscription.Module,
		invoice.Module,
		payment.Module,
		device.Module,
		traffic.Module,
		alarm.Module,
		session.Module,
		notification.Module,
		dashboard.Module,
		migration.Module,
		fx.Provide(scheduler.ProvideConfig),
		fx.Provide(scheduler.New),
		fx.Provide(func() *snowflake.Node {
			node, err := snowflake.NewNode(1)
			if err != nil {
				panic(err)
			}
			return node
		}),
		fx.Provide(server.NewEngine),
		fx.Provide(server.NewServer),
		fx.Populate(&srv, &dbConn, &cfg, &schedulerSv),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := app.Start(ctx); err != nil {
		return nil, err
	}

	if strings.ToLower(strings.TrimSpace(cfg.DBType)) != "sqlite" {
		app.Stop(context.Background())
		return nil, fmt.Errorf("expected sqlite db, got %s", cfg.DBType)
	}

	httpSrv := httptest.NewServer(srv.Engine())

	return &testEnv{
		app:       app,
		server:    srv,
		db:        dbConn,
		cfg:       cfg,
		baseURL:   httpSrv.URL,
		scheduler: schedulerSv,
		httpSrv:   httpSrv,
	}, nil
}

func (e *testEnv) shutdown() {
	if e == nil {
		return
	}
	if e.httpSrv != nil {
		e.httpSrv.Close()
	}
	if e.app != nil {
		_ = e.app.Stop(context.Background())
	}
}

func setDefaultEnv() {
	setEnvIfEmpty("ENVIRONMENT", "test")
	setEnvIfEmpty("LOG_LEVEL", "error")
	setEnvIfEmpty("DATABASE_TYPE", "sqlite")
	setEnvIfEmpty("DATABASE_NAME", "file:arus_e2e?mode=memory&cache=shared")
	setEnvIfEmpty("AUTH_JWT_SECRET", "e2e-jwt-secret")
	setEnvIfEmpty("XENDIT_CALLBACK_TOKEN", "e2e-callback-token")
}

func setEnvIfEmpty(key, value string) {
	if strings.TrimSpace(os.Getenv(key)) != "" {
		return
	}
	_ = os.Setenv(key, value)
}

func resetDatabase(t *testing.T, dbConn *gorm.DB) {
	t.Helper()
	if err := clearAllTables(dbConn); err != nil {
		t.Fatalf("clear tables: %v", err)
	}
	if err := seed.EnsureDefaultTemplates(dbConn); err != nil {
		t.Fatalf("seed templates: %v", err)
	}
	if err := seed.EnsureDefaultSettings(dbConn); err != nil {
		t.Fatalf("seed settings: %v", err)
	}
	if err := seed.EnsureDefaultAdmin(dbConn); err != nil {
		t.Fatalf("seed default admin: %v", err)
	}
}

func clearAllTables(dbConn *gorm.DB) error {
	type tableRow struct {
		Name string `gorm:"column:name"`
	}
	var rows []tableRow
	if err := dbConn.Raw(
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'`,
	).Scan(&rows).Error; err != nil {
		return err
	}

	for _, row := range rows {
		switch row.Name {
		// casbin_rule backs the enforcer's in-memory policy; wiping it
		// would desync authorization for the rest of the run.
		case "casbin_rule", "schema_migrations":
			continue
		}
		if err := dbConn.Exec(`DELETE FROM "` + row.Name + `"`).Error; err != nil {
			return err
		}
	}
	return nil
}

func loginAdmin(t *testing.T) string {
	return login(t, "admin", "admin")
}

func login(t *testing.T, username, password string) string {
	t.Helper()

	req := map[string]any{
		"username": username,
		"password": password,
	}
	resp, body := doJSON(t, http.MethodPost, env.baseURL+"/v1/auth/login", req, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login %s failed: %d: %s", username, resp.StatusCode, string(body))
	}

	var payload struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if strings.TrimSpace(payload.Data.Token) == "" {
		t.Fatalf("expected bearer token in login response")
	}
	return payload.Data.Token
}

func authHeaders(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func countRows(t *testing.T, dbConn *gorm.DB, table string, where string, args ...any) int64 {
	t.Helper()
	var count int64
	if err := dbConn.Table(table).Where(where, args...).Count(&count).Error; err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return count
}

func mustParseID(t *testing.T, value string) snowflake.ID {
	t.Helper()
	parsed, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || parsed == 0 {
		t.Fatalf("invalid snowflake id: %s", value)
	}
	return parsed
}

func doJSON(t *testing.T, method, reqURL string, payload any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("encode json: %v", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, reqURL, body)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	return resp, data
}

var httpClient = &http.Client{Timeout: 15 * time.Second}
