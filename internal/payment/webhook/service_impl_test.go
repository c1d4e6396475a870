package webhook

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/arusnet/arus/internal/config"
	invoicedomain "github.com/arusnet/arus/internal/invoice/domain"
	"github.com/arusnet/arus/internal/payment/adapters"
	"github.com/arusnet/arus/internal/payment/adapters/xendit"
	paymentdomain "github.com/arusnet/arus/internal/payment/domain"
	paymentrepo "github.com/arusnet/arus/internal/payment/repository"
	paymentservice "github.com/arusnet/arus/internal/payment/service"
	subscriptiondomain "github.com/arusnet/arus/internal/subscription/domain"
	systemlogdomain "github.com/arusnet/arus/internal/systemlog/domain"
	systemlogrepo "github.com/arusnet/arus/internal/systemlog/repository"
	systemlogservice "github.com/arusnet/arus/internal/systemlog/service"
	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testCallbackToken = "cb_tok_test"

type webhookFixture struct {
	db   *gorm.DB
	node *snowflake.Node
	svc  paymentdomain.WebhookService
}

func setupWebhookService(t *testing.T) *webhookFixture {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, gdb.AutoMigrate(
		&paymentdomain.Payment{},
		&paymentdomain.WebhookLog{},
		&invoicedomain.Invoice{},
		&subscriptiondomain.CustomerSubscription{},
		&systemlogdomain.SystemLog{},
	))

	node, err := snowflake.NewNode(9)
	require.NoError(t, err)

	repo := paymentrepo.Provide()
	paymentSvc := paymentservice.New(paymentservice.Params{
		DB:    gdb,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repo,
	})
	systemLogSvc := systemlogservice.New(systemlogservice.Params{
		DB:    gdb,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  systemlogrepo.Provide(),
	})

	svc := NewService(Params{
		DB:         gdb,
		Log:        zap.NewNop(),
		GenID:      node,
		Repo:       repo,
		PaymentSvc: paymentSvc,
		Adapters:   adapters.NewRegistry(xendit.NewFactory()),
		SystemLog:  systemLogSvc,
		Cfg:        config.Config{XenditCallbackToken: testCallbackToken},
	})

	return &webhookFixture{db: gdb, node: node, svc: svc}
}

func (f *webhookFixture) seedInvoice(t *testing.T, xenditInvoiceID string) invoicedomain.Invoice {
	t.Helper()

	now := time.Now().UTC()
	sub := subscriptiondomain.CustomerSubscription{
		ID:         f.node.Generate(),
		CustomerID: f.node.Generate(),
		PackageID:  f.node.Generate(),
		StartDate:  now,
		EndDate:    now.AddDate(0, 0, 30),
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, f.db.Create(&sub).Error)

	invoice := invoicedomain.Invoice{
		ID:              f.node.Generate(),
		InvoiceNumber:   "INV-" + xenditInvoiceID,
		SubscriptionID:  sub.ID,
		XenditInvoiceID: &xenditInvoiceID,
		Amount:          150000,
		Status:          invoicedomain.InvoiceStatusPending,
		DueDate:         now.AddDate(0, 0, 7),
		IssuedDate:      now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	require.NoError(t, f.db.Create(&invoice).Error)
	return invoice
}

func callbackHeaders(token string) http.Header {
	headers := http.Header{}
	headers.Set("Content-Type", "application/json")
	if token != "" {
		headers.Set("X-Callback-Token", token)
	}
	return headers
}

func (f *webhookFixture) lastLog(t *testing.T) paymentdomain.WebhookLog {
	t.Helper()
	var entry paymentdomain.WebhookLog
	require.NoError(t, f.db.Order("created_at desc, id desc").First(&entry).Error)
	return entry
}

func TestIngestSettlesInvoice(t *testing.T) {
	f := setupWebhookService(t)
	ctx := context.Background()
	invoice := f.seedInvoice(t, "xnd_inv_10")

	payload := []byte(`{
		"id": "xnd_inv_10",
		"external_id": "` + invoice.InvoiceNumber + `",
		"status": "PAID",
		"amount": 150000,
		"paid_amount": 150000,
		"payment_id": "ewc_100",
		"payment_method": "QRIS",
		"paid_at": "2026-08-22T05:45:13.000Z"
	}`)

	require.NoError(t, f.svc.IngestWebhook(ctx, "xendit", payload, callbackHeaders(testCallbackToken)))

	var settled invoicedomain.Invoice
	require.NoError(t, f.db.First(&settled, "id = ?", invoice.ID).Error)
	assert.Equal(t, invoicedomain.InvoiceStatusPaid, settled.Status)

	entry := f.lastLog(t)
	assert.Equal(t, "xendit", entry.Source)
	assert.Equal(t, "paid", entry.EventType)
	assert.True(t, entry.Processed)
	assert.Equal(t, "ok", entry.ProcessingResult)
	require.NotNil(t, entry.ProcessedAt)
}

func TestIngestDuplicateReportsAlreadyProcessed(t *testing.T) {
	f := setupWebhookService(t)
	ctx := context.Background()
	f.seedInvoice(t, "xnd_inv_11")

	payload := []byte(`{"id":"xnd_inv_11","status":"PAID","amount":150000,"payment_id":"ewc_110"}`)
	headers := callbackHeaders(testCallbackToken)

	require.NoError(t, f.svc.IngestWebhook(ctx, "xendit", payload, headers))

	err := f.svc.IngestWebhook(ctx, "xendit", payload, headers)
	assert.ErrorIs(t, err, paymentdomain.ErrEventAlreadyProcessed)

	entry := f.lastLog(t)
	assert.True(t, entry.Processed)
	assert.Equal(t, "already_processed", entry.ProcessingResult)

	var count int64
	require.NoError(t, f.db.Model(&paymentdomain.Payment{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestIngestLogsMalformedJSON(t *testing.T) {
	f := setupWebhookService(t)
	ctx := context.Background()

	payload := []byte(`{"id": "xnd_inv_12", "status"`)
	err := f.svc.IngestWebhook(ctx, "xendit", payload, callbackHeaders(testCallbackToken))
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidPayload)

	entry := f.lastLog(t)
	assert.Equal(t, "xendit", entry.Source)
	assert.False(t, entry.Processed)
	assert.Equal(t, "invalid_json", entry.ProcessingResult)
	assert.Nil(t, entry.ProcessedAt)

	var logs int64
	require.NoError(t, f.db.Model(&systemlogdomain.SystemLog{}).
		Where("source = ?", "payment.webhook").Count(&logs).Error)
	assert.Equal(t, int64(1), logs)
}

func TestIngestRejectsBadToken(t *testing.T) {
	f := setupWebhookService(t)
	ctx := context.Background()

	payload := []byte(`{"id":"xnd_inv_13","status":"PAID","payment_id":"ewc_130"}`)
	err := f.svc.IngestWebhook(ctx, "xendit", payload, callbackHeaders("wrong"))
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidSignature)

	entry := f.lastLog(t)
	assert.False(t, entry.Processed)
	assert.Equal(t, "invalid_callback_token", entry.ProcessingResult)
	assert.Equal(t, "[redacted]", entry.Headers["X-Callback-Token"])

	var count int64
	require.NoError(t, f.db.Model(&paymentdomain.Payment{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestIngestIgnoresPendingCallback(t *testing.T) {
	f := setupWebhookService(t)
	ctx := context.Background()
	f.seedInvoice(t, "xnd_inv_14")

	payload := []byte(`{"id":"xnd_inv_14","status":"PENDING","amount":150000}`)
	require.NoError(t, f.svc.IngestWebhook(ctx, "xendit", payload, callbackHeaders(testCallbackToken)))

	entry := f.lastLog(t)
	assert.True(t, entry.Processed)
	assert.Equal(t, "event_ignored", entry.ProcessingResult)

	var count int64
	require.NoError(t, f.db.Model(&paymentdomain.Payment{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestIngestUnknownProvider(t *testing.T) {
	f := setupWebhookService(t)
	ctx := context.Background()

	err := f.svc.IngestWebhook(ctx, "paypal", []byte(`{"id":"evt"}`), callbackHeaders(testCallbackToken))
	assert.ErrorIs(t, err, paymentdomain.ErrProviderNotFound)

	entry := f.lastLog(t)
	assert.Equal(t, "paypal", entry.Source)
	assert.False(t, entry.Processed)
	assert.Equal(t, "unknown_provider", entry.ProcessingResult)
}
