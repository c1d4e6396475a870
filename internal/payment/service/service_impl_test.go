package service

import (
	"context"
	"strings"
	"testing"
	"time"

	invoicedomain "github.com/arusnet/arus/internal/invoice/domain"
	"github.com/arusnet/arus/internal/payment/domain"
	"github.com/arusnet/arus/internal/payment/repository"
	subscriptiondomain "github.com/arusnet/arus/internal/subscription/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type paymentFixture struct {
	db   *gorm.DB
	node *snowflake.Node
	svc  domain.Service
}

func setupPaymentService(t *testing.T) *paymentFixture {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, gdb.AutoMigrate(
		&domain.Payment{},
		&invoicedomain.Invoice{},
		&subscriptiondomain.CustomerSubscription{},
	))

	node, err := snowflake.NewNode(8)
	require.NoError(t, err)

	svc := New(Params{
		DB:    gdb,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
	})

	return &paymentFixture{db: gdb, node: node, svc: svc}
}

func (f *paymentFixture) seedInvoice(t *testing.T, xenditInvoiceID string, status invoicedomain.InvoiceStatus) (invoicedomain.Invoice, snowflake.ID) {
	t.Helper()

	now := time.Now().UTC()
	customerID := f.node.Generate()
	sub := subscriptiondomain.CustomerSubscription{
		ID:         f.node.Generate(),
		CustomerID: customerID,
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
		Status:          status,
		DueDate:         now.AddDate(0, 0, 7),
		IssuedDate:      now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	require.NoError(t, f.db.Create(&invoice).Error)
	return invoice, customerID
}

func paidEvent(xenditInvoiceID, xenditPaymentID string) *domain.PaymentEvent {
	return &domain.PaymentEvent{
		Provider:        "xendit",
		XenditInvoiceID: xenditInvoiceID,
		XenditPaymentID: xenditPaymentID,
		Status:          domain.GatewayStatusPaid,
		PaymentMethod:   "QRIS",
		Amount:          150000,
		PaidAt:          time.Now().UTC(),
		RawPayload:      []byte(`{"id":"` + xenditInvoiceID + `","status":"PAID"}`),
	}
}

func TestApplyPaymentWebhookSettlesInvoice(t *testing.T) {
	f := setupPaymentService(t)
	ctx := context.Background()
	invoice, customerID := f.seedInvoice(t, "xnd_inv_1", invoicedomain.InvoiceStatusPending)

	require.NoError(t, f.svc.ApplyPaymentWebhook(ctx, paidEvent("xnd_inv_1", "ewc_001")))

	var settled invoicedomain.Invoice
	require.NoError(t, f.db.First(&settled, "id = ?", invoice.ID).Error)
	assert.Equal(t, invoicedomain.InvoiceStatusPaid, settled.Status)
	require.NotNil(t, settled.PaidDate)

	resp, err := f.svc.List(ctx, domain.ListPaymentRequest{InvoiceID: invoice.ID.String()})
	require.NoError(t, err)
	require.Len(t, resp.Payments, 1)

	payment := resp.Payments[0]
	assert.True(t, strings.HasPrefix(payment.PaymentID, "PAY-"))
	assert.Equal(t, "ewc_001", payment.XenditPaymentID)
	assert.Equal(t, customerID, payment.CustomerID)
	assert.Equal(t, domain.PaymentMethodQRIS, payment.PaymentMethod)
	assert.Equal(t, domain.PaymentStatusPaid, payment.Status)
	assert.Equal(t, int64(150000), payment.Amount)
	require.NotNil(t, payment.PaymentDate)
}

func TestDuplicateDeliveryAlreadyProcessed(t *testing.T) {
	f := setupPaymentService(t)
	ctx := context.Background()
	invoice, _ := f.seedInvoice(t, "xnd_inv_2", invoicedomain.InvoiceStatusPending)

	require.NoError(t, f.svc.ApplyPaymentWebhook(ctx, paidEvent("xnd_inv_2", "ewc_002")))

	var first invoicedomain.Invoice
	require.NoError(t, f.db.First(&first, "id = ?", invoice.ID).Error)
	require.NotNil(t, first.PaidDate)

	err := f.svc.ApplyPaymentWebhook(ctx, paidEvent("xnd_inv_2", "ewc_002"))
	assert.ErrorIs(t, err, domain.ErrEventAlreadyProcessed)

	resp, err := f.svc.List(ctx, domain.ListPaymentRequest{InvoiceID: invoice.ID.String()})
	require.NoError(t, err)
	assert.Len(t, resp.Payments, 1)

	var second invoicedomain.Invoice
	require.NoError(t, f.db.First(&second, "id = ?", invoice.ID).Error)
	assert.Equal(t, invoicedomain.InvoiceStatusPaid, second.Status)
	require.NotNil(t, second.PaidDate)
	assert.True(t, second.PaidDate.Equal(*first.PaidDate))
}

func TestExpiredEventRecordsTerminalFailure(t *testing.T) {
	f := setupPaymentService(t)
	ctx := context.Background()
	invoice, _ := f.seedInvoice(t, "xnd_inv_3", invoicedomain.InvoiceStatusPending)

	event := &domain.PaymentEvent{
		Provider:        "xendit",
		XenditInvoiceID: "xnd_inv_3",
		XenditPaymentID: "xnd_inv_3",
		Status:          domain.GatewayStatusExpired,
	}
	require.NoError(t, f.svc.ApplyPaymentWebhook(ctx, event))

	var expired invoicedomain.Invoice
	require.NoError(t, f.db.First(&expired, "id = ?", invoice.ID).Error)
	assert.Equal(t, invoicedomain.InvoiceStatusExpired, expired.Status)
	assert.Nil(t, expired.PaidDate)

	resp, err := f.svc.List(ctx, domain.ListPaymentRequest{InvoiceID: invoice.ID.String()})
	require.NoError(t, err)
	require.Len(t, resp.Payments, 1)
	assert.Equal(t, domain.PaymentStatusExpired, resp.Payments[0].Status)
	assert.Nil(t, resp.Payments[0].PaymentDate)
	assert.Equal(t, int64(150000), resp.Payments[0].Amount)
}

func TestRejectsTransitionOutOfPaid(t *testing.T) {
	f := setupPaymentService(t)
	ctx := context.Background()
	invoice, _ := f.seedInvoice(t, "xnd_inv_4", invoicedomain.InvoiceStatusPaid)

	event := &domain.PaymentEvent{
		Provider:        "xendit",
		XenditInvoiceID: "xnd_inv_4",
		XenditPaymentID: "ewc_004",
		Status:          domain.GatewayStatusFailed,
	}
	err := f.svc.ApplyPaymentWebhook(ctx, event)
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	var unchanged invoicedomain.Invoice
	require.NoError(t, f.db.First(&unchanged, "id = ?", invoice.ID).Error)
	assert.Equal(t, invoicedomain.InvoiceStatusPaid, unchanged.Status)

	resp, err := f.svc.List(ctx, domain.ListPaymentRequest{InvoiceID: invoice.ID.String()})
	require.NoError(t, err)
	assert.Empty(t, resp.Payments)
}

func TestApplyPaymentWebhookValidation(t *testing.T) {
	f := setupPaymentService(t)
	ctx := context.Background()

	err := f.svc.ApplyPaymentWebhook(ctx, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidEvent)

	err = f.svc.ApplyPaymentWebhook(ctx, &domain.PaymentEvent{
		XenditInvoiceID: "xnd_inv_5",
		Status:          domain.GatewayStatusPaid,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidEvent)

	err = f.svc.ApplyPaymentWebhook(ctx, &domain.PaymentEvent{
		XenditInvoiceID: "xnd_inv_5",
		XenditPaymentID: "ewc_005",
		Status:          "REFUNDED",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidEvent)

	err = f.svc.ApplyPaymentWebhook(ctx, paidEvent("xnd_missing", "ewc_006"))
	assert.ErrorIs(t, err, domain.ErrInvoiceNotFound)
}
