package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	packagedomain "github.com/arusnet/arus/internal/internetpackage/domain"
	"github.com/arusnet/arus/internal/invoice/domain"
	"github.com/arusnet/arus/internal/invoice/repository"
	subscriptiondomain "github.com/arusnet/arus/internal/subscription/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type invoiceFixture struct {
	db   *gorm.DB
	node *snowflake.Node
	svc  domain.Service
}

func setupInvoiceService(t *testing.T) *invoiceFixture {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, gdb.AutoMigrate(
		&domain.Invoice{},
		&domain.InvoiceSequence{},
		&subscriptiondomain.CustomerSubscription{},
		&packagedomain.InternetPackage{},
	))

	node, err := snowflake.NewNode(7)
	require.NoError(t, err)

	svc := New(Params{
		DB:    gdb,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
	})

	return &invoiceFixture{db: gdb, node: node, svc: svc}
}

func (f *invoiceFixture) seedSubscription(t *testing.T, price int64) subscriptiondomain.CustomerSubscription {
	t.Helper()

	now := time.Now().UTC()
	pkg := packagedomain.InternetPackage{
		ID:             f.node.Generate(),
		Name:           "Rumah 20 Mbps",
		ConnectionType: packagedomain.ConnectionTypePPPoE,
		BandwidthUp:    5,
		BandwidthDown:  20,
		Price:          price,
		ValidityDays:   30,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	require.NoError(t, f.db.Create(&pkg).Error)

	sub := subscriptiondomain.CustomerSubscription{
		ID:         f.node.Generate(),
		CustomerID: f.node.Generate(),
		PackageID:  pkg.ID,
		StartDate:  now,
		EndDate:    now.AddDate(0, 0, 30),
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, f.db.Create(&sub).Error)
	return sub
}

func TestIssueGeneratesSequentialNumbers(t *testing.T) {
	f := setupInvoiceService(t)
	ctx := context.Background()
	sub := f.seedSubscription(t, 150000)

	first, err := f.svc.Issue(ctx, domain.IssueInvoiceRequest{SubscriptionID: sub.ID.String()})
	require.NoError(t, err)

	second, err := f.svc.Issue(ctx, domain.IssueInvoiceRequest{SubscriptionID: sub.ID.String()})
	require.NoError(t, err)

	month := time.Now().UTC().Format("200601")
	assert.Equal(t, fmt.Sprintf("INV-%s-0001", month), first.InvoiceNumber)
	assert.Equal(t, fmt.Sprintf("INV-%s-0002", month), second.InvoiceNumber)

	assert.Equal(t, int64(150000), first.Amount)
	assert.Equal(t, domain.InvoiceStatusPending, first.Status)
	assert.Nil(t, first.PaidDate)
	assert.WithinDuration(t, first.IssuedDate.AddDate(0, 0, 7), first.DueDate, time.Second)
}

func TestIssueValidatesInput(t *testing.T) {
	f := setupInvoiceService(t)
	ctx := context.Background()
	sub := f.seedSubscription(t, 150000)

	_, err := f.svc.Issue(ctx, domain.IssueInvoiceRequest{SubscriptionID: "not-a-number"})
	assert.ErrorIs(t, err, domain.ErrInvalidSubscription)

	_, err = f.svc.Issue(ctx, domain.IssueInvoiceRequest{SubscriptionID: "999999999999"})
	assert.ErrorIs(t, err, domain.ErrSubscriptionNotFound)

	_, err = f.svc.Issue(ctx, domain.IssueInvoiceRequest{
		SubscriptionID: sub.ID.String(),
		Amount:         -500,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	custom, err := f.svc.Issue(ctx, domain.IssueInvoiceRequest{
		SubscriptionID: sub.ID.String(),
		Amount:         99000,
		DueDays:        14,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(99000), custom.Amount)
	assert.WithinDuration(t, custom.IssuedDate.AddDate(0, 0, 14), custom.DueDate, time.Second)
}

func TestAttachGatewayInvoice(t *testing.T) {
	f := setupInvoiceService(t)
	ctx := context.Background()
	sub := f.seedSubscription(t, 150000)

	first, err := f.svc.Issue(ctx, domain.IssueInvoiceRequest{SubscriptionID: sub.ID.String()})
	require.NoError(t, err)

	attached, err := f.svc.AttachGatewayInvoice(ctx, domain.AttachGatewayInvoiceRequest{
		ID:              first.ID.String(),
		XenditInvoiceID: "inv_x_001",
		XenditData:      map[string]any{"invoice_url": "https://checkout.example/inv_x_001"},
	})
	require.NoError(t, err)
	require.NotNil(t, attached.XenditInvoiceID)
	assert.Equal(t, "inv_x_001", *attached.XenditInvoiceID)

	got, err := f.svc.GetByID(ctx, domain.GetInvoiceRequest{ID: first.ID.String()})
	require.NoError(t, err)
	require.NotNil(t, got.XenditInvoiceID)
	assert.Equal(t, "inv_x_001", *got.XenditInvoiceID)

	second, err := f.svc.Issue(ctx, domain.IssueInvoiceRequest{SubscriptionID: sub.ID.String()})
	require.NoError(t, err)

	_, err = f.svc.AttachGatewayInvoice(ctx, domain.AttachGatewayInvoiceRequest{
		ID:              second.ID.String(),
		XenditInvoiceID: "inv_x_001",
	})
	assert.ErrorIs(t, err, domain.ErrGatewayIDTaken)
}

func TestExpireOverdueSweepsPendingOnly(t *testing.T) {
	f := setupInvoiceService(t)
	ctx := context.Background()
	sub := f.seedSubscription(t, 150000)
	now := time.Now().UTC()

	overdue, err := f.svc.Issue(ctx, domain.IssueInvoiceRequest{SubscriptionID: sub.ID.String()})
	require.NoError(t, err)
	require.NoError(t, f.db.Exec(
		"UPDATE invoices SET due_date = ? WHERE id = ?",
		now.Add(-24*time.Hour), overdue.ID,
	).Error)

	current, err := f.svc.Issue(ctx, domain.IssueInvoiceRequest{SubscriptionID: sub.ID.String()})
	require.NoError(t, err)

	settled, err := f.svc.Issue(ctx, domain.IssueInvoiceRequest{SubscriptionID: sub.ID.String()})
	require.NoError(t, err)
	require.NoError(t, f.db.Exec(
		"UPDATE invoices SET status = ?, paid_date = ?, due_date = ? WHERE id = ?",
		domain.InvoiceStatusPaid, now, now.Add(-24*time.Hour), settled.ID,
	).Error)

	count, err := f.svc.ExpireOverdue(ctx, now, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	got, err := f.svc.GetByID(ctx, domain.GetInvoiceRequest{ID: overdue.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceStatusExpired, got.Status)

	got, err = f.svc.GetByID(ctx, domain.GetInvoiceRequest{ID: current.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceStatusPending, got.Status)

	got, err = f.svc.GetByID(ctx, domain.GetInvoiceRequest{ID: settled.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceStatusPaid, got.Status)

	count, err = f.svc.ExpireOverdue(ctx, now, 100)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestStatusTransitions(t *testing.T) {
	assert.True(t, domain.CanTransition(domain.InvoiceStatusPending, domain.InvoiceStatusPaid))
	assert.True(t, domain.CanTransition(domain.InvoiceStatusPending, domain.InvoiceStatusExpired))
	assert.True(t, domain.CanTransition(domain.InvoiceStatusPending, domain.InvoiceStatusFailed))

	assert.False(t, domain.CanTransition(domain.InvoiceStatusPaid, domain.InvoiceStatusExpired))
	assert.False(t, domain.CanTransition(domain.InvoiceStatusExpired, domain.InvoiceStatusPaid))
	assert.False(t, domain.CanTransition(domain.InvoiceStatusFailed, domain.InvoiceStatusPending))
}
