package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/arusnet/arus/internal/audit/domain"
	"github.com/arusnet/arus/internal/audit/repository"
	"github.com/arusnet/arus/internal/authctx"
	"github.com/arusnet/arus/internal/requestmeta"
)

func setupAuditService(t *testing.T) (domain.Service, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.ActivityLog{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
	})
	return svc, db
}

func requestContext(actor authctx.Actor) context.Context {
	ctx := authctx.WithActor(context.Background(), actor)
	ctx = requestmeta.WithRequestID(ctx, "req-7f3a")
	ctx = requestmeta.WithIPAddress(ctx, "103.147.8.14")
	ctx = requestmeta.WithUserAgent(ctx, "Mozilla/5.0 (X11; Linux x86_64)")
	return ctx
}

func TestRecordCapturesRequestContext(t *testing.T) {
	svc, db := setupAuditService(t)

	actor := authctx.Actor{UserID: snowflake.ID(4201), Username: "budi", Role: "operator"}
	resourceID := "1234567890"
	err := svc.Record(requestContext(actor), "customer.created", "customer", &resourceID,
		"Membuat pelanggan Pak Slamet",
		map[string]any{"customer_name": "Pak Slamet"},
	)
	require.NoError(t, err)

	var entry domain.ActivityLog
	require.NoError(t, db.First(&entry).Error)
	require.NotNil(t, entry.UserID)
	assert.Equal(t, actor.UserID, *entry.UserID)
	assert.Equal(t, "customer.created", entry.Action)
	assert.Equal(t, "customer", entry.ResourceType)
	require.NotNil(t, entry.ResourceID)
	assert.Equal(t, resourceID, *entry.ResourceID)
	assert.Equal(t, "Membuat pelanggan Pak Slamet", entry.Description)
	assert.Equal(t, "103.147.8.14", entry.IPAddress)
	assert.Contains(t, entry.UserAgent, "Mozilla/5.0")
	assert.Equal(t, "Pak Slamet", entry.AdditionalData["customer_name"])
	assert.Equal(t, "req-7f3a", entry.AdditionalData["request_id"])
	assert.Equal(t, "budi", entry.AdditionalData["username"])
}

func TestRecordOutsideRequest(t *testing.T) {
	svc, db := setupAuditService(t)
	ctx := context.Background()

	// Scheduler jobs and seeding write entries with no actor attached.
	require.NoError(t, svc.Record(ctx, "subscription.expired", "", nil, "", nil))

	var entry domain.ActivityLog
	require.NoError(t, db.First(&entry).Error)
	assert.Nil(t, entry.UserID)
	assert.Nil(t, entry.ResourceID)
	assert.Equal(t, "unknown", entry.ResourceType)
	assert.Empty(t, entry.IPAddress)
	assert.Empty(t, entry.AdditionalData)

	assert.ErrorIs(t, svc.Record(ctx, "  ", "customer", nil, "", nil), domain.ErrInvalidAction)
}

func TestListFiltersActivity(t *testing.T) {
	svc, _ := setupAuditService(t)

	budi := authctx.Actor{UserID: snowflake.ID(4201), Username: "budi"}
	siti := authctx.Actor{UserID: snowflake.ID(4202), Username: "siti"}
	customerID := "88001"

	require.NoError(t, svc.Record(requestContext(budi), "customer.created", "customer", &customerID, "", nil))
	require.NoError(t, svc.Record(requestContext(budi), "device.deleted", "network_device", nil, "", nil))
	require.NoError(t, svc.Record(requestContext(siti), "customer.updated", "customer", &customerID, "", nil))

	resp, err := svc.List(context.Background(), domain.ListActivityRequest{})
	require.NoError(t, err)
	assert.Len(t, resp.Logs, 3)
	assert.False(t, resp.PageInfo.HasMore)

	resp, err = svc.List(context.Background(), domain.ListActivityRequest{Action: "device.deleted"})
	require.NoError(t, err)
	require.Len(t, resp.Logs, 1)
	assert.Equal(t, "network_device", resp.Logs[0].ResourceType)

	resp, err = svc.List(context.Background(), domain.ListActivityRequest{UserID: siti.UserID.String()})
	require.NoError(t, err)
	require.Len(t, resp.Logs, 1)
	assert.Equal(t, "customer.updated", resp.Logs[0].Action)

	resp, err = svc.List(context.Background(), domain.ListActivityRequest{ResourceType: "customer"})
	require.NoError(t, err)
	assert.Len(t, resp.Logs, 2)

	_, err = svc.List(context.Background(), domain.ListActivityRequest{UserID: "not-a-number"})
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestListTimeWindow(t *testing.T) {
	svc, db := setupAuditService(t)

	require.NoError(t, svc.Record(context.Background(), "auth.login", "user", nil, "", nil))
	require.NoError(t, svc.Record(context.Background(), "auth.logout", "user", nil, "", nil))

	lastWeek := time.Now().UTC().Add(-7 * 24 * time.Hour)
	require.NoError(t, db.Exec(
		`UPDATE activity_logs SET created_at = ? WHERE action = ?`,
		lastWeek, "auth.login",
	).Error)

	since := time.Now().UTC().Add(-time.Hour)
	resp, err := svc.List(context.Background(), domain.ListActivityRequest{Since: &since})
	require.NoError(t, err)
	require.Len(t, resp.Logs, 1)
	assert.Equal(t, "auth.logout", resp.Logs[0].Action)

	until := lastWeek.Add(time.Hour)
	resp, err = svc.List(context.Background(), domain.ListActivityRequest{Until: &until})
	require.NoError(t, err)
	require.Len(t, resp.Logs, 1)
	assert.Equal(t, "auth.login", resp.Logs[0].Action)

	bad := since.Add(-2 * time.Hour)
	_, err = svc.List(context.Background(), domain.ListActivityRequest{Since: &since, Until: &bad})
	assert.ErrorIs(t, err, domain.ErrInvalidRange)
}
