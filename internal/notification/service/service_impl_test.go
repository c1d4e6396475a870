package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/arusnet/arus/internal/config"
	"github.com/arusnet/arus/internal/notification/domain"
	"github.com/arusnet/arus/internal/notification/repository"
)

func setupNotificationService(t *testing.T) (domain.Service, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&domain.NotificationTemplate{}, &domain.NotificationQueue{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
		Dispatch: config.NewStaticDispatchConfigHolder(config.DispatchConfig{
			RetryCeiling:       3,
			DequeueBatchSize:   50,
			ExpiryBatchSize:    100,
			StaleSessionCutoff: 10 * time.Minute,
		}),
	})
	return svc, db
}

func TestEnqueueDefaults(t *testing.T) {
	svc, _ := setupNotificationService(t)
	ctx := context.Background()

	item, err := svc.Enqueue(ctx, domain.EnqueueRequest{
		NotificationType: "telegram",
		Recipient:        "628123456789",
		Message:          "Perangkat OLT-01 down",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.NotificationTypeTelegram, item.NotificationType)
	assert.Equal(t, domain.NotificationStatusPending, item.Status)
	assert.EqualValues(t, 5, item.Priority)
	assert.WithinDuration(t, time.Now(), item.ScheduledAt, 5*time.Second)
	assert.Zero(t, item.Attempts)
}

func TestEnqueueValidation(t *testing.T) {
	svc, _ := setupNotificationService(t)
	ctx := context.Background()

	_, err := svc.Enqueue(ctx, domain.EnqueueRequest{
		NotificationType: "pigeon",
		Recipient:        "628123456789",
		Message:          "halo",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidType)

	_, err = svc.Enqueue(ctx, domain.EnqueueRequest{
		NotificationType: "email",
		Recipient:        "   ",
		Message:          "halo",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidRecipient)

	_, err = svc.Enqueue(ctx, domain.EnqueueRequest{
		NotificationType: "email",
		Recipient:        "ops@arus.net.id",
		Message:          "",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidMessage)
}

func TestDequeueOrdersByPriorityThenSchedule(t *testing.T) {
	svc, _ := setupNotificationService(t)
	ctx := context.Background()
	now := time.Now().UTC()

	early := now.Add(-2 * time.Hour)
	late := now.Add(-1 * time.Hour)
	future := now.Add(time.Hour)

	low, err := svc.Enqueue(ctx, domain.EnqueueRequest{
		NotificationType: "telegram",
		Recipient:        "ops-channel",
		Message:          "laporan harian",
		Priority:         5,
		ScheduledAt:      &early,
	})
	require.NoError(t, err)

	urgent, err := svc.Enqueue(ctx, domain.EnqueueRequest{
		NotificationType: "telegram",
		Recipient:        "ops-channel",
		Message:          "OLT-01 critical",
		Priority:         1,
		ScheduledAt:      &late,
	})
	require.NoError(t, err)

	_, err = svc.Enqueue(ctx, domain.EnqueueRequest{
		NotificationType: "telegram",
		Recipient:        "ops-channel",
		Message:          "pengingat besok",
		Priority:         1,
		ScheduledAt:      &future,
	})
	require.NoError(t, err)

	ready, err := svc.DequeueReady(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, ready, 2)

	// Priority outranks schedule order.
	assert.Equal(t, urgent.ID, ready[0].ID)
	assert.Equal(t, low.ID, ready[1].ID)
}

func TestRecordAttemptSuccess(t *testing.T) {
	svc, _ := setupNotificationService(t)
	ctx := context.Background()

	item, err := svc.Enqueue(ctx, domain.EnqueueRequest{
		NotificationType: "email",
		Recipient:        "ops@arus.net.id",
		Message:          "tagihan terbit",
	})
	require.NoError(t, err)

	require.NoError(t, svc.RecordAttempt(ctx, item.ID, nil))

	sent, err := svc.GetByID(ctx, domain.GetNotificationRequest{ID: item.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, domain.NotificationStatusSent, sent.Status)
	assert.EqualValues(t, 1, sent.Attempts)
	require.NotNil(t, sent.SentAt)
	require.NotNil(t, sent.LastAttempt)
}

func TestRecordAttemptRetryCeiling(t *testing.T) {
	svc, _ := setupNotificationService(t)
	ctx := context.Background()

	item, err := svc.Enqueue(ctx, domain.EnqueueRequest{
		NotificationType: "whatsapp",
		Recipient:        "628123456789",
		Message:          "tagihan jatuh tempo",
	})
	require.NoError(t, err)

	sendErr := errors.New("gateway timeout")
	for attempt := 1; attempt <= 3; attempt++ {
		require.NoError(t, svc.RecordAttempt(ctx, item.ID, sendErr))

		current, err := svc.GetByID(ctx, domain.GetNotificationRequest{ID: item.ID.String()})
		require.NoError(t, err)
		assert.Equal(t, domain.NotificationStatusPending, current.Status)
		assert.EqualValues(t, attempt, current.Attempts)
		assert.Equal(t, "gateway timeout", current.ErrorMessage)
		require.NotNil(t, current.LastAttempt)
	}

	// The fourth failure pushes attempts past the ceiling of 3.
	require.NoError(t, svc.RecordAttempt(ctx, item.ID, sendErr))

	failed, err := svc.GetByID(ctx, domain.GetNotificationRequest{ID: item.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, domain.NotificationStatusFailed, failed.Status)
	assert.EqualValues(t, 4, failed.Attempts)
	assert.Nil(t, failed.SentAt)
}

func TestEnqueueFromTemplateRenders(t *testing.T) {
	svc, _ := setupNotificationService(t)
	ctx := context.Background()

	_, err := svc.CreateTemplate(ctx, domain.CreateTemplateRequest{
		Name:             "invoice_due",
		NotificationType: "whatsapp",
		Subject:          "Tagihan {{.InvoiceNumber}}",
		Template:         "Halo {{.Name}}, tagihan {{.InvoiceNumber}} sebesar Rp{{.Amount}} jatuh tempo {{.DueDate}}.",
	})
	require.NoError(t, err)

	item, err := svc.EnqueueFromTemplate(ctx, domain.EnqueueFromTemplateRequest{
		TemplateName: "invoice_due",
		Recipient:    "628123456789",
		Priority:     2,
		Data: map[string]any{
			"Name":          "Budi",
			"InvoiceNumber": "INV-202508-0007",
			"Amount":        "150000",
			"DueDate":       "2025-08-29",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, domain.NotificationTypeWhatsApp, item.NotificationType)
	assert.Equal(t, "Tagihan INV-202508-0007", item.Subject)
	assert.Equal(t, "Halo Budi, tagihan INV-202508-0007 sebesar Rp150000 jatuh tempo 2025-08-29.", item.Message)
	assert.EqualValues(t, 2, item.Priority)
}

func TestEnqueueFromTemplateValidation(t *testing.T) {
	svc, _ := setupNotificationService(t)
	ctx := context.Background()

	_, err := svc.EnqueueFromTemplate(ctx, domain.EnqueueFromTemplateRequest{
		TemplateName: "tidak-ada",
		Recipient:    "628123456789",
	})
	assert.ErrorIs(t, err, domain.ErrTemplateNotFound)

	tpl, err := svc.CreateTemplate(ctx, domain.CreateTemplateRequest{
		Name:             "maintenance",
		NotificationType: "telegram",
		Template:         "Jadwal maintenance {{.Window}}",
	})
	require.NoError(t, err)

	inactive := false
	_, err = svc.UpdateTemplate(ctx, domain.UpdateTemplateRequest{
		ID:       tpl.ID.String(),
		IsActive: &inactive,
	})
	require.NoError(t, err)

	_, err = svc.EnqueueFromTemplate(ctx, domain.EnqueueFromTemplateRequest{
		TemplateName: "maintenance",
		Recipient:    "ops-channel",
	})
	assert.ErrorIs(t, err, domain.ErrTemplateInactive)
}

func TestCreateTemplateValidation(t *testing.T) {
	svc, _ := setupNotificationService(t)
	ctx := context.Background()

	_, err := svc.CreateTemplate(ctx, domain.CreateTemplateRequest{
		Name:             "rusak",
		NotificationType: "email",
		Template:         "Halo {{.Name",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidTemplate)

	_, err = svc.CreateTemplate(ctx, domain.CreateTemplateRequest{
		Name:             "selamat-datang",
		NotificationType: "email",
		Template:         "Selamat datang {{.Name}}",
	})
	require.NoError(t, err)

	_, err = svc.CreateTemplate(ctx, domain.CreateTemplateRequest{
		Name:             "selamat-datang",
		NotificationType: "telegram",
		Template:         "Selamat datang kembali",
	})
	assert.ErrorIs(t, err, domain.ErrTemplateTaken)
}
