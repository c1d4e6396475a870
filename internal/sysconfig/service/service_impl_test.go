package service

import (
	"context"
	"strings"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	auditdomain "github.com/arusnet/arus/internal/audit/domain"
	auditrepository "github.com/arusnet/arus/internal/audit/repository"
	auditservice "github.com/arusnet/arus/internal/audit/service"
	"github.com/arusnet/arus/internal/config"
	"github.com/arusnet/arus/internal/sysconfig/domain"
	"github.com/arusnet/arus/internal/sysconfig/repository"
)

func setupSettings(t *testing.T, aesKey string) (domain.Service, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&domain.SystemConfiguration{},
		&auditdomain.ActivityLog{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	audit := auditservice.New(auditservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  auditrepository.Provide(),
	})
	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
		Cfg:   config.Config{SettingsAESKey: aesKey},
		Audit: audit,
	})
	return svc, db
}

func TestPutCreatesAndUpdates(t *testing.T) {
	svc, db := setupSettings(t, "")
	ctx := context.Background()

	desc := "Hari jatuh tempo tagihan bulanan"
	created, err := svc.Put(ctx, domain.PutSettingRequest{
		Key:         "billing.due_day",
		Value:       "5",
		Description: &desc,
	})
	require.NoError(t, err)
	assert.Equal(t, "5", created.Value)
	assert.Equal(t, desc, created.Description)
	assert.False(t, created.IsEncrypted)

	got, err := svc.Get(ctx, domain.GetSettingRequest{Key: "billing.due_day"})
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "5", got.Value)

	updated, err := svc.Put(ctx, domain.PutSettingRequest{Key: "billing.due_day", Value: "10"})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "10", updated.Value)
	assert.Equal(t, desc, updated.Description)

	_, err = svc.Put(ctx, domain.PutSettingRequest{Key: "  ", Value: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidKey)
	_, err = svc.Put(ctx, domain.PutSettingRequest{Key: "has space", Value: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidKey)
	_, err = svc.Put(ctx, domain.PutSettingRequest{Key: "too.long", Value: strings.Repeat("x", 2001)})
	assert.ErrorIs(t, err, domain.ErrInvalidValue)

	_, err = svc.Get(ctx, domain.GetSettingRequest{Key: "no.such.key"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	var audited int64
	require.NoError(t, db.Model(&auditdomain.ActivityLog{}).
		Where("action = ?", "setting.updated").Count(&audited).Error)
	assert.EqualValues(t, 2, audited)
}

func TestEncryptedValueRoundTrip(t *testing.T) {
	svc, db := setupSettings(t, "kunci-rahasia-arus")
	ctx := context.Background()

	encrypted := true
	secret := "xnd_development_F2vQxTkhgtyKyW9"
	saved, err := svc.Put(ctx, domain.PutSettingRequest{
		Key:       "xendit.api_key",
		Value:     secret,
		Encrypted: &encrypted,
	})
	require.NoError(t, err)
	assert.True(t, saved.IsEncrypted)
	assert.Equal(t, secret, saved.Value)

	// At rest only the sealed envelope exists.
	var raw domain.SystemConfiguration
	require.NoError(t, db.First(&raw, "key = ?", "xendit.api_key").Error)
	assert.NotEqual(t, secret, raw.Value)
	assert.NotContains(t, raw.Value, secret)
	assert.Contains(t, raw.Value, "ciphertext")

	got, err := svc.Get(ctx, domain.GetSettingRequest{Key: "xendit.api_key"})
	require.NoError(t, err)
	assert.Equal(t, secret, got.Value)

	// The flag is sticky across writes that do not mention it.
	rotated := "xnd_production_Xy77Qa"
	saved, err = svc.Put(ctx, domain.PutSettingRequest{Key: "xendit.api_key", Value: rotated})
	require.NoError(t, err)
	assert.True(t, saved.IsEncrypted)

	require.NoError(t, db.First(&raw, "key = ?", "xendit.api_key").Error)
	assert.NotContains(t, raw.Value, rotated)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list.Settings, 1)
	assert.Equal(t, rotated, list.Settings[0].Value)

	// The activity log never carries the plaintext.
	var entries []auditdomain.ActivityLog
	require.NoError(t, db.Where("action = ?", "setting.updated").Find(&entries).Error)
	require.NotEmpty(t, entries)
	for _, entry := range entries {
		masked, _ := entry.AdditionalData["masked_value"].(string)
		assert.NotEqual(t, secret, masked)
		assert.NotEqual(t, rotated, masked)
	}

	plain := false
	saved, err = svc.Put(ctx, domain.PutSettingRequest{Key: "xendit.api_key", Value: "visible", Encrypted: &plain})
	require.NoError(t, err)
	assert.False(t, saved.IsEncrypted)
	require.NoError(t, db.First(&raw, "key = ?", "xendit.api_key").Error)
	assert.Equal(t, "visible", raw.Value)
}

func TestEncryptionRequiresKey(t *testing.T) {
	svc, _ := setupSettings(t, "")
	ctx := context.Background()

	encrypted := true
	_, err := svc.Put(ctx, domain.PutSettingRequest{
		Key:       "telegram.bot_token",
		Value:     "123456789:AAHdiqTcvCH1vGWJxfSeoAbc",
		Encrypted: &encrypted,
	})
	assert.ErrorIs(t, err, domain.ErrEncryptionKeyMissing)

	// Nothing half-written survives the failure.
	_, err = svc.Get(ctx, domain.GetSettingRequest{Key: "telegram.bot_token"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCorruptSealedValue(t *testing.T) {
	svc, db := setupSettings(t, "kunci-rahasia-arus")
	ctx := context.Background()

	encrypted := true
	_, err := svc.Put(ctx, domain.PutSettingRequest{
		Key:       "whatsapp.api_key",
		Value:     "wa-gateway-secret",
		Encrypted: &encrypted,
	})
	require.NoError(t, err)
	_, err = svc.Put(ctx, domain.PutSettingRequest{Key: "app.name", Value: "ArusNet"})
	require.NoError(t, err)

	require.NoError(t, db.Exec(
		`UPDATE system_configurations SET value = ? WHERE key = ?`,
		"not-an-envelope", "whatsapp.api_key",
	).Error)

	_, err = svc.Get(ctx, domain.GetSettingRequest{Key: "whatsapp.api_key"})
	assert.ErrorIs(t, err, domain.ErrSealedValue)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list.Settings, 2)
	assert.Equal(t, "ArusNet", list.Settings[0].Value)
	assert.Empty(t, list.Settings[1].Value)
}
