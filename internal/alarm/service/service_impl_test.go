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

	"github.com/arusnet/arus/internal/alarm/domain"
	"github.com/arusnet/arus/internal/alarm/repository"
	"github.com/arusnet/arus/internal/authctx"
	"github.com/arusnet/arus/internal/config"
	devicedomain "github.com/arusnet/arus/internal/device/domain"
	devicerepository "github.com/arusnet/arus/internal/device/repository"
	deviceservice "github.com/arusnet/arus/internal/device/service"
	notificationdomain "github.com/arusnet/arus/internal/notification/domain"
	notificationrepository "github.com/arusnet/arus/internal/notification/repository"
	notificationservice "github.com/arusnet/arus/internal/notification/service"
)

type alarmFixture struct {
	svc     domain.Service
	devices devicedomain.Service
	db      *gorm.DB
}

func setupAlarmService(t *testing.T) alarmFixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&domain.DeviceAlarm{},
		&devicedomain.NetworkDevice{},
		&notificationdomain.NotificationTemplate{},
		&notificationdomain.NotificationQueue{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	devices := deviceservice.New(deviceservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  devicerepository.Provide(),
	})

	notifications := notificationservice.New(notificationservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  notificationrepository.Provide(),
		Dispatch: config.NewStaticDispatchConfigHolder(config.DispatchConfig{
			RetryCeiling:       3,
			DequeueBatchSize:   50,
			ExpiryBatchSize:    100,
			StaleSessionCutoff: 10 * time.Minute,
		}),
	})

	svc := New(Params{
		DB:            db,
		Log:           zap.NewNop(),
		GenID:         node,
		Repo:          repository.Provide(),
		Notifications: notifications,
		Cfg: config.Config{
			Alerts: config.AlertsConfig{
				NotificationType: "telegram",
				Recipient:        "628111000222",
			},
		},
	})
	return alarmFixture{svc: svc, devices: devices, db: db}
}

func seedDevice(t *testing.T, devices devicedomain.Service, name string) devicedomain.NetworkDevice {
	t.Helper()

	device, err := devices.Create(context.Background(), devicedomain.CreateDeviceRequest{
		Name:       name,
		DeviceType: "olt",
	})
	require.NoError(t, err)
	return device
}

func TestRaiseOpensAlarm(t *testing.T) {
	f := setupAlarmService(t)
	ctx := context.Background()
	device := seedDevice(t, f.devices, "OLT-JKT-01")

	alarm, err := f.svc.Raise(ctx, domain.RaiseAlarmRequest{
		DeviceID:  device.ID.String(),
		AlarmType: "link_down",
		Severity:  "minor",
		Message:   "PON port 3 kehilangan sinyal",
	})
	require.NoError(t, err)

	assert.Equal(t, device.ID, alarm.DeviceID)
	assert.Equal(t, domain.SeverityMinor, alarm.Severity)
	assert.False(t, alarm.IsAcknowledged)
	assert.False(t, alarm.Resolved)
	assert.Nil(t, alarm.ResolvedAt)

	got, err := f.svc.GetByID(ctx, domain.GetAlarmRequest{ID: alarm.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, alarm.ID, got.ID)

	// Minor alarms do not page the operator channel.
	var queued int64
	require.NoError(t, f.db.Model(&notificationdomain.NotificationQueue{}).Count(&queued).Error)
	assert.Zero(t, queued)
}

func TestRaiseCriticalQueuesNotification(t *testing.T) {
	f := setupAlarmService(t)
	ctx := context.Background()
	device := seedDevice(t, f.devices, "OLT-JKT-02")

	_, err := f.svc.Raise(ctx, domain.RaiseAlarmRequest{
		DeviceID:  device.ID.String(),
		AlarmType: "device_unreachable",
		Severity:  "critical",
		Message:   "OLT tidak merespon ping selama 5 menit",
	})
	require.NoError(t, err)

	var items []notificationdomain.NotificationQueue
	require.NoError(t, f.db.Find(&items).Error)
	require.Len(t, items, 1)
	assert.Equal(t, notificationdomain.NotificationTypeTelegram, items[0].NotificationType)
	assert.Equal(t, "628111000222", items[0].Recipient)
	assert.EqualValues(t, 1, items[0].Priority)
	assert.Contains(t, items[0].Message, "device_unreachable")
}

func TestRaiseValidation(t *testing.T) {
	f := setupAlarmService(t)
	ctx := context.Background()
	device := seedDevice(t, f.devices, "OLT-JKT-03")

	_, err := f.svc.Raise(ctx, domain.RaiseAlarmRequest{
		DeviceID:  device.ID.String(),
		AlarmType: "link_down",
		Severity:  "catastrophic",
		Message:   "x",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidSeverity)

	_, err = f.svc.Raise(ctx, domain.RaiseAlarmRequest{
		DeviceID:  device.ID.String(),
		AlarmType: "",
		Severity:  "minor",
		Message:   "x",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidType)

	_, err = f.svc.Raise(ctx, domain.RaiseAlarmRequest{
		DeviceID:  device.ID.String(),
		AlarmType: "link_down",
		Severity:  "minor",
		Message:   "   ",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidMessage)

	_, err = f.svc.Raise(ctx, domain.RaiseAlarmRequest{
		DeviceID:  "999999999999999999",
		AlarmType: "link_down",
		Severity:  "minor",
		Message:   "x",
	})
	assert.ErrorIs(t, err, domain.ErrDeviceNotFound)
}

func TestAcknowledgeStampsFirstActor(t *testing.T) {
	f := setupAlarmService(t)
	ctx := context.Background()
	device := seedDevice(t, f.devices, "OLT-JKT-04")

	alarm, err := f.svc.Raise(ctx, domain.RaiseAlarmRequest{
		DeviceID:  device.ID.String(),
		AlarmType: "high_temperature",
		Severity:  "major",
		Message:   "Suhu chassis 78C",
	})
	require.NoError(t, err)

	acked, err := f.svc.Acknowledge(ctx, domain.AcknowledgeAlarmRequest{
		ID: alarm.ID.String(),
		By: "budi",
	})
	require.NoError(t, err)
	assert.True(t, acked.IsAcknowledged)
	assert.Equal(t, "budi", acked.AcknowledgedBy)
	require.NotNil(t, acked.AcknowledgedAt)

	// A second acknowledge keeps the original stamp.
	again, err := f.svc.Acknowledge(ctx, domain.AcknowledgeAlarmRequest{
		ID: alarm.ID.String(),
		By: "siti",
	})
	require.NoError(t, err)
	assert.Equal(t, "budi", again.AcknowledgedBy)
	assert.Equal(t, acked.AcknowledgedAt.Unix(), again.AcknowledgedAt.Unix())
}

func TestAcknowledgeUsesAuthenticatedActor(t *testing.T) {
	f := setupAlarmService(t)
	device := seedDevice(t, f.devices, "OLT-JKT-05")

	alarm, err := f.svc.Raise(context.Background(), domain.RaiseAlarmRequest{
		DeviceID:  device.ID.String(),
		AlarmType: "link_down",
		Severity:  "minor",
		Message:   "x",
	})
	require.NoError(t, err)

	ctx := authctx.WithActor(context.Background(), authctx.Actor{Username: "dewi", Role: "operator"})
	acked, err := f.svc.Acknowledge(ctx, domain.AcknowledgeAlarmRequest{ID: alarm.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, "dewi", acked.AcknowledgedBy)

	_, err = f.svc.Acknowledge(context.Background(), domain.AcknowledgeAlarmRequest{ID: alarm.ID.String(), By: "   "})
	assert.ErrorIs(t, err, domain.ErrInvalidActor)
}

func TestResolveClosesAlarm(t *testing.T) {
	f := setupAlarmService(t)
	ctx := context.Background()
	device := seedDevice(t, f.devices, "OLT-JKT-06")

	alarm, err := f.svc.Raise(ctx, domain.RaiseAlarmRequest{
		DeviceID:  device.ID.String(),
		AlarmType: "link_down",
		Severity:  "major",
		Message:   "PON port 1 down",
	})
	require.NoError(t, err)

	acked, err := f.svc.Acknowledge(ctx, domain.AcknowledgeAlarmRequest{ID: alarm.ID.String(), By: "budi"})
	require.NoError(t, err)

	resolved, err := f.svc.Resolve(ctx, domain.ResolveAlarmRequest{ID: alarm.ID.String()})
	require.NoError(t, err)
	assert.True(t, resolved.Resolved)
	require.NotNil(t, resolved.ResolvedAt)
	assert.False(t, resolved.ResolvedAt.Before(*acked.AcknowledgedAt))

	// Resolving again changes nothing.
	again, err := f.svc.Resolve(ctx, domain.ResolveAlarmRequest{ID: alarm.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, resolved.ResolvedAt.Unix(), again.ResolvedAt.Unix())

	_, err = f.svc.Acknowledge(ctx, domain.AcknowledgeAlarmRequest{ID: alarm.ID.String(), By: "siti"})
	assert.ErrorIs(t, err, domain.ErrAlarmResolved)
}

func TestResolveWithoutAcknowledge(t *testing.T) {
	f := setupAlarmService(t)
	ctx := context.Background()
	device := seedDevice(t, f.devices, "OLT-JKT-07")

	alarm, err := f.svc.Raise(ctx, domain.RaiseAlarmRequest{
		DeviceID:  device.ID.String(),
		AlarmType: "flapping",
		Severity:  "warning",
		Message:   "Interface ether1 flapping",
	})
	require.NoError(t, err)

	resolved, err := f.svc.Resolve(ctx, domain.ResolveAlarmRequest{ID: alarm.ID.String()})
	require.NoError(t, err)
	assert.True(t, resolved.Resolved)
	assert.False(t, resolved.IsAcknowledged)
}

func TestListFiltersAlarms(t *testing.T) {
	f := setupAlarmService(t)
	ctx := context.Background()
	olt := seedDevice(t, f.devices, "OLT-JKT-08")
	onu := seedDevice(t, f.devices, "ONU-JKT-08")

	first, err := f.svc.Raise(ctx, domain.RaiseAlarmRequest{
		DeviceID:  olt.ID.String(),
		AlarmType: "link_down",
		Severity:  "critical",
		Message:   "uplink down",
	})
	require.NoError(t, err)
	_, err = f.svc.Raise(ctx, domain.RaiseAlarmRequest{
		DeviceID:  onu.ID.String(),
		AlarmType: "low_signal",
		Severity:  "warning",
		Message:   "rx -29dBm",
	})
	require.NoError(t, err)

	_, err = f.svc.Resolve(ctx, domain.ResolveAlarmRequest{ID: first.ID.String()})
	require.NoError(t, err)

	open := false
	resp, err := f.svc.List(ctx, domain.ListAlarmRequest{Resolved: &open})
	require.NoError(t, err)
	require.Len(t, resp.Alarms, 1)
	assert.Equal(t, domain.SeverityWarning, resp.Alarms[0].Severity)

	resp, err = f.svc.List(ctx, domain.ListAlarmRequest{DeviceID: olt.ID.String()})
	require.NoError(t, err)
	require.Len(t, resp.Alarms, 1)
	assert.Equal(t, first.ID, resp.Alarms[0].ID)

	resp, err = f.svc.List(ctx, domain.ListAlarmRequest{Severity: "critical"})
	require.NoError(t, err)
	require.Len(t, resp.Alarms, 1)
	assert.True(t, resp.Alarms[0].Resolved)
}
