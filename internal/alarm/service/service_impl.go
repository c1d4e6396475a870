package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/arusnet/arus/internal/alarm/domain"
	"github.com/arusnet/arus/internal/authctx"
	"github.com/arusnet/arus/internal/config"
	notificationdomain "github.com/arusnet/arus/internal/notification/domain"
	"github.com/arusnet/arus/pkg/db/pagination"
)

const (
	alarmTypeMaxLen = 50
	messageMaxLen   = 500
	ackByMaxLen     = 100
)

type Params struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	GenID         *snowflake.Node
	Repo          domain.Repository
	Notifications notificationdomain.Service
	Cfg           config.Config
}

type Service struct {
	db            *gorm.DB
	log           *zap.Logger
	genID         *snowflake.Node
	repo          domain.Repository
	notifications notificationdomain.Service
	cfg           config.Config
}

func New(p Params) domain.Service {
	return &Service{
		db:            p.DB,
		log:           p.Log.Named("alarm.service"),
		genID:         p.GenID,
		repo:          p.Repo,
		notifications: p.Notifications,
		cfg:           p.Cfg,
	}
}

func (s *Service) Raise(ctx context.Context, req domain.RaiseAlarmRequest) (domain.DeviceAlarm, error) {
	alarmType := strings.TrimSpace(req.AlarmType)
	if alarmType == "" || len(alarmType) > alarmTypeMaxLen {
		return domain.DeviceAlarm{}, domain.ErrInvalidType
	}

	severity := domain.AlarmSeverity(strings.ToLower(strings.TrimSpace(req.Severity)))
	if !severity.Valid() {
		return domain.DeviceAlarm{}, domain.ErrInvalidSeverity
	}

	message := strings.TrimSpace(req.Message)
	if message == "" {
		return domain.DeviceAlarm{}, domain.ErrInvalidMessage
	}
	if len(message) > messageMaxLen {
		message = string([]rune(message)[:messageMaxLen])
	}

	deviceID, err := snowflake.ParseString(strings.TrimSpace(req.DeviceID))
	if err != nil || deviceID == 0 {
		return domain.DeviceAlarm{}, domain.ErrDeviceNotFound
	}

	now := time.Now().UTC()
	alarm := domain.DeviceAlarm{
		ID:        s.genID.Generate(),
		DeviceID:  deviceID,
		AlarmType: alarmType,
		Severity:  severity,
		Message:   message,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.WithContext(ctx).Raw(
			`SELECT COUNT(1) FROM network_devices WHERE id = ?`, deviceID,
		).Scan(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return domain.ErrDeviceNotFound
		}
		return s.repo.Insert(ctx, tx, &alarm)
	})
	if err != nil {
		return domain.DeviceAlarm{}, err
	}

	s.log.Info("alarm raised",
		zap.String("alarm_id", alarm.ID.String()),
		zap.String("device_id", deviceID.String()),
		zap.String("alarm_type", alarmType),
		zap.String("severity", string(severity)),
	)

	if severity == domain.SeverityCritical || severity == domain.SeverityMajor {
		s.notifyOperators(ctx, alarm)
	}
	return alarm, nil
}

// notifyOperators queues an operator alert for the alarm. Failures are
// logged and swallowed; the alarm stays raised either way.
func (s *Service) notifyOperators(ctx context.Context, alarm domain.DeviceAlarm) {
	recipient := s.cfg.Alerts.Recipient
	if recipient == "" {
		return
	}

	priority := int32(2)
	if alarm.Severity == domain.SeverityCritical {
		priority = 1
	}

	_, err := s.notifications.Enqueue(ctx, notificationdomain.EnqueueRequest{
		NotificationType: s.cfg.Alerts.NotificationType,
		Recipient:        recipient,
		Subject:          fmt.Sprintf("%s alarm: %s", alarm.Severity, alarm.AlarmType),
		Message:          fmt.Sprintf("Device %s raised %s: %s", alarm.DeviceID, alarm.AlarmType, alarm.Message),
		Priority:         priority,
	})
	if err != nil {
		s.log.Warn("failed to queue alarm notification",
			zap.String("alarm_id", alarm.ID.String()),
			zap.Error(err),
		)
	}
}

func (s *Service) Acknowledge(ctx context.Context, req domain.AcknowledgeAlarmRequest) (domain.DeviceAlarm, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.DeviceAlarm{}, err
	}

	by := strings.TrimSpace(req.By)
	if by == "" {
		if actor, ok := authctx.ActorFromContext(ctx); ok {
			by = actor.Username
		}
	}
	if by == "" || len(by) > ackByMaxLen {
		return domain.DeviceAlarm{}, domain.ErrInvalidActor
	}

	var alarm domain.DeviceAlarm
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if existing == nil {
			return domain.ErrNotFound
		}
		if existing.Resolved {
			return domain.ErrAlarmResolved
		}
		alarm = *existing
		if existing.IsAcknowledged {
			// The first acknowledger wins.
			return nil
		}

		now := time.Now().UTC()
		if err := s.repo.MarkAcknowledged(ctx, tx, id, by, now); err != nil {
			return err
		}
		alarm.IsAcknowledged = true
		alarm.AcknowledgedBy = by
		alarm.AcknowledgedAt = &now
		alarm.UpdatedAt = now
		return nil
	})
	if err != nil {
		return domain.DeviceAlarm{}, err
	}

	s.log.Info("alarm acknowledged",
		zap.String("alarm_id", alarm.ID.String()),
		zap.String("acknowledged_by", alarm.AcknowledgedBy),
	)
	return alarm, nil
}

func (s *Service) Resolve(ctx context.Context, req domain.ResolveAlarmRequest) (domain.DeviceAlarm, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.DeviceAlarm{}, err
	}

	var alarm domain.DeviceAlarm
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if existing == nil {
			return domain.ErrNotFound
		}
		alarm = *existing
		if existing.Resolved {
			return nil
		}

		now := time.Now().UTC()
		if err := s.repo.MarkResolved(ctx, tx, id, now); err != nil {
			return err
		}
		alarm.Resolved = true
		alarm.ResolvedAt = &now
		alarm.UpdatedAt = now
		return nil
	})
	if err != nil {
		return domain.DeviceAlarm{}, err
	}

	s.log.Info("alarm resolved", zap.String("alarm_id", alarm.ID.String()))
	return alarm, nil
}

func (s *Service) GetByID(ctx context.Context, req domain.GetAlarmRequest) (domain.DeviceAlarm, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.DeviceAlarm{}, err
	}

	alarm, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.DeviceAlarm{}, err
	}
	if alarm == nil {
		return domain.DeviceAlarm{}, domain.ErrNotFound
	}
	return *alarm, nil
}

func (s *Service) List(ctx context.Context, req domain.ListAlarmRequest) (domain.ListAlarmResponse, error) {
	filter := domain.ListAlarmFilter{
		Severity:     strings.ToLower(strings.TrimSpace(req.Severity)),
		Resolved:     req.Resolved,
		Acknowledged: req.Acknowledged,
	}
	if v := strings.TrimSpace(req.DeviceID); v != "" {
		deviceID, err := snowflake.ParseString(v)
		if err != nil {
			return domain.ListAlarmResponse{}, domain.ErrDeviceNotFound
		}
		filter.DeviceID = deviceID
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	alarms, err := s.repo.List(ctx, s.db, filter, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  int(pageSize),
	})
	if err != nil {
		return domain.ListAlarmResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(alarms, pageSize, func(alarm *domain.DeviceAlarm) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        alarm.ID.String(),
			CreatedAt: alarm.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo.HasMore {
		alarms = alarms[:pageSize]
	}

	resp := domain.ListAlarmResponse{
		Alarms: make([]domain.DeviceAlarm, 0, len(alarms)),
	}
	for _, alarm := range alarms {
		if alarm == nil {
			continue
		}
		resp.Alarms = append(resp.Alarms, *alarm)
	}
	resp.PageInfo = *pageInfo
	return resp, nil
}

func (s *Service) parseID(v string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(v))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
