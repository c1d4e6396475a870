package domain

import (
	"context"
	"errors"

	"github.com/arusnet/arus/pkg/db/pagination"
)

var (
	ErrInvalidType     = errors.New("invalid_alarm_type")
	ErrInvalidSeverity = errors.New("invalid_alarm_severity")
	ErrInvalidMessage  = errors.New("invalid_alarm_message")
	ErrInvalidActor    = errors.New("invalid_acknowledger")
	ErrInvalidID       = errors.New("invalid_alarm_id")
	ErrNotFound        = errors.New("alarm_not_found")
	ErrDeviceNotFound  = errors.New("device_not_found")
	ErrAlarmResolved   = errors.New("alarm_already_resolved")
)

type RaiseAlarmRequest struct {
	DeviceID  string `json:"device_id"`
	AlarmType string `json:"alarm_type"`
	Severity  string `json:"severity"`
	Message   string `json:"message"`
}

type AcknowledgeAlarmRequest struct {
	ID string `json:"-" uri:"id"`
	// By defaults to the authenticated username.
	By string `json:"acknowledged_by"`
}

type ResolveAlarmRequest struct {
	ID string `json:"-" uri:"id"`
}

type GetAlarmRequest struct {
	ID string `uri:"id"`
}

type ListAlarmRequest struct {
	DeviceID     string `form:"device_id"`
	Severity     string `form:"severity"`
	Resolved     *bool  `form:"resolved"`
	Acknowledged *bool  `form:"acknowledged"`
	PageSize     int32  `form:"page_size"`
	PageToken    string `form:"page_token"`
}

type ListAlarmResponse struct {
	Alarms   []DeviceAlarm       `json:"alarms"`
	PageInfo pagination.PageInfo `json:"page_info"`
}

type Service interface {
	// Raise opens an alarm against a device. Critical and major alarms
	// also queue an operator notification.
	Raise(ctx context.Context, req RaiseAlarmRequest) (DeviceAlarm, error)
	// Acknowledge marks the alarm as seen. Acknowledging twice keeps the
	// first acknowledger; a resolved alarm cannot be acknowledged.
	Acknowledge(ctx context.Context, req AcknowledgeAlarmRequest) (DeviceAlarm, error)
	// Resolve closes the alarm. Resolving a resolved alarm is a no-op.
	Resolve(ctx context.Context, req ResolveAlarmRequest) (DeviceAlarm, error)
	GetByID(ctx context.Context, req GetAlarmRequest) (DeviceAlarm, error)
	List(ctx context.Context, req ListAlarmRequest) (ListAlarmResponse, error)
}
