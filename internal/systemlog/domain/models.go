package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type LogLevel string

const (
	LogLevelDebug    LogLevel = "debug"
	LogLevelInfo     LogLevel = "info"
	LogLevelWarning  LogLevel = "warning"
	LogLevelError    LogLevel = "error"
	LogLevelCritical LogLevel = "critical"
)

func (l LogLevel) Valid() bool {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarning, LogLevelError, LogLevelCritical:
		return true
	}
	return false
}

// SystemLog is an append-only operational log line. Scheduler job
// failures and webhook processing errors land here alongside explicit
// records from services.
type SystemLog struct {
	ID           snowflake.ID `json:"id" gorm:"primaryKey"`
	Level        LogLevel     `json:"level" gorm:"size:20;not null;index"`
	Source       string       `json:"source" gorm:"size:100;not null;index"`
	Message      string       `json:"message" gorm:"type:text;not null"`
	ErrorDetails *string      `json:"error_details,omitempty" gorm:"type:text"`
	CreatedAt    time.Time    `json:"created_at" gorm:"not null;index"`
}

func (SystemLog) TableName() string { return "system_logs" }
