package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// ActivityLog records one operator action. Rows are append-only: nothing
// in the system updates or deletes them, and they survive the user being
// deactivated. user_id stays NULL for actions taken outside a request,
// seeding and scheduler jobs included.
type ActivityLog struct {
	ID             snowflake.ID      `json:"id" gorm:"primaryKey"`
	UserID         *snowflake.ID     `json:"user_id,omitempty" gorm:"index"`
	Action         string            `json:"action" gorm:"size:100;not null;index"`
	ResourceType   string            `json:"resource_type" gorm:"size:50;not null;index"`
	ResourceID     *string           `json:"resource_id,omitempty" gorm:"size:100"`
	Description    string            `json:"description" gorm:"size:500"`
	IPAddress      string            `json:"ip_address,omitempty" gorm:"size:45"`
	UserAgent      string            `json:"user_agent,omitempty" gorm:"size:500"`
	AdditionalData datatypes.JSONMap `json:"additional_data,omitempty"`
	CreatedAt      time.Time         `json:"created_at" gorm:"index"`
}

func (ActivityLog) TableName() string {
	return "activity_logs"
}
