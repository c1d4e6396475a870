package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// SystemConfiguration is one runtime setting keyed by a dotted name.
// Values for keys marked encrypted are AES-GCM sealed at rest and
// unsealed on read; the value column holds the sealed envelope, so its
// width exceeds the request-side limit.
type SystemConfiguration struct {
	ID          snowflake.ID `json:"id" gorm:"primaryKey"`
	Key         string       `json:"key" gorm:"size:100;not null;uniqueIndex"`
	Value       string       `json:"value" gorm:"not null"`
	Description string       `json:"description,omitempty" gorm:"size:500"`
	IsEncrypted bool         `json:"is_encrypted" gorm:"not null;default:false"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

func (SystemConfiguration) TableName() string {
	return "system_configurations"
}
