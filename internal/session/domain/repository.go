package domain

import (
	"context"
	"time"

	"github.com/arusnet/arus/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertPPPoE(ctx context.Context, db *gorm.DB, session *PPPoESession) error
	FindPPPoEByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*PPPoESession, error)
	// FindPPPoEByIDForUpdate locks the session row for the rest of the
	// transaction.
	FindPPPoEByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*PPPoESession, error)
	// FindOpenPPPoEBySessionID returns the active session carrying the
	// NAS session id, if any.
	FindOpenPPPoEBySessionID(ctx context.Context, db *gorm.DB, sessionID string) (*PPPoESession, error)
	UpdatePPPoE(ctx context.Context, db *gorm.DB, session *PPPoESession) error
	ListPPPoE(ctx context.Context, db *gorm.DB, filter ListPPPoEFilter, page pagination.Pagination) ([]*PPPoESession, error)

	InsertHotspot(ctx context.Context, db *gorm.DB, session *HotspotSession) error
	FindHotspotByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*HotspotSession, error)
	FindHotspotByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*HotspotSession, error)
	// FindOpenHotspotByMAC returns the active session for the client MAC,
	// if any.
	FindOpenHotspotByMAC(ctx context.Context, db *gorm.DB, mac string) (*HotspotSession, error)
	UpdateHotspot(ctx context.Context, db *gorm.DB, session *HotspotSession) error
	ListHotspot(ctx context.Context, db *gorm.DB, filter ListHotspotFilter, page pagination.Pagination) ([]*HotspotSession, error)

	// ClaimStalePPPoE locks and returns active sessions whose last_update
	// is older than cutoff.
	ClaimStalePPPoE(ctx context.Context, db *gorm.DB, cutoff time.Time, limit int) ([]*PPPoESession, error)
	ClaimStaleHotspot(ctx context.Context, db *gorm.DB, cutoff time.Time, limit int) ([]*HotspotSession, error)
	// CloseStalePPPoE closes the claimed rows, carrying last_update over
	// as end_time.
	CloseStalePPPoE(ctx context.Context, db *gorm.DB, ids []snowflake.ID) (int64, error)
	CloseStaleHotspot(ctx context.Context, db *gorm.DB, ids []snowflake.ID) (int64, error)
}

type ListPPPoEFilter struct {
	Username   string
	SessionID  string
	CustomerID snowflake.ID
	DeviceID   snowflake.ID
	IsActive   *bool
}

type ListHotspotFilter struct {
	Username   string
	MACAddress string
	CustomerID snowflake.ID
	IsActive   *bool
}
