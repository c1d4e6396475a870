package repository

import (
	"context"
	"time"

	"github.com/arusnet/arus/internal/session/domain"
	"github.com/arusnet/arus/pkg/db/option"
	"github.com/arusnet/arus/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const pppoeColumns = `id, username, customer_id, device_id, session_id, ip_address, mac_address,
	uptime, bytes_in, bytes_out, is_active, start_time, end_time, last_update`

const hotspotColumns = `id, username, customer_id, mac_address, ip_address,
	uptime, bytes_in, bytes_out, is_active, start_time, end_time, last_update`

func (r *repo) InsertPPPoE(ctx context.Context, db *gorm.DB, session *domain.PPPoESession) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO pppoe_sessions (id, username, customer_id, device_id, session_id, ip_address,
			mac_address, uptime, bytes_in, bytes_out, is_active, start_time, end_time, last_update)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		session.ID,
		session.Username,
		session.CustomerID,
		session.DeviceID,
		session.SessionID,
		session.IPAddress,
		session.MACAddress,
		session.Uptime,
		session.BytesIn,
		session.BytesOut,
		session.IsActive,
		session.StartTime,
		session.EndTime,
		session.LastUpdate,
	).Error
}

func (r *repo) FindPPPoEByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.PPPoESession, error) {
	return r.findPPPoE(ctx, db, id, false)
}

func (r *repo) FindPPPoEByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.PPPoESession, error) {
	return r.findPPPoE(ctx, db, id, true)
}

func (r *repo) findPPPoE(ctx context.Context, db *gorm.DB, id snowflake.ID, lock bool) (*domain.PPPoESession, error) {
	query := `SELECT ` + pppoeColumns + ` FROM pppoe_sessions WHERE id = ?`
	if lock && db.Dialector.Name() != "sqlite" {
		query += " FOR UPDATE"
	}

	var session domain.PPPoESession
	err := db.WithContext(ctx).Raw(query, id).Scan(&session).Error
	if err != nil {
		return nil, err
	}
	if session.ID == 0 {
		return nil, nil
	}
	return &session, nil
}

func (r *repo) FindOpenPPPoEBySessionID(ctx context.Context, db *gorm.DB, sessionID string) (*domain.PPPoESession, error) {
	var session domain.PPPoESession
	err := db.WithContext(ctx).Raw(
		`SELECT `+pppoeColumns+` FROM pppoe_sessions WHERE session_id = ? AND is_active = true`,
		sessionID,
	).Scan(&session).Error
	if err != nil {
		return nil, err
	}
	if session.ID == 0 {
		return nil, nil
	}
	return &session, nil
}

func (r *repo) UpdatePPPoE(ctx context.Context, db *gorm.DB, session *domain.PPPoESession) error {
	return db.WithContext(ctx).Exec(
		`UPDATE pppoe_sessions
		 SET ip_address = ?, mac_address = ?, uptime = ?, bytes_in = ?, bytes_out = ?,
			is_active = ?, end_time = ?, last_update = ?
		 WHERE id = ?`,
		session.IPAddress,
		session.MACAddress,
		session.Uptime,
		session.BytesIn,
		session.BytesOut,
		session.IsActive,
		session.EndTime,
		session.LastUpdate,
		session.ID,
	).Error
}

func (r *repo) ListPPPoE(ctx context.Context, db *gorm.DB, filter domain.ListPPPoEFilter, page pagination.Pagination) ([]*domain.PPPoESession, error) {
	var sessions []*domain.PPPoESession
	stmt := db.WithContext(ctx).Model(&domain.PPPoESession{})
	if filter.Username != "" {
		stmt = stmt.Where("username = ?", filter.Username)
	}
	if filter.SessionID != "" {
		stmt = stmt.Where("session_id = ?", filter.SessionID)
	}
	if filter.CustomerID != 0 {
		stmt = stmt.Where("customer_id = ?", filter.CustomerID)
	}
	if filter.DeviceID != 0 {
		stmt = stmt.Where("device_id = ?", filter.DeviceID)
	}
	if filter.IsActive != nil {
		stmt = stmt.Where("is_active = ?", *filter.IsActive)
	}
	stmt = option.ApplyPaginationOn("start_time", page).Apply(stmt)
	err := stmt.
		Order("start_time desc, id desc").
		Find(&sessions).Error
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *repo) InsertHotspot(ctx context.Context, db *gorm.DB, session *domain.HotspotSession) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO hotspot_sessions (id, username, customer_id, mac_address, ip_address,
			uptime, bytes_in, bytes_out, is_active, start_time, end_time, last_update)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		session.ID,
		session.Username,
		session.CustomerID,
		session.MACAddress,
		session.IPAddress,
		session.Uptime,
		session.BytesIn,
		session.BytesOut,
		session.IsActive,
		session.StartTime,
		session.EndTime,
		session.LastUpdate,
	).Error
}

func (r *repo) FindHotspotByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.HotspotSession, error) {
	return r.findHotspot(ctx, db, id, false)
}

func (r *repo) FindHotspotByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.HotspotSession, error) {
	return r.findHotspot(ctx, db, id, true)
}

func (r *repo) findHotspot(ctx context.Context, db *gorm.DB, id snowflake.ID, lock bool) (*domain.HotspotSession, error) {
	query := `SELECT ` + hotspotColumns + ` FROM hotspot_sessions WHERE id = ?`
	if lock && db.Dialector.Name() != "sqlite" {
		query += " FOR UPDATE"
	}

	var session domain.HotspotSession
	err := db.WithContext(ctx).Raw(query, id).Scan(&session).Error
	if err != nil {
		return nil, err
	}
	if session.ID == 0 {
		return nil, nil
	}
	return &session, nil
}

func (r *repo) FindOpenHotspotByMAC(ctx context.Context, db *gorm.DB, mac string) (*domain.HotspotSession, error) {
	var session domain.HotspotSession
	err := db.WithContext(ctx).Raw(
		`SELECT `+hotspotColumns+` FROM hotspot_sessions WHERE mac_address = ? AND is_active = true`,
		mac,
	).Scan(&session).Error
	if err != nil {
		return nil, err
	}
	if session.ID == 0 {
		return nil, nil
	}
	return &session, nil
}

func (r *repo) UpdateHotspot(ctx context.Context, db *gorm.DB, session *domain.HotspotSession) error {
	return db.WithContext(ctx).Exec(
		`UPDATE hotspot_sessions
		 SET ip_address = ?, uptime = ?, bytes_in = ?, bytes_out = ?,
			is_active = ?, end_time = ?, last_update = ?
		 WHERE id = ?`,
		session.IPAddress,
		session.Uptime,
		session.BytesIn,
		session.BytesOut,
		session.IsActive,
		session.EndTime,
		session.LastUpdate,
		session.ID,
	).Error
}

func (r *repo) ListHotspot(ctx context.Context, db *gorm.DB, filter domain.ListHotspotFilter, page pagination.Pagination) ([]*domain.HotspotSession, error) {
	var sessions []*domain.HotspotSession
	stmt := db.WithContext(ctx).Model(&domain.HotspotSession{})
	if filter.Username != "" {
		stmt = stmt.Where("username = ?", filter.Username)
	}
	if filter.MACAddress != "" {
		stmt = stmt.Where("mac_address = ?", filter.MACAddress)
	}
	if filter.CustomerID != 0 {
		stmt = stmt.Where("customer_id = ?", filter.CustomerID)
	}
	if filter.IsActive != nil {
		stmt = stmt.Where("is_active = ?", *filter.IsActive)
	}
	stmt = option.ApplyPaginationOn("start_time", page).Apply(stmt)
	err := stmt.
		Order("start_time desc, id desc").
		Find(&sessions).Error
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *repo) ClaimStalePPPoE(ctx context.Context, db *gorm.DB, cutoff time.Time, limit int) ([]*domain.PPPoESession, error) {
	query := `SELECT ` + pppoeColumns + `
		 FROM pppoe_sessions
		 WHERE is_active = true AND last_update < ?
		 ORDER BY last_update ASC, id ASC`
	if db.Dialector.Name() != "sqlite" {
		query += " FOR UPDATE SKIP LOCKED"
	}
	query += " LIMIT ?"

	var sessions []*domain.PPPoESession
	err := db.WithContext(ctx).Raw(query, cutoff, limit).Scan(&sessions).Error
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *repo) ClaimStaleHotspot(ctx context.Context, db *gorm.DB, cutoff time.Time, limit int) ([]*domain.HotspotSession, error) {
	query := `SELECT ` + hotspotColumns + `
		 FROM hotspot_sessions
		 WHERE is_active = true AND last_update < ?
		 ORDER BY last_update ASC, id ASC`
	if db.Dialector.Name() != "sqlite" {
		query += " FOR UPDATE SKIP LOCKED"
	}
	query += " LIMIT ?"

	var sessions []*domain.HotspotSession
	err := db.WithContext(ctx).Raw(query, cutoff, limit).Scan(&sessions).Error
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *repo) CloseStalePPPoE(ctx context.Context, db *gorm.DB, ids []snowflake.ID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := db.WithContext(ctx).Exec(
		`UPDATE pppoe_sessions
		 SET is_active = false, end_time = last_update
		 WHERE id IN ? AND is_active = true`,
		ids,
	)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *repo) CloseStaleHotspot(ctx context.Context, db *gorm.DB, ids []snowflake.ID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := db.WithContext(ctx).Exec(
		`UPDATE hotspot_sessions
		 SET is_active = false, end_time = last_update
		 WHERE id IN ? AND is_active = true`,
		ids,
	)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
