package repository

import (
	"context"
	"time"

	"github.com/arusnet/arus/internal/device/domain"
	"github.com/arusnet/arus/pkg/db/option"
	"github.com/arusnet/arus/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, device *domain.NetworkDevice) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO network_devices (id, name, device_type, ip_address, mac_address, location,
			latitude, longitude, status, parent_device_id, snmp_community, snmp_port,
			api_username, api_password, api_port, firmware_version, model, serial_number,
			last_seen, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		device.ID,
		device.Name,
		device.DeviceType,
		device.IPAddress,
		device.MACAddress,
		device.Location,
		device.Latitude,
		device.Longitude,
		device.Status,
		device.ParentDeviceID,
		device.SNMPCommunity,
		device.SNMPPort,
		device.APIUsername,
		device.APIPassword,
		device.APIPort,
		device.FirmwareVersion,
		device.Model,
		device.SerialNumber,
		device.LastSeen,
		device.CreatedAt,
		device.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.NetworkDevice, error) {
	var device domain.NetworkDevice
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, device_type, ip_address, mac_address, location,
			latitude, longitude, status, parent_device_id, snmp_community, snmp_port,
			api_username, api_password, api_port, firmware_version, model, serial_number,
			last_seen, created_at, updated_at
		 FROM network_devices WHERE id = ?`,
		id,
	).Scan(&device).Error
	if err != nil {
		return nil, err
	}
	if device.ID == 0 {
		return nil, nil
	}
	return &device, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, device *domain.NetworkDevice) error {
	return db.WithContext(ctx).Exec(
		`UPDATE network_devices
		 SET name = ?, ip_address = ?, mac_address = ?, location = ?, latitude = ?, longitude = ?,
			status = ?, parent_device_id = ?, snmp_community = ?, snmp_port = ?,
			api_username = ?, api_password = ?, api_port = ?, firmware_version = ?,
			model = ?, serial_number = ?, updated_at = ?
		 WHERE id = ?`,
		device.Name,
		device.IPAddress,
		device.MACAddress,
		device.Location,
		device.Latitude,
		device.Longitude,
		device.Status,
		device.ParentDeviceID,
		device.SNMPCommunity,
		device.SNMPPort,
		device.APIUsername,
		device.APIPassword,
		device.APIPort,
		device.FirmwareVersion,
		device.Model,
		device.SerialNumber,
		device.UpdatedAt,
		device.ID,
	).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`DELETE FROM network_devices WHERE id = ?`,
		id,
	).Error
}

func (r *repo) Count(ctx context.Context, db *gorm.DB) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM network_devices`,
	).Scan(&count).Error
	return count, err
}

func (r *repo) CountChildren(ctx context.Context, db *gorm.DB, parentID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM network_devices WHERE parent_device_id = ?`,
		parentID,
	).Scan(&count).Error
	return count, err
}

func (r *repo) ListChildren(ctx context.Context, db *gorm.DB, parentID snowflake.ID) ([]*domain.NetworkDevice, error) {
	var devices []*domain.NetworkDevice
	err := db.WithContext(ctx).
		Model(&domain.NetworkDevice{}).
		Where("parent_device_id = ?", parentID).
		Order("created_at asc, id asc").
		Find(&devices).Error
	if err != nil {
		return nil, err
	}
	return devices, nil
}

func (r *repo) StampHeartbeat(ctx context.Context, db *gorm.DB, id snowflake.ID, status domain.DeviceStatus, at time.Time) error {
	if status == "" {
		return db.WithContext(ctx).Exec(
			`UPDATE network_devices SET last_seen = ?, updated_at = ? WHERE id = ?`,
			at, at, id,
		).Error
	}
	return db.WithContext(ctx).Exec(
		`UPDATE network_devices SET last_seen = ?, status = ?, updated_at = ? WHERE id = ?`,
		at, status, at, id,
	).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListDeviceFilter, page pagination.Pagination) ([]*domain.NetworkDevice, error) {
	var devices []*domain.NetworkDevice
	stmt := db.WithContext(ctx).Model(&domain.NetworkDevice{})
	if filter.DeviceType != "" {
		stmt = stmt.Where("device_type = ?", filter.DeviceType)
	}
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.ParentID != 0 {
		stmt = stmt.Where("parent_device_id = ?", filter.ParentID)
	}
	if filter.Name != "" {
		stmt = stmt.Where("name LIKE ?", "%"+filter.Name+"%")
	}
	stmt = option.ApplyPagination(page).Apply(stmt)
	err := stmt.
		Order("created_at desc, id desc").
		Find(&devices).Error
	if err != nil {
		return nil, err
	}
	return devices, nil
}

func (r *repo) InsertConnection(ctx context.Context, db *gorm.DB, conn *domain.DeviceConnection) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO device_connections (id, from_device_id, to_device_id, connection_type,
			port_from, port_to, is_active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		conn.ID,
		conn.FromDeviceID,
		conn.ToDeviceID,
		conn.ConnectionType,
		conn.PortFrom,
		conn.PortTo,
		conn.IsActive,
		conn.CreatedAt,
	).Error
}

func (r *repo) FindConnectionByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.DeviceConnection, error) {
	var conn domain.DeviceConnection
	err := db.WithContext(ctx).Raw(
		`SELECT id, from_device_id, to_device_id, connection_type, port_from, port_to,
			is_active, created_at
		 FROM device_connections WHERE id = ?`,
		id,
	).Scan(&conn).Error
	if err != nil {
		return nil, err
	}
	if conn.ID == 0 {
		return nil, nil
	}
	return &conn, nil
}

func (r *repo) DeleteConnection(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`DELETE FROM device_connections WHERE id = ?`,
		id,
	).Error
}

func (r *repo) ListConnectionsTouching(ctx context.Context, db *gorm.DB, deviceIDs []snowflake.ID) ([]*domain.DeviceConnection, error) {
	if len(deviceIDs) == 0 {
		return nil, nil
	}
	var conns []*domain.DeviceConnection
	err := db.WithContext(ctx).
		Model(&domain.DeviceConnection{}).
		Where("from_device_id IN ? OR to_device_id IN ?", deviceIDs, deviceIDs).
		Order("created_at asc, id asc").
		Find(&conns).Error
	if err != nil {
		return nil, err
	}
	return conns, nil
}

func (r *repo) ListConnections(ctx context.Context, db *gorm.DB, filter domain.ListConnectionFilter, page pagination.Pagination) ([]*domain.DeviceConnection, error) {
	var conns []*domain.DeviceConnection
	stmt := db.WithContext(ctx).Model(&domain.DeviceConnection{})
	if filter.DeviceID != 0 {
		stmt = stmt.Where("from_device_id = ? OR to_device_id = ?", filter.DeviceID, filter.DeviceID)
	}
	if filter.IsActive != nil {
		stmt = stmt.Where("is_active = ?", *filter.IsActive)
	}
	stmt = option.ApplyPagination(page).Apply(stmt)
	err := stmt.
		Order("created_at desc, id desc").
		Find(&conns).Error
	if err != nil {
		return nil, err
	}
	return conns, nil
}
