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

	auditdomain "github.com/arusnet/arus/internal/audit/domain"
	"github.com/arusnet/arus/internal/device/domain"
	"github.com/arusnet/arus/pkg/db/pagination"
)

const (
	nameMaxLen      = 100
	defaultSNMPPort = 161
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
	Audit auditdomain.Service
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
	audit auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("device.service"),
		genID: p.GenID,
		repo:  p.Repo,
		audit: p.Audit,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateDeviceRequest) (domain.NetworkDevice, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" || len(name) > nameMaxLen {
		return domain.NetworkDevice{}, domain.ErrInvalidName
	}
	deviceType := domain.DeviceType(strings.ToLower(strings.TrimSpace(req.DeviceType)))
	if !deviceType.Valid() {
		return domain.NetworkDevice{}, domain.ErrInvalidType
	}

	var parentID snowflake.ID
	if raw := strings.TrimSpace(req.ParentID); raw != "" {
		id, err := snowflake.ParseString(raw)
		if err != nil || id == 0 {
			return domain.NetworkDevice{}, domain.ErrParentNotFound
		}
		parentID = id
	}

	snmpPort := req.SNMPPort
	if snmpPort <= 0 {
		snmpPort = defaultSNMPPort
	}

	now := time.Now().UTC()
	device := domain.NetworkDevice{
		ID:              s.genID.Generate(),
		Name:            name,
		DeviceType:      deviceType,
		IPAddress:       strings.TrimSpace(req.IPAddress),
		MACAddress:      strings.TrimSpace(req.MACAddress),
		Location:        strings.TrimSpace(req.Location),
		Latitude:        req.Latitude,
		Longitude:       req.Longitude,
		Status:          domain.DeviceStatusActive,
		SNMPCommunity:   strings.TrimSpace(req.SNMPCommunity),
		SNMPPort:        snmpPort,
		APIUsername:     strings.TrimSpace(req.APIUsername),
		APIPassword:     req.APIPassword,
		APIPort:         req.APIPort,
		FirmwareVersion: strings.TrimSpace(req.FirmwareVersion),
		Model:           strings.TrimSpace(req.Model),
		SerialNumber:    strings.TrimSpace(req.SerialNumber),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if parentID != 0 {
		device.ParentDeviceID = &parentID
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if parentID != 0 {
			if err := s.assertAttachable(ctx, tx, device.ID, parentID); err != nil {
				return err
			}
		}
		return s.repo.Insert(ctx, tx, &device)
	})
	if err != nil {
		return domain.NetworkDevice{}, err
	}

	s.log.Info("device created",
		zap.String("device_id", device.ID.String()),
		zap.String("device_type", string(device.DeviceType)),
		zap.String("name", device.Name),
	)
	s.emitAudit(ctx, "device.created", device.ID.String(),
		fmt.Sprintf("Added %s %s", device.DeviceType, device.Name),
		map[string]any{"device_type": string(device.DeviceType), "name": device.Name},
	)
	return device, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateDeviceRequest) (domain.NetworkDevice, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.NetworkDevice{}, err
	}

	var updated domain.NetworkDevice
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		device, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if device == nil {
			return domain.ErrNotFound
		}

		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" || len(name) > nameMaxLen {
				return domain.ErrInvalidName
			}
			device.Name = name
		}
		if req.IPAddress != nil {
			device.IPAddress = strings.TrimSpace(*req.IPAddress)
		}
		if req.MACAddress != nil {
			device.MACAddress = strings.TrimSpace(*req.MACAddress)
		}
		if req.Location != nil {
			device.Location = strings.TrimSpace(*req.Location)
		}
		if req.Latitude != nil {
			device.Latitude = req.Latitude
		}
		if req.Longitude != nil {
			device.Longitude = req.Longitude
		}
		if req.Status != nil {
			status := domain.DeviceStatus(strings.ToLower(strings.TrimSpace(*req.Status)))
			if !status.Valid() {
				return domain.ErrInvalidStatus
			}
			device.Status = status
		}
		if req.SNMPCommunity != nil {
			device.SNMPCommunity = strings.TrimSpace(*req.SNMPCommunity)
		}
		if req.SNMPPort != nil && *req.SNMPPort > 0 {
			device.SNMPPort = *req.SNMPPort
		}
		if req.APIUsername != nil {
			device.APIUsername = strings.TrimSpace(*req.APIUsername)
		}
		if req.APIPassword != nil {
			device.APIPassword = *req.APIPassword
		}
		if req.APIPort != nil {
			device.APIPort = req.APIPort
		}
		if req.FirmwareVersion != nil {
			device.FirmwareVersion = strings.TrimSpace(*req.FirmwareVersion)
		}
		if req.Model != nil {
			device.Model = strings.TrimSpace(*req.Model)
		}
		if req.SerialNumber != nil {
			device.SerialNumber = strings.TrimSpace(*req.SerialNumber)
		}

		if req.ParentID != nil {
			raw := strings.TrimSpace(*req.ParentID)
			if raw == "" {
				device.ParentDeviceID = nil
			} else {
				parentID, err := snowflake.ParseString(raw)
				if err != nil || parentID == 0 {
					return domain.ErrParentNotFound
				}
				if err := s.assertAttachable(ctx, tx, device.ID, parentID); err != nil {
					return err
				}
				device.ParentDeviceID = &parentID
			}
		}

		device.UpdatedAt = time.Now().UTC()
		if err := s.repo.Update(ctx, tx, device); err != nil {
			return err
		}
		updated = *device
		return nil
	})
	if err != nil {
		return domain.NetworkDevice{}, err
	}
	return updated, nil
}

func (s *Service) GetByID(ctx context.Context, req domain.GetDeviceRequest) (domain.NetworkDevice, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.NetworkDevice{}, err
	}

	device, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.NetworkDevice{}, err
	}
	if device == nil {
		return domain.NetworkDevice{}, domain.ErrNotFound
	}
	return *device, nil
}

func (s *Service) List(ctx context.Context, req domain.ListDeviceRequest) (domain.ListDeviceResponse, error) {
	filter := domain.ListDeviceFilter{
		DeviceType: strings.ToLower(strings.TrimSpace(req.DeviceType)),
		Status:     strings.ToLower(strings.TrimSpace(req.Status)),
		Name:       strings.TrimSpace(req.Name),
	}
	if raw := strings.TrimSpace(req.ParentID); raw != "" {
		id, err := snowflake.ParseString(raw)
		if err != nil || id == 0 {
			return domain.ListDeviceResponse{}, domain.ErrInvalidID
		}
		filter.ParentID = id
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	items, err := s.repo.List(ctx, s.db, filter, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  int(pageSize),
	})
	if err != nil {
		return domain.ListDeviceResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(device *domain.NetworkDevice) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        device.ID.String(),
			CreatedAt: device.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo.HasMore {
		items = items[:pageSize]
	}

	resp := domain.ListDeviceResponse{
		Devices: make([]domain.NetworkDevice, 0, len(items)),
	}
	for _, item := range items {
		if item == nil {
			continue
		}
		resp.Devices = append(resp.Devices, *item)
	}
	resp.PageInfo = *pageInfo
	return resp, nil
}

func (s *Service) Delete(ctx context.Context, req domain.DeleteDeviceRequest) error {
	id, err := s.parseID(req.ID)
	if err != nil {
		return err
	}

	var removed domain.NetworkDevice
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		device, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if device == nil {
			return domain.ErrNotFound
		}
		removed = *device

		children, err := s.repo.CountChildren(ctx, tx, id)
		if err != nil {
			return err
		}
		if children > 0 {
			return domain.ErrHasChildren
		}

		if err := tx.Exec(
			`DELETE FROM device_connections WHERE from_device_id = ? OR to_device_id = ?`,
			id, id,
		).Error; err != nil {
			return err
		}
		if err := tx.Exec(
			`DELETE FROM device_alarms WHERE device_id = ?`,
			id,
		).Error; err != nil {
			return err
		}
		if err := tx.Exec(
			`DELETE FROM traffic_monitors WHERE device_id = ?`,
			id,
		).Error; err != nil {
			return err
		}
		// Session history survives the device; the reference is cleared.
		if err := tx.Exec(
			`UPDATE pppoe_sessions SET device_id = NULL WHERE device_id = ?`,
			id,
		).Error; err != nil {
			return err
		}
		return s.repo.Delete(ctx, tx, id)
	})
	if err != nil {
		return err
	}

	s.log.Info("device deleted", zap.String("device_id", id.String()))
	s.emitAudit(ctx, "device.deleted", id.String(),
		fmt.Sprintf("Removed %s %s", removed.DeviceType, removed.Name), nil)
	return nil
}

func (s *Service) Topology(ctx context.Context, req domain.TopologyRequest) (domain.TopologyResponse, error) {
	rootID, err := s.parseID(req.RootID)
	if err != nil {
		return domain.TopologyResponse{}, err
	}

	root, err := s.repo.FindByID(ctx, s.db, rootID)
	if err != nil {
		return domain.TopologyResponse{}, err
	}
	if root == nil {
		return domain.TopologyResponse{}, domain.ErrNotFound
	}

	// Breadth-first over parent links. The visited set keeps corrupted
	// data from looping the traversal.
	visited := map[snowflake.ID]bool{rootID: true}
	nodes := map[snowflake.ID]*domain.TopologyNode{
		rootID: {Device: *root},
	}
	order := []snowflake.ID{rootID}
	queue := []snowflake.ID{rootID}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		children, err := s.repo.ListChildren(ctx, s.db, current)
		if err != nil {
			return domain.TopologyResponse{}, err
		}
		for _, child := range children {
			if child == nil || visited[child.ID] {
				continue
			}
			visited[child.ID] = true
			node := &domain.TopologyNode{Device: *child}
			nodes[child.ID] = node
			nodes[current].Children = append(nodes[current].Children, node)
			order = append(order, child.ID)
			queue = append(queue, child.ID)
		}
	}

	conns, err := s.repo.ListConnectionsTouching(ctx, s.db, order)
	if err != nil {
		return domain.TopologyResponse{}, err
	}

	resp := domain.TopologyResponse{
		Root:        nodes[rootID],
		Connections: make([]domain.DeviceConnection, 0, len(conns)),
		DeviceCount: len(order),
	}
	for _, conn := range conns {
		if conn == nil {
			continue
		}
		resp.Connections = append(resp.Connections, *conn)
	}
	return resp, nil
}

func (s *Service) Heartbeat(ctx context.Context, req domain.HeartbeatRequest) (domain.NetworkDevice, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.NetworkDevice{}, err
	}

	var status domain.DeviceStatus
	if raw := strings.ToLower(strings.TrimSpace(req.Status)); raw != "" {
		status = domain.DeviceStatus(raw)
		if !status.Valid() {
			return domain.NetworkDevice{}, domain.ErrInvalidStatus
		}
	}

	device, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.NetworkDevice{}, err
	}
	if device == nil {
		return domain.NetworkDevice{}, domain.ErrNotFound
	}

	now := time.Now().UTC()
	if err := s.repo.StampHeartbeat(ctx, s.db, id, status, now); err != nil {
		return domain.NetworkDevice{}, err
	}

	device.LastSeen = &now
	if status != "" {
		device.Status = status
	}
	device.UpdatedAt = now
	return *device, nil
}

func (s *Service) AddConnection(ctx context.Context, req domain.AddConnectionRequest) (domain.DeviceConnection, error) {
	connType := strings.TrimSpace(req.ConnectionType)
	if connType == "" || len(connType) > 50 {
		return domain.DeviceConnection{}, domain.ErrInvalidConnection
	}

	fromID, err := snowflake.ParseString(strings.TrimSpace(req.FromDeviceID))
	if err != nil || fromID == 0 {
		return domain.DeviceConnection{}, domain.ErrInvalidConnection
	}
	toID, err := snowflake.ParseString(strings.TrimSpace(req.ToDeviceID))
	if err != nil || toID == 0 {
		return domain.DeviceConnection{}, domain.ErrInvalidConnection
	}
	if fromID == toID {
		return domain.DeviceConnection{}, domain.ErrInvalidConnection
	}

	conn := domain.DeviceConnection{
		ID:             s.genID.Generate(),
		FromDeviceID:   fromID,
		ToDeviceID:     toID,
		ConnectionType: connType,
		PortFrom:       strings.TrimSpace(req.PortFrom),
		PortTo:         strings.TrimSpace(req.PortTo),
		IsActive:       true,
		CreatedAt:      time.Now().UTC(),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		from, err := s.repo.FindByID(ctx, tx, fromID)
		if err != nil {
			return err
		}
		to, err := s.repo.FindByID(ctx, tx, toID)
		if err != nil {
			return err
		}
		if from == nil || to == nil {
			return domain.ErrInvalidConnection
		}
		return s.repo.InsertConnection(ctx, tx, &conn)
	})
	if err != nil {
		return domain.DeviceConnection{}, err
	}

	s.log.Info("device connection added",
		zap.String("from_device_id", fromID.String()),
		zap.String("to_device_id", toID.String()),
		zap.String("connection_type", connType),
	)
	return conn, nil
}

func (s *Service) RemoveConnection(ctx context.Context, req domain.DeleteConnectionRequest) error {
	id, err := s.parseID(req.ID)
	if err != nil {
		return err
	}

	conn, err := s.repo.FindConnectionByID(ctx, s.db, id)
	if err != nil {
		return err
	}
	if conn == nil {
		return domain.ErrConnNotFound
	}
	return s.repo.DeleteConnection(ctx, s.db, id)
}

func (s *Service) ListConnections(ctx context.Context, req domain.ListConnectionRequest) (domain.ListConnectionResponse, error) {
	filter := domain.ListConnectionFilter{
		IsActive: req.IsActive,
	}
	if raw := strings.TrimSpace(req.DeviceID); raw != "" {
		id, err := snowflake.ParseString(raw)
		if err != nil || id == 0 {
			return domain.ListConnectionResponse{}, domain.ErrInvalidID
		}
		filter.DeviceID = id
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	items, err := s.repo.ListConnections(ctx, s.db, filter, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  int(pageSize),
	})
	if err != nil {
		return domain.ListConnectionResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(conn *domain.DeviceConnection) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        conn.ID.String(),
			CreatedAt: conn.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo.HasMore {
		items = items[:pageSize]
	}

	resp := domain.ListConnectionResponse{
		Connections: make([]domain.DeviceConnection, 0, len(items)),
	}
	for _, item := range items {
		if item == nil {
			continue
		}
		resp.Connections = append(resp.Connections, *item)
	}
	resp.PageInfo = *pageInfo
	return resp, nil
}

type chainRow struct {
	ID             snowflake.ID
	ParentDeviceID *snowflake.ID
}

func (s *Service) lockChainRow(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*chainRow, error) {
	query := `SELECT id, parent_device_id FROM network_devices WHERE id = ?`
	if tx.Dialector.Name() != "sqlite" {
		query += " FOR UPDATE"
	}
	var row chainRow
	if err := tx.WithContext(ctx).Raw(query, id).Scan(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == 0 {
		return nil, nil
	}
	return &row, nil
}

// assertAttachable walks the parent chain from parentID to the root and
// fails when deviceID appears in it. Each step locks the row it reads so
// concurrent re-parenting cannot thread a cycle between check and write.
// The walk is bounded by the device count so corrupted chains terminate.
func (s *Service) assertAttachable(ctx context.Context, tx *gorm.DB, deviceID, parentID snowflake.ID) error {
	total, err := s.repo.Count(ctx, tx)
	if err != nil {
		return err
	}

	current := parentID
	for steps := int64(0); steps <= total; steps++ {
		if current == deviceID {
			return domain.ErrCycle
		}
		row, err := s.lockChainRow(ctx, tx, current)
		if err != nil {
			return err
		}
		if row == nil {
			if current == parentID {
				return domain.ErrParentNotFound
			}
			return nil
		}
		if row.ParentDeviceID == nil {
			return nil
		}
		current = *row.ParentDeviceID
	}
	return domain.ErrCycle
}

func (s *Service) parseID(v string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(v))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func (s *Service) emitAudit(ctx context.Context, action, deviceID, description string, metadata map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, action, "network_device", &deviceID, description, metadata)
}
