package service

import (
	"context"
	"net"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/arusnet/arus/internal/config"
	"github.com/arusnet/arus/internal/session/domain"
	"github.com/arusnet/arus/pkg/db/pagination"
)

const (
	usernameMaxLen  = 100
	sessionIDMaxLen = 100
	macMaxLen       = 17
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Repo     domain.Repository
	Dispatch *config.DispatchConfigHolder
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	repo     domain.Repository
	dispatch *config.DispatchConfigHolder
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("session.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		dispatch: p.Dispatch,
	}
}

func (s *Service) OpenPPPoE(ctx context.Context, req domain.OpenPPPoERequest) (domain.PPPoESession, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" || len(username) > usernameMaxLen {
		return domain.PPPoESession{}, domain.ErrInvalidUsername
	}

	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" || len(sessionID) > sessionIDMaxLen {
		return domain.PPPoESession{}, domain.ErrInvalidSessionID
	}

	mac := ""
	if strings.TrimSpace(req.MACAddress) != "" {
		var err error
		mac, err = normalizeMAC(req.MACAddress)
		if err != nil {
			return domain.PPPoESession{}, domain.ErrInvalidMAC
		}
	}

	var customerID snowflake.ID
	if v := strings.TrimSpace(req.CustomerID); v != "" {
		id, err := snowflake.ParseString(v)
		if err != nil || id == 0 {
			return domain.PPPoESession{}, domain.ErrCustomerNotFound
		}
		customerID = id
	}

	var deviceID snowflake.ID
	if v := strings.TrimSpace(req.DeviceID); v != "" {
		id, err := snowflake.ParseString(v)
		if err != nil || id == 0 {
			return domain.PPPoESession{}, domain.ErrDeviceNotFound
		}
		deviceID = id
	}

	now := time.Now().UTC()
	session := domain.PPPoESession{
		ID:         s.genID.Generate(),
		Username:   username,
		SessionID:  sessionID,
		IPAddress:  strings.TrimSpace(req.IPAddress),
		MACAddress: mac,
		IsActive:   true,
		StartTime:  now,
		LastUpdate: now,
	}
	if customerID != 0 {
		session.CustomerID = &customerID
	}
	if deviceID != 0 {
		session.DeviceID = &deviceID
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		open, err := s.repo.FindOpenPPPoEBySessionID(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		if open != nil {
			return domain.ErrSessionOpen
		}
		if customerID != 0 {
			if err := s.assertRowExists(ctx, tx, "customers", customerID, domain.ErrCustomerNotFound); err != nil {
				return err
			}
		}
		if deviceID != 0 {
			if err := s.assertRowExists(ctx, tx, "network_devices", deviceID, domain.ErrDeviceNotFound); err != nil {
				return err
			}
		}
		return s.repo.InsertPPPoE(ctx, tx, &session)
	})
	if err != nil {
		return domain.PPPoESession{}, err
	}

	s.log.Info("pppoe session opened",
		zap.String("session_row_id", session.ID.String()),
		zap.String("username", username),
		zap.String("session_id", sessionID),
	)
	return session, nil
}

func (s *Service) RefreshPPPoE(ctx context.Context, req domain.RefreshSessionRequest) (domain.PPPoESession, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.PPPoESession{}, err
	}
	if hasNegativeCounter(req.Uptime, req.BytesIn, req.BytesOut) {
		return domain.PPPoESession{}, domain.ErrInvalidCounter
	}

	var session domain.PPPoESession
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindPPPoEByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if existing == nil {
			return domain.ErrNotFound
		}
		if !existing.IsActive {
			return domain.ErrSessionClosed
		}

		session = *existing
		applyCounters(&session.Uptime, &session.BytesIn, &session.BytesOut, req.Uptime, req.BytesIn, req.BytesOut)
		if ip := strings.TrimSpace(req.IPAddress); ip != "" {
			session.IPAddress = ip
		}
		session.LastUpdate = time.Now().UTC()
		return s.repo.UpdatePPPoE(ctx, tx, &session)
	})
	if err != nil {
		return domain.PPPoESession{}, err
	}
	return session, nil
}

func (s *Service) ClosePPPoE(ctx context.Context, req domain.CloseSessionRequest) (domain.PPPoESession, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.PPPoESession{}, err
	}
	if hasNegativeCounter(req.Uptime, req.BytesIn, req.BytesOut) {
		return domain.PPPoESession{}, domain.ErrInvalidCounter
	}

	var session domain.PPPoESession
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindPPPoEByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if existing == nil {
			return domain.ErrNotFound
		}
		session = *existing
		if !existing.IsActive {
			// Accounting stops get retried; the first close wins.
			return nil
		}

		applyCounters(&session.Uptime, &session.BytesIn, &session.BytesOut, req.Uptime, req.BytesIn, req.BytesOut)
		now := time.Now().UTC()
		end := now
		if end.Before(session.StartTime) {
			// NAS clock skew must not put end_time before start_time.
			end = session.StartTime
		}
		session.IsActive = false
		session.EndTime = &end
		session.LastUpdate = now
		return s.repo.UpdatePPPoE(ctx, tx, &session)
	})
	if err != nil {
		return domain.PPPoESession{}, err
	}

	s.log.Info("pppoe session closed",
		zap.String("session_row_id", session.ID.String()),
		zap.String("username", session.Username),
	)
	return session, nil
}

func (s *Service) GetPPPoE(ctx context.Context, req domain.GetSessionRequest) (domain.PPPoESession, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.PPPoESession{}, err
	}

	session, err := s.repo.FindPPPoEByID(ctx, s.db, id)
	if err != nil {
		return domain.PPPoESession{}, err
	}
	if session == nil {
		return domain.PPPoESession{}, domain.ErrNotFound
	}
	return *session, nil
}

func (s *Service) ListPPPoE(ctx context.Context, req domain.ListPPPoERequest) (domain.ListPPPoEResponse, error) {
	filter := domain.ListPPPoEFilter{
		Username:  strings.TrimSpace(req.Username),
		SessionID: strings.TrimSpace(req.SessionID),
		IsActive:  req.IsActive,
	}
	if v := strings.TrimSpace(req.CustomerID); v != "" {
		id, err := snowflake.ParseString(v)
		if err != nil {
			return domain.ListPPPoEResponse{}, domain.ErrInvalidID
		}
		filter.CustomerID = id
	}
	if v := strings.TrimSpace(req.DeviceID); v != "" {
		id, err := snowflake.ParseString(v)
		if err != nil {
			return domain.ListPPPoEResponse{}, domain.ErrInvalidID
		}
		filter.DeviceID = id
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	sessions, err := s.repo.ListPPPoE(ctx, s.db, filter, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  int(pageSize),
	})
	if err != nil {
		return domain.ListPPPoEResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(sessions, pageSize, func(session *domain.PPPoESession) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        session.ID.String(),
			CreatedAt: session.StartTime.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo.HasMore {
		sessions = sessions[:pageSize]
	}

	resp := domain.ListPPPoEResponse{
		Sessions: make([]domain.PPPoESession, 0, len(sessions)),
	}
	for _, session := range sessions {
		if session == nil {
			continue
		}
		resp.Sessions = append(resp.Sessions, *session)
	}
	resp.PageInfo = *pageInfo
	return resp, nil
}

func (s *Service) OpenHotspot(ctx context.Context, req domain.OpenHotspotRequest) (domain.HotspotSession, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" || len(username) > usernameMaxLen {
		return domain.HotspotSession{}, domain.ErrInvalidUsername
	}

	mac, err := normalizeMAC(req.MACAddress)
	if err != nil {
		return domain.HotspotSession{}, domain.ErrInvalidMAC
	}

	var customerID snowflake.ID
	if v := strings.TrimSpace(req.CustomerID); v != "" {
		id, err := snowflake.ParseString(v)
		if err != nil || id == 0 {
			return domain.HotspotSession{}, domain.ErrCustomerNotFound
		}
		customerID = id
	}

	now := time.Now().UTC()
	session := domain.HotspotSession{
		ID:         s.genID.Generate(),
		Username:   username,
		MACAddress: mac,
		IPAddress:  strings.TrimSpace(req.IPAddress),
		IsActive:   true,
		StartTime:  now,
		LastUpdate: now,
	}
	if customerID != 0 {
		session.CustomerID = &customerID
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		open, err := s.repo.FindOpenHotspotByMAC(ctx, tx, mac)
		if err != nil {
			return err
		}
		if open != nil {
			return domain.ErrSessionOpen
		}
		if customerID != 0 {
			if err := s.assertRowExists(ctx, tx, "customers", customerID, domain.ErrCustomerNotFound); err != nil {
				return err
			}
		}
		return s.repo.InsertHotspot(ctx, tx, &session)
	})
	if err != nil {
		return domain.HotspotSession{}, err
	}

	s.log.Info("hotspot session opened",
		zap.String("session_row_id", session.ID.String()),
		zap.String("username", username),
		zap.String("mac_address", mac),
	)
	return session, nil
}

func (s *Service) RefreshHotspot(ctx context.Context, req domain.RefreshSessionRequest) (domain.HotspotSession, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.HotspotSession{}, err
	}
	if hasNegativeCounter(req.Uptime, req.BytesIn, req.BytesOut) {
		return domain.HotspotSession{}, domain.ErrInvalidCounter
	}

	var session domain.HotspotSession
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindHotspotByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if existing == nil {
			return domain.ErrNotFound
		}
		if !existing.IsActive {
			return domain.ErrSessionClosed
		}

		session = *existing
		applyCounters(&session.Uptime, &session.BytesIn, &session.BytesOut, req.Uptime, req.BytesIn, req.BytesOut)
		if ip := strings.TrimSpace(req.IPAddress); ip != "" {
			session.IPAddress = ip
		}
		session.LastUpdate = time.Now().UTC()
		return s.repo.UpdateHotspot(ctx, tx, &session)
	})
	if err != nil {
		return domain.HotspotSession{}, err
	}
	return session, nil
}

func (s *Service) CloseHotspot(ctx context.Context, req domain.CloseSessionRequest) (domain.HotspotSession, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.HotspotSession{}, err
	}
	if hasNegativeCounter(req.Uptime, req.BytesIn, req.BytesOut) {
		return domain.HotspotSession{}, domain.ErrInvalidCounter
	}

	var session domain.HotspotSession
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindHotspotByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if existing == nil {
			return domain.ErrNotFound
		}
		session = *existing
		if !existing.IsActive {
			return nil
		}

		applyCounters(&session.Uptime, &session.BytesIn, &session.BytesOut, req.Uptime, req.BytesIn, req.BytesOut)
		now := time.Now().UTC()
		end := now
		if end.Before(session.StartTime) {
			end = session.StartTime
		}
		session.IsActive = false
		session.EndTime = &end
		session.LastUpdate = now
		return s.repo.UpdateHotspot(ctx, tx, &session)
	})
	if err != nil {
		return domain.HotspotSession{}, err
	}

	s.log.Info("hotspot session closed",
		zap.String("session_row_id", session.ID.String()),
		zap.String("username", session.Username),
	)
	return session, nil
}

func (s *Service) GetHotspot(ctx context.Context, req domain.GetSessionRequest) (domain.HotspotSession, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.HotspotSession{}, err
	}

	session, err := s.repo.FindHotspotByID(ctx, s.db, id)
	if err != nil {
		return domain.HotspotSession{}, err
	}
	if session == nil {
		return domain.HotspotSession{}, domain.ErrNotFound
	}
	return *session, nil
}

func (s *Service) ListHotspot(ctx context.Context, req domain.ListHotspotRequest) (domain.ListHotspotResponse, error) {
	filter := domain.ListHotspotFilter{
		Username: strings.TrimSpace(req.Username),
		IsActive: req.IsActive,
	}
	if v := strings.TrimSpace(req.MACAddress); v != "" {
		mac, err := normalizeMAC(v)
		if err != nil {
			return domain.ListHotspotResponse{}, domain.ErrInvalidMAC
		}
		filter.MACAddress = mac
	}
	if v := strings.TrimSpace(req.CustomerID); v != "" {
		id, err := snowflake.ParseString(v)
		if err != nil {
			return domain.ListHotspotResponse{}, domain.ErrInvalidID
		}
		filter.CustomerID = id
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	sessions, err := s.repo.ListHotspot(ctx, s.db, filter, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  int(pageSize),
	})
	if err != nil {
		return domain.ListHotspotResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(sessions, pageSize, func(session *domain.HotspotSession) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        session.ID.String(),
			CreatedAt: session.StartTime.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo.HasMore {
		sessions = sessions[:pageSize]
	}

	resp := domain.ListHotspotResponse{
		Sessions: make([]domain.HotspotSession, 0, len(sessions)),
	}
	for _, session := range sessions {
		if session == nil {
			continue
		}
		resp.Sessions = append(resp.Sessions, *session)
	}
	resp.PageInfo = *pageInfo
	return resp, nil
}

func (s *Service) CloseStale(ctx context.Context, now time.Time) (int64, error) {
	cfg := s.dispatch.Get()
	cutoff := now.Add(-cfg.StaleSessionCutoff)
	batch := cfg.ExpiryBatchSize
	if batch <= 0 {
		batch = 100
	}

	var pppoeClosed, hotspotClosed int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stale, err := s.repo.ClaimStalePPPoE(ctx, tx, cutoff, batch)
		if err != nil {
			return err
		}
		ids := make([]snowflake.ID, 0, len(stale))
		for _, session := range stale {
			ids = append(ids, session.ID)
		}
		pppoeClosed, err = s.repo.CloseStalePPPoE(ctx, tx, ids)
		return err
	})
	if err != nil {
		return 0, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stale, err := s.repo.ClaimStaleHotspot(ctx, tx, cutoff, batch)
		if err != nil {
			return err
		}
		ids := make([]snowflake.ID, 0, len(stale))
		for _, session := range stale {
			ids = append(ids, session.ID)
		}
		hotspotClosed, err = s.repo.CloseStaleHotspot(ctx, tx, ids)
		return err
	})
	if err != nil {
		return pppoeClosed, err
	}

	total := pppoeClosed + hotspotClosed
	if total > 0 {
		s.log.Info("closed stale sessions",
			zap.Int64("pppoe", pppoeClosed),
			zap.Int64("hotspot", hotspotClosed),
		)
	}
	return total, nil
}

func (s *Service) assertRowExists(ctx context.Context, tx *gorm.DB, table string, id snowflake.ID, missing error) error {
	var count int64
	if err := tx.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM `+table+` WHERE id = ?`, id,
	).Scan(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return missing
	}
	return nil
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

// normalizeMAC validates and uppercases a client MAC address.
func normalizeMAC(v string) (string, error) {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" || len(trimmed) > macMaxLen {
		return "", domain.ErrInvalidMAC
	}
	if _, err := net.ParseMAC(trimmed); err != nil {
		return "", domain.ErrInvalidMAC
	}
	return strings.ToUpper(trimmed), nil
}

func hasNegativeCounter(values ...*int64) bool {
	for _, v := range values {
		if v != nil && *v < 0 {
			return true
		}
	}
	return false
}

func applyCounters(uptime, bytesIn, bytesOut *int64, newUptime, newBytesIn, newBytesOut *int64) {
	if newUptime != nil {
		*uptime = *newUptime
	}
	if newBytesIn != nil {
		*bytesIn = *newBytesIn
	}
	if newBytesOut != nil {
		*bytesOut = *newBytesOut
	}
}
