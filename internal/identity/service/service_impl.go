package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	auditdomain "github.com/arusnet/arus/internal/audit/domain"
	"github.com/arusnet/arus/internal/authctx"
	"github.com/arusnet/arus/internal/config"
	"github.com/arusnet/arus/internal/identity/domain"
	"github.com/arusnet/arus/internal/identity/password"
	"github.com/arusnet/arus/internal/identity/token"
	"github.com/arusnet/arus/pkg/db"
	"github.com/arusnet/arus/pkg/db/pagination"
)

const (
	minPasswordLength = 8
	maxUsernameLength = 50
	defaultTokenTTL   = 24 * time.Hour
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
	Cfg   config.Config
	Audit auditdomain.Service
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
	cfg   config.Config
	audit auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("identity.service"),
		genID: p.GenID,
		repo:  p.Repo,
		cfg:   p.Cfg,
		audit: p.Audit,
	}
}

func (s *Service) Login(ctx context.Context, req domain.LoginRequest) (domain.LoginResult, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		return domain.LoginResult{}, domain.ErrInvalidCredentials
	}

	user, err := s.repo.FindUserByUsername(ctx, s.db, username)
	if err != nil {
		return domain.LoginResult{}, err
	}
	if user == nil || !password.Verify(req.Password, user.PasswordHash) {
		return domain.LoginResult{}, domain.ErrInvalidCredentials
	}
	if !user.IsActive {
		return domain.LoginResult{}, domain.ErrUserInactive
	}

	now := time.Now().UTC()
	signed, expiresAt, err := token.Issue(s.cfg.AuthJWTSecret, s.tokenTTL(), user, now)
	if err != nil {
		return domain.LoginResult{}, err
	}

	row := domain.JWTToken{
		ID:        s.genID.Generate(),
		UserID:    user.ID,
		TokenHash: token.HashToken(signed),
		ExpiresAt: expiresAt,
		CreatedAt: now,
	}
	if err := s.repo.InsertToken(ctx, s.db, &row); err != nil {
		return domain.LoginResult{}, err
	}
	if err := s.repo.StampLastLogin(ctx, s.db, user.ID, now); err != nil {
		return domain.LoginResult{}, err
	}
	user.LastLogin = &now
	user.PasswordHash = ""

	s.log.Info("user logged in",
		zap.String("user_id", user.ID.String()),
		zap.String("username", user.Username),
		zap.String("ip_address", req.IPAddress),
	)

	// Login happens before the auth middleware can attach the actor.
	actorCtx := authctx.WithActor(ctx, authctx.Actor{
		UserID:   user.ID,
		Username: user.Username,
		Role:     string(user.Role),
	})
	s.emitAudit(actorCtx, "auth.login", user.ID.String(), fmt.Sprintf("User %s logged in", user.Username), nil)

	return domain.LoginResult{
		Token:     signed,
		ExpiresAt: expiresAt,
		User:      *user,
	}, nil
}

func (s *Service) Logout(ctx context.Context, rawToken string) error {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return domain.ErrInvalidToken
	}

	row, err := s.repo.FindTokenByHash(ctx, s.db, token.HashToken(rawToken))
	if err != nil {
		return err
	}
	if row == nil {
		return domain.ErrInvalidToken
	}
	if row.IsRevoked {
		return nil
	}

	if err := s.repo.RevokeToken(ctx, s.db, row.ID); err != nil {
		return err
	}
	s.log.Info("user logged out", zap.String("user_id", row.UserID.String()))
	s.emitAudit(ctx, "auth.logout", row.UserID.String(), "User logged out", nil)
	return nil
}

func (s *Service) Authenticate(ctx context.Context, rawToken string) (domain.User, error) {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return domain.User{}, domain.ErrInvalidToken
	}

	_, userID, err := token.Parse(s.cfg.AuthJWTSecret, rawToken)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.User{}, domain.ErrTokenExpired
		}
		return domain.User{}, domain.ErrInvalidToken
	}

	row, err := s.repo.FindTokenByHash(ctx, s.db, token.HashToken(rawToken))
	if err != nil {
		return domain.User{}, err
	}
	if row == nil || row.UserID != userID {
		return domain.User{}, domain.ErrInvalidToken
	}
	if row.IsRevoked {
		return domain.User{}, domain.ErrTokenRevoked
	}
	if !row.ExpiresAt.After(time.Now().UTC()) {
		return domain.User{}, domain.ErrTokenExpired
	}

	user, err := s.repo.FindUserByID(ctx, s.db, row.UserID)
	if err != nil {
		return domain.User{}, err
	}
	if user == nil {
		return domain.User{}, domain.ErrInvalidToken
	}
	if !user.IsActive {
		return domain.User{}, domain.ErrUserInactive
	}
	user.PasswordHash = ""
	return *user, nil
}

func (s *Service) CreateUser(ctx context.Context, req domain.CreateUserRequest) (domain.User, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" || len(username) > maxUsernameLength || strings.ContainsAny(username, " \t") {
		return domain.User{}, domain.ErrInvalidUsername
	}

	email, err := normalizeEmail(req.Email)
	if err != nil {
		return domain.User{}, domain.ErrInvalidEmail
	}
	if len(req.Password) < minPasswordLength {
		return domain.User{}, domain.ErrInvalidPassword
	}
	role := domain.UserRole(strings.ToLower(strings.TrimSpace(req.Role)))
	if !role.Valid() {
		return domain.User{}, domain.ErrInvalidRole
	}

	existing, err := s.repo.FindUserByUsername(ctx, s.db, username)
	if err != nil {
		return domain.User{}, err
	}
	if existing != nil {
		return domain.User{}, domain.ErrUsernameTaken
	}

	hash, err := password.Hash(req.Password)
	if err != nil {
		return domain.User{}, err
	}

	now := time.Now().UTC()
	user := domain.User{
		ID:           s.genID.Generate(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		FullName:     strings.TrimSpace(req.FullName),
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.InsertUser(ctx, s.db, &user); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.User{}, domain.ErrEmailTaken
		}
		return domain.User{}, err
	}

	s.log.Info("user created",
		zap.String("user_id", user.ID.String()),
		zap.String("username", user.Username),
		zap.String("role", string(user.Role)),
	)
	s.emitAudit(ctx, "user.created", user.ID.String(),
		fmt.Sprintf("Created user %s", user.Username),
		map[string]any{"username": user.Username, "role": string(user.Role)},
	)
	return user, nil
}

func (s *Service) UpdateUser(ctx context.Context, req domain.UpdateUserRequest) (domain.User, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.User{}, err
	}

	var updated domain.User
	deactivated := false
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := s.repo.FindUserByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if user == nil {
			return domain.ErrNotFound
		}

		if req.Email != nil {
			email, err := normalizeEmail(*req.Email)
			if err != nil {
				return domain.ErrInvalidEmail
			}
			user.Email = email
		}
		if req.FullName != nil {
			user.FullName = strings.TrimSpace(*req.FullName)
		}
		if req.Role != nil {
			role := domain.UserRole(strings.ToLower(strings.TrimSpace(*req.Role)))
			if !role.Valid() {
				return domain.ErrInvalidRole
			}
			user.Role = role
		}
		if req.Password != nil {
			if len(*req.Password) < minPasswordLength {
				return domain.ErrInvalidPassword
			}
			hash, err := password.Hash(*req.Password)
			if err != nil {
				return err
			}
			user.PasswordHash = hash
		}

		if req.IsActive != nil {
			deactivated = user.IsActive && !*req.IsActive
			user.IsActive = *req.IsActive
		}
		user.UpdatedAt = time.Now().UTC()

		if err := s.repo.UpdateUser(ctx, tx, user); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return domain.ErrEmailTaken
			}
			return err
		}

		// Deactivation must cut existing sessions, not just new logins.
		if deactivated {
			revoked, err := s.repo.RevokeUserTokens(ctx, tx, user.ID)
			if err != nil {
				return err
			}
			s.log.Info("user deactivated",
				zap.String("user_id", user.ID.String()),
				zap.Int64("tokens_revoked", revoked),
			)
		}

		updated = *user
		return nil
	})
	if err != nil {
		return domain.User{}, err
	}

	var metadata map[string]any
	if deactivated {
		metadata = map[string]any{"deactivated": true}
	}
	s.emitAudit(ctx, "user.updated", updated.ID.String(),
		fmt.Sprintf("Updated user %s", updated.Username), metadata)
	return updated, nil
}

func (s *Service) GetByID(ctx context.Context, req domain.GetUserRequest) (domain.User, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.User{}, err
	}

	user, err := s.repo.FindUserByID(ctx, s.db, id)
	if err != nil {
		return domain.User{}, err
	}
	if user == nil {
		return domain.User{}, domain.ErrNotFound
	}
	return *user, nil
}

func (s *Service) List(ctx context.Context, req domain.ListUserRequest) (domain.ListUserResponse, error) {
	filter := domain.ListUserFilter{
		Role:     strings.ToLower(strings.TrimSpace(req.Role)),
		IsActive: req.IsActive,
		Query:    strings.TrimSpace(req.Query),
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	items, err := s.repo.ListUsers(ctx, s.db, filter, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  int(pageSize),
	})
	if err != nil {
		return domain.ListUserResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(user *domain.User) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        user.ID.String(),
			CreatedAt: user.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo.HasMore {
		items = items[:pageSize]
	}

	resp := domain.ListUserResponse{
		Users: make([]domain.User, 0, len(items)),
	}
	for _, item := range items {
		if item == nil {
			continue
		}
		resp.Users = append(resp.Users, *item)
	}
	resp.PageInfo = *pageInfo
	return resp, nil
}

func (s *Service) tokenTTL() time.Duration {
	if s.cfg.AuthTokenTTL > 0 {
		return s.cfg.AuthTokenTTL
	}
	return defaultTokenTTL
}

func (s *Service) emitAudit(ctx context.Context, action, userID, description string, metadata map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, action, "user", &userID, description, metadata)
}

func (s *Service) parseID(v string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(v))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func normalizeEmail(v string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(v))
	if err != nil {
		return "", err
	}
	return strings.ToLower(addr.Address), nil
}
