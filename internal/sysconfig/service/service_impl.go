package service

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	auditdomain "github.com/arusnet/arus/internal/audit/domain"
	"github.com/arusnet/arus/internal/audit/masking"
	"github.com/arusnet/arus/internal/config"
	"github.com/arusnet/arus/internal/sysconfig/domain"
)

const (
	keyMaxLen         = 100
	valueMaxLen       = 2000
	descriptionMaxLen = 500
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
	db     *gorm.DB
	log    *zap.Logger
	genID  *snowflake.Node
	repo   domain.Repository
	audit  auditdomain.Service
	encKey []byte
}

func New(p Params) domain.Service {
	secret := strings.TrimSpace(p.Cfg.SettingsAESKey)
	var key []byte
	if secret != "" {
		sum := sha256.Sum256([]byte(secret))
		key = sum[:]
	}

	return &Service{
		db:     p.DB,
		log:    p.Log.Named("sysconfig.service"),
		genID:  p.GenID,
		repo:   p.Repo,
		audit:  p.Audit,
		encKey: key,
	}
}

func (s *Service) Put(ctx context.Context, req domain.PutSettingRequest) (domain.SystemConfiguration, error) {
	key := strings.TrimSpace(req.Key)
	if key == "" || len(key) > keyMaxLen || strings.ContainsAny(key, " \t") {
		return domain.SystemConfiguration{}, domain.ErrInvalidKey
	}
	if len([]rune(req.Value)) > valueMaxLen {
		return domain.SystemConfiguration{}, domain.ErrInvalidValue
	}

	var saved domain.SystemConfiguration
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindByKeyForUpdate(ctx, tx, key)
		if err != nil {
			return err
		}

		encrypted := false
		if existing != nil {
			encrypted = existing.IsEncrypted
		}
		if req.Encrypted != nil {
			encrypted = *req.Encrypted
		}

		value := req.Value
		if encrypted {
			sealed, err := s.seal(value)
			if err != nil {
				return err
			}
			value = sealed
		}

		now := time.Now().UTC()
		if existing == nil {
			setting := domain.SystemConfiguration{
				ID:          s.genID.Generate(),
				Key:         key,
				Value:       value,
				IsEncrypted: encrypted,
				UpdatedAt:   now,
			}
			if req.Description != nil {
				setting.Description = truncateDescription(*req.Description)
			}
			if err := s.repo.Insert(ctx, tx, &setting); err != nil {
				return err
			}
			saved = setting
			return nil
		}

		existing.Value = value
		existing.IsEncrypted = encrypted
		if req.Description != nil {
			existing.Description = truncateDescription(*req.Description)
		}
		existing.UpdatedAt = now
		if err := s.repo.Update(ctx, tx, existing); err != nil {
			return err
		}
		saved = *existing
		return nil
	})
	if err != nil {
		return domain.SystemConfiguration{}, err
	}

	s.log.Info("setting saved",
		zap.String("key", key),
		zap.Bool("encrypted", saved.IsEncrypted),
	)

	metadata := map[string]any{"encrypted": saved.IsEncrypted}
	if saved.IsEncrypted {
		metadata["masked_value"] = masking.Secret(req.Value)
	}
	s.emitAudit(ctx, "setting.updated", key, fmt.Sprintf("Updated setting %s", key), metadata)

	// The caller gets the plaintext back regardless of how it is stored.
	saved.Value = req.Value
	return saved, nil
}

func (s *Service) Get(ctx context.Context, req domain.GetSettingRequest) (domain.SystemConfiguration, error) {
	key := strings.TrimSpace(req.Key)
	if key == "" || len(key) > keyMaxLen {
		return domain.SystemConfiguration{}, domain.ErrInvalidKey
	}

	setting, err := s.repo.FindByKey(ctx, s.db, key)
	if err != nil {
		return domain.SystemConfiguration{}, err
	}
	if setting == nil {
		return domain.SystemConfiguration{}, domain.ErrNotFound
	}

	if setting.IsEncrypted {
		plain, err := s.unseal(setting.Value)
		if err != nil {
			return domain.SystemConfiguration{}, err
		}
		setting.Value = plain
	}
	return *setting, nil
}

func (s *Service) List(ctx context.Context) (domain.ListSettingsResponse, error) {
	items, err := s.repo.List(ctx, s.db)
	if err != nil {
		return domain.ListSettingsResponse{}, err
	}

	resp := domain.ListSettingsResponse{Settings: make([]domain.SystemConfiguration, 0, len(items))}
	for _, item := range items {
		if item == nil {
			continue
		}
		setting := *item
		if setting.IsEncrypted {
			plain, err := s.unseal(setting.Value)
			if err != nil {
				// One bad row must not hide the rest of the settings.
				s.log.Warn("failed to unseal setting",
					zap.String("key", setting.Key),
					zap.Error(err),
				)
				setting.Value = ""
			} else {
				setting.Value = plain
			}
		}
		resp.Settings = append(resp.Settings, setting)
	}
	return resp, nil
}

type sealedEnvelope struct {
	Version    int    `json:"version"`
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ciphertext"`
}

func (s *Service) seal(plain string) (string, error) {
	if len(s.encKey) == 0 {
		return "", domain.ErrEncryptionKeyMissing
	}

	block, err := aes.NewCipher(s.encKey)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	ciphertext := gcm.Seal(nil, nonce, []byte(plain), nil)
	out, err := json.Marshal(sealedEnvelope{
		Version:    1,
		Nonce:      base64.RawStdEncoding.EncodeToString(nonce),
		Ciphertext: base64.RawStdEncoding.EncodeToString(ciphertext),
	})
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (s *Service) unseal(stored string) (string, error) {
	if len(s.encKey) == 0 {
		return "", domain.ErrEncryptionKeyMissing
	}

	var envelope sealedEnvelope
	if err := json.Unmarshal([]byte(stored), &envelope); err != nil {
		return "", domain.ErrSealedValue
	}
	if envelope.Version != 1 {
		return "", domain.ErrSealedValue
	}
	nonce, err := base64.RawStdEncoding.DecodeString(envelope.Nonce)
	if err != nil {
		return "", domain.ErrSealedValue
	}
	ciphertext, err := base64.RawStdEncoding.DecodeString(envelope.Ciphertext)
	if err != nil {
		return "", domain.ErrSealedValue
	}

	block, err := aes.NewCipher(s.encKey)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}
	plain, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", domain.ErrSealedValue
	}
	return string(plain), nil
}

func (s *Service) emitAudit(ctx context.Context, action, key, description string, metadata map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, action, "system_configuration", &key, description, metadata)
}

func truncateDescription(v string) string {
	v = strings.TrimSpace(v)
	if runes := []rune(v); len(runes) > descriptionMaxLen {
		return string(runes[:descriptionMaxLen])
	}
	return v
}
