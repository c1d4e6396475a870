package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/arusnet/arus/internal/config"
	"github.com/arusnet/arus/internal/payment/adapters"
	paymentdomain "github.com/arusnet/arus/internal/payment/domain"
	systemlogdomain "github.com/arusnet/arus/internal/systemlog/domain"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Repo       paymentdomain.Repository
	PaymentSvc paymentdomain.Service
	Adapters   *adapters.Registry
	SystemLog  systemlogdomain.Service
	Cfg        config.Config
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	repo       paymentdomain.Repository
	paymentSvc paymentdomain.Service
	adapters   *adapters.Registry
	systemLog  systemlogdomain.Service
	cfg        config.Config
}

func NewService(p Params) paymentdomain.WebhookService {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("payment.webhook"),
		genID:      p.GenID,
		repo:       p.Repo,
		paymentSvc: p.PaymentSvc,
		adapters:   p.Adapters,
		systemLog:  p.SystemLog,
		cfg:        p.Cfg,
	}
}

func (s *Service) IngestWebhook(ctx context.Context, provider string, payload []byte, headers http.Header) error {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" {
		return paymentdomain.ErrInvalidProvider
	}

	entry := s.buildLogEntry(provider, payload, headers)
	if err := s.repo.InsertWebhookLog(ctx, s.db, entry); err != nil {
		return err
	}

	if s.adapters == nil || !s.adapters.ProviderExists(provider) {
		return s.fail(ctx, entry, "unknown_provider", paymentdomain.ErrProviderNotFound)
	}

	adapter, err := s.adapters.NewAdapter(provider, paymentdomain.AdapterConfig{
		Provider: provider,
		Config:   s.adapterConfig(provider),
	})
	if err != nil {
		return s.fail(ctx, entry, "invalid_provider_config", err)
	}

	if err := adapter.Verify(ctx, payload, headers); err != nil {
		return s.fail(ctx, entry, "invalid_callback_token", paymentdomain.ErrInvalidSignature)
	}

	if !json.Valid(payload) {
		return s.fail(ctx, entry, "invalid_json", paymentdomain.ErrInvalidPayload)
	}

	event, err := adapter.Parse(ctx, payload)
	if err != nil {
		if errors.Is(err, paymentdomain.ErrEventIgnored) {
			return s.succeed(ctx, entry, "event_ignored", nil)
		}
		return s.fail(ctx, entry, "unparsable_event", err)
	}

	if err := s.paymentSvc.ApplyPaymentWebhook(ctx, event); err != nil {
		if errors.Is(err, paymentdomain.ErrEventAlreadyProcessed) {
			return s.succeed(ctx, entry, "already_processed", err)
		}
		return s.fail(ctx, entry, err.Error(), err)
	}

	return s.succeed(ctx, entry, "ok", nil)
}

func (s *Service) buildLogEntry(provider string, payload []byte, headers http.Header) *paymentdomain.WebhookLog {
	stored := datatypes.JSON(payload)
	if !json.Valid(payload) {
		// jsonb rejects malformed bodies; keep them as a JSON string.
		if quoted, err := json.Marshal(string(payload)); err == nil {
			stored = datatypes.JSON(quoted)
		}
	}

	headerMap := datatypes.JSONMap{}
	for key, values := range headers {
		if strings.EqualFold(key, "X-Callback-Token") {
			headerMap[key] = "[redacted]"
			continue
		}
		headerMap[key] = strings.Join(values, ", ")
	}

	var peek struct {
		Status string `json:"status"`
	}
	eventType := ""
	if err := json.Unmarshal(payload, &peek); err == nil {
		eventType = strings.ToLower(strings.TrimSpace(peek.Status))
	}

	return &paymentdomain.WebhookLog{
		ID:        s.genID.Generate(),
		Source:    provider,
		EventType: eventType,
		Payload:   stored,
		Headers:   headerMap,
		CreatedAt: time.Now().UTC(),
	}
}

func (s *Service) adapterConfig(provider string) map[string]any {
	switch provider {
	case "xendit":
		return map[string]any{"callback_token": s.cfg.XenditCallbackToken}
	}
	return map[string]any{}
}

func (s *Service) succeed(ctx context.Context, entry *paymentdomain.WebhookLog, result string, err error) error {
	if markErr := s.repo.MarkWebhookProcessed(ctx, s.db, entry.ID, result, time.Now().UTC()); markErr != nil {
		s.log.Warn("failed to mark webhook processed",
			zap.String("source", entry.Source),
			zap.Error(markErr),
		)
	}
	return err
}

func (s *Service) fail(ctx context.Context, entry *paymentdomain.WebhookLog, result string, err error) error {
	if markErr := s.repo.MarkWebhookFailed(ctx, s.db, entry.ID, result); markErr != nil {
		s.log.Warn("failed to record webhook failure",
			zap.String("source", entry.Source),
			zap.Error(markErr),
		)
	}

	details := err.Error()
	if recordErr := s.systemLog.Record(ctx, systemlogdomain.RecordLogRequest{
		Level:        systemlogdomain.LogLevelError,
		Source:       "payment.webhook",
		Message:      "webhook processing failed: " + result,
		ErrorDetails: &details,
	}); recordErr != nil {
		s.log.Warn("failed to write system log for webhook failure", zap.Error(recordErr))
	}

	s.log.Warn("webhook rejected",
		zap.String("source", entry.Source),
		zap.String("result", result),
		zap.Error(err),
	)
	return err
}
