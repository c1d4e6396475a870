// Package scheduler runs the periodic jobs: subscription expiry, the
// invoice overdue sweep, stale-session cleanup and notification
// dispatch. Work is claimed with FOR UPDATE SKIP LOCKED inside the
// domain services, so running more than one instance is safe; the
// optional redis lock only keeps idle replicas from spinning on the
// dispatch queue.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/arusnet/arus/internal/clock"
	"github.com/arusnet/arus/internal/config"
	invoicedomain "github.com/arusnet/arus/internal/invoice/domain"
	notificationdomain "github.com/arusnet/arus/internal/notification/domain"
	obsmetrics "github.com/arusnet/arus/internal/observability/metrics"
	"github.com/arusnet/arus/internal/providers/email"
	"github.com/arusnet/arus/internal/providers/telegram"
	"github.com/arusnet/arus/internal/providers/whatsapp"
	"github.com/arusnet/arus/internal/ratelimit"
	sessiondomain "github.com/arusnet/arus/internal/session/domain"
	subscriptiondomain "github.com/arusnet/arus/internal/subscription/domain"
	systemlogdomain "github.com/arusnet/arus/internal/systemlog/domain"
)

var ErrInvalidConfig = errors.New("scheduler: missing dependency")

var errJobPanicked = errors.New("job panicked")

// dispatchLockKey serializes notification dispatch across replicas.
const dispatchLockKey = "arus:scheduler:dispatch"

const panicDetailMax = 4000

type Params struct {
	fx.In

	Log             *zap.Logger
	SubscriptionSvc subscriptiondomain.Service
	InvoiceSvc      invoicedomain.Service
	SessionSvc      sessiondomain.Service
	NotificationSvc notificationdomain.Service
	SystemLogSvc    systemlogdomain.Service

	Email    email.Provider
	Telegram telegram.Provider
	WhatsApp whatsapp.Provider

	Dispatch *config.DispatchConfigHolder
	Locker   *ratelimit.Locker   `optional:"true"`
	Metrics  *obsmetrics.Metrics `optional:"true"`
	GenID    *snowflake.Node
	Clock    clock.Clock
	Config   Config `optional:"true"`
}

type Scheduler struct {
	log   *zap.Logger
	cfg   Config
	genID *snowflake.Node
	clock clock.Clock

	subscriptionSvc subscriptiondomain.Service
	invoiceSvc      invoicedomain.Service
	sessionSvc      sessiondomain.Service
	notificationSvc notificationdomain.Service
	systemLogSvc    systemlogdomain.Service

	email    email.Provider
	telegram telegram.Provider
	whatsapp whatsapp.Provider

	dispatch *config.DispatchConfigHolder
	locker   *ratelimit.Locker
	metrics  *obsmetrics.Metrics
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.SubscriptionSvc == nil || p.InvoiceSvc == nil || p.SessionSvc == nil || p.NotificationSvc == nil || p.SystemLogSvc == nil || p.Email == nil || p.Telegram == nil || p.WhatsApp == nil || p.Dispatch == nil || p.GenID == nil || p.Clock == nil {
		return nil, ErrInvalidConfig
	}
	cfg := p.Config.withDefaults()
	return &Scheduler{
		log:             p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:             cfg,
		genID:           p.GenID,
		clock:           p.Clock,
		subscriptionSvc: p.SubscriptionSvc,
		invoiceSvc:      p.InvoiceSvc,
		sessionSvc:      p.SessionSvc,
		notificationSvc: p.NotificationSvc,
		systemLogSvc:    p.SystemLogSvc,
		email:           p.Email,
		telegram:        p.Telegram,
		whatsapp:        p.WhatsApp,
		dispatch:        p.Dispatch,
		locker:          p.Locker,
		metrics:         p.Metrics,
	}, nil
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	batchSize int,
	timeout time.Duration,
	fn func(ctx context.Context) error,
) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	ctx, run, owner := s.ensureJobRun(ctx, name, batchSize)
	if owner {
		s.logJobStart(ctx, run)
	}
	log := s.logger(ctx).With(
		zap.String("job", name),
		zap.String("run_id", run.runID),
	)
	schedMetrics := obsmetrics.Scheduler()
	schedMetrics.IncJobRun(name)

	err := s.invoke(ctx, name, fn)
	schedMetrics.ObserveJobDuration(name, time.Since(start))
	if owner {
		if err != nil && run != nil && run.errorCount == 0 {
			run.IncError()
		}
		s.logJobFinish(ctx, run)
	}
	if err == nil {
		return nil
	}

	// Hitting the per-run deadline is expected under load; the next
	// tick picks the remaining work back up.
	isTimeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
	if isTimeout {
		schedMetrics.IncJobTimeout(name)
	}
	schedMetrics.IncJobError(name, err)
	if isTimeout {
		log.Warn("job timed out",
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}

	if !errors.Is(err, errJobPanicked) {
		s.reportJobFailure(name, err)
	}
	return fmt.Errorf("%s: %w", name, err)
}

// invoke turns a panic inside a job into an error so one poisoned
// batch cannot take down the run loop.
func (s *Scheduler) invoke(ctx context.Context, name string, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errJobPanicked, r)
			s.reportJobPanic(name, r, debug.Stack())
		}
	}()
	return fn(ctx)
}

// reportJobFailure files the failure under system_logs so it shows up
// in the ops log view, not just in stdout. A fresh context because the
// job context is usually already dead at this point.
func (s *Scheduler) reportJobFailure(name string, jobErr error) {
	if s.systemLogSvc == nil || jobErr == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	detail := jobErr.Error()
	if err := s.systemLogSvc.Record(ctx, systemlogdomain.RecordLogRequest{
		Level:        systemlogdomain.LogLevelError,
		Source:       "scheduler",
		Message:      fmt.Sprintf("job %s failed", name),
		ErrorDetails: &detail,
	}); err != nil {
		s.log.Warn("record job failure", zap.String("job", name), zap.Error(err))
	}
}

func (s *Scheduler) reportJobPanic(name string, recovered any, stack []byte) {
	s.log.Error("job panicked",
		zap.String("job", name),
		zap.Any("panic", recovered),
		zap.ByteString("stack", stack),
	)
	if s.systemLogSvc == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	detail := truncateDetail(fmt.Sprintf("%v\n%s", recovered, stack), panicDetailMax)
	if err := s.systemLogSvc.Record(ctx, systemlogdomain.RecordLogRequest{
		Level:        systemlogdomain.LogLevelCritical,
		Source:       "scheduler",
		Message:      fmt.Sprintf("job %s panicked", name),
		ErrorDetails: &detail,
	}); err != nil {
		s.log.Warn("record job panic", zap.String("job", name), zap.Error(err))
	}
}

func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error
	dispatchCfg := s.dispatch.Get()

	jobs := []struct {
		Name    string
		Enabled bool
		Run     func(context.Context) error
	}{
		{"expire_subscriptions", s.isJobEnabled("expire_subscriptions"), func(ctx context.Context) error {
			return s.runJob(ctx, "expire_subscriptions", dispatchCfg.ExpiryBatchSize, s.cfg.JobTimeout, s.ExpireSubscriptionsJob)
		}},
		{"expire_overdue_invoices", s.isJobEnabled("expire_overdue_invoices"), func(ctx context.Context) error {
			return s.runJob(ctx, "expire_overdue_invoices", dispatchCfg.ExpiryBatchSize, s.cfg.JobTimeout, s.ExpireOverdueInvoicesJob)
		}},
		{"close_stale_sessions", s.isJobEnabled("close_stale_sessions"), func(ctx context.Context) error {
			return s.runJob(ctx, "close_stale_sessions", 0, s.cfg.JobTimeout, s.CloseStaleSessionsJob)
		}},
		{"dispatch_notifications", s.isJobEnabled("dispatch_notifications"), func(ctx context.Context) error {
			return s.runJob(ctx, "dispatch_notifications", dispatchCfg.DequeueBatchSize, s.cfg.JobTimeout, s.DispatchNotificationsJob)
		}},
	}

	for _, job := range jobs {
		if job.Enabled {
			err = errors.Join(err, job.Run(parent))
		}
	}

	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()
	nextRun := s.clock.Now().Add(s.cfg.RunInterval)
	schedMetrics := obsmetrics.Scheduler()

	for {
		runLag := time.Since(nextRun)
		if runLag > 0 {
			schedMetrics.ObserveRunLoopLag(runLag)
		}
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}
		nextRun = nextRun.Add(s.cfg.RunInterval)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) isJobEnabled(jobName string) bool {
	// An empty EnabledJobs list enables everything (monolith mode).
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if strings.EqualFold(enabled, jobName) {
			return true
		}
	}
	return false
}

// ExpireSubscriptionsJob deactivates subscriptions whose end_date has
// passed, batch by batch until the due set is drained.
func (s *Scheduler) ExpireSubscriptionsJob(ctx context.Context) error {
	batchSize := s.dispatch.Get().ExpiryBatchSize
	ctx, run, owner := s.ensureJobRun(ctx, "expire_subscriptions", batchSize)
	if owner {
		s.logJobStart(ctx, run)
		defer s.logJobFinish(ctx, run)
	}
	now := s.clock.Now()

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		expired, err := s.subscriptionSvc.ExpireDue(ctx, now, batchSize)
		if err != nil {
			s.logSchedulerError(ctx, run, "scheduler.subscription.expire.failed", "expire_subscriptions", err)
			return err
		}
		run.AddProcessed(expired)
		obsmetrics.Scheduler().AddBatchProcessed("expire_subscriptions", "subscriptions", expired)
		if expired == 0 {
			break
		}
	}
	return nil
}

// ExpireOverdueInvoicesJob flips pending invoices past their due date
// to expired so billing state matches what the gateway would report.
func (s *Scheduler) ExpireOverdueInvoicesJob(ctx context.Context) error {
	batchSize := s.dispatch.Get().ExpiryBatchSize
	ctx, run, owner := s.ensureJobRun(ctx, "expire_overdue_invoices", batchSize)
	if owner {
		s.logJobStart(ctx, run)
		defer s.logJobFinish(ctx, run)
	}
	now := s.clock.Now()

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		expired, err := s.invoiceSvc.ExpireOverdue(ctx, now, batchSize)
		if err != nil {
			s.logSchedulerError(ctx, run, "scheduler.invoice.expire.failed", "expire_overdue_invoices", err)
			return err
		}
		run.AddProcessed(expired)
		obsmetrics.Scheduler().AddBatchProcessed("expire_overdue_invoices", "invoices", expired)
		if expired == 0 {
			break
		}
	}
	return nil
}

// CloseStaleSessionsJob force-closes PPPoE and hotspot sessions whose
// accounting updates stopped arriving. The cutoff comes from the
// dispatch config.
func (s *Scheduler) CloseStaleSessionsJob(ctx context.Context) error {
	ctx, run, owner := s.ensureJobRun(ctx, "close_stale_sessions", 0)
	if owner {
		s.logJobStart(ctx, run)
		defer s.logJobFinish(ctx, run)
	}
	now := s.clock.Now()

	closed, err := s.sessionSvc.CloseStale(ctx, now)
	if err != nil {
		s.logSchedulerError(ctx, run, "scheduler.session.sweep.failed", "close_stale_sessions", err)
		return err
	}
	run.AddProcessed(int(closed))
	obsmetrics.Scheduler().AddBatchProcessed("close_stale_sessions", "sessions", int(closed))
	return nil
}

// DispatchNotificationsJob claims one batch of due queue rows and hands
// each to its channel provider. A single batch per tick: failed rows
// stay pending with scheduled_at unchanged, so draining the queue in a
// loop would burn through the retry ceiling inside one run.
func (s *Scheduler) DispatchNotificationsJob(ctx context.Context) error {
	batchSize := s.dispatch.Get().DequeueBatchSize
	ctx, run, owner := s.ensureJobRun(ctx, "dispatch_notifications", batchSize)
	if owner {
		s.logJobStart(ctx, run)
		defer s.logJobFinish(ctx, run)
	}

	if s.locker != nil {
		token, ok, err := s.locker.TryLock(ctx, dispatchLockKey, s.cfg.LockTTL)
		if err != nil {
			s.logSchedulerError(ctx, run, "scheduler.dispatch.lock.failed", "dispatch_notifications", err)
			return err
		}
		if !ok {
			s.logger(ctx).Debug("dispatch lock held elsewhere",
				zap.String("job", "dispatch_notifications"),
			)
			return nil
		}
		defer func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.locker.Release(releaseCtx, dispatchLockKey, token); err != nil {
				s.log.Warn("release dispatch lock", zap.Error(err))
			}
		}()
	}

	now := s.clock.Now()
	items, err := s.notificationSvc.DequeueReady(ctx, now, batchSize)
	if err != nil {
		s.logSchedulerError(ctx, run, "scheduler.dispatch.dequeue.failed", "dispatch_notifications", err)
		return err
	}

	var jobErr error
	for _, item := range items {
		if ctx.Err() != nil {
			return errors.Join(jobErr, ctx.Err())
		}

		sendErr := s.deliver(ctx, item)
		outcome := "sent"
		if sendErr != nil {
			outcome = "failed"
			s.logSchedulerError(ctx, run, "scheduler.dispatch.send.failed", "dispatch_notifications", sendErr,
				zap.String("notification_id", idString(item.ID)),
				zap.String("notification_type", string(item.NotificationType)),
			)
		}
		if s.metrics != nil {
			s.metrics.RecordNotificationAttempt(ctx, string(item.NotificationType), outcome)
		}

		if err := s.notificationSvc.RecordAttempt(ctx, item.ID, sendErr); err != nil {
			jobErr = errors.Join(jobErr, err)
			s.logSchedulerError(ctx, run, "scheduler.dispatch.record.failed", "dispatch_notifications", err,
				zap.String("notification_id", idString(item.ID)),
			)
			continue
		}
		if sendErr == nil {
			run.AddProcessed(1)
		}
	}
	obsmetrics.Scheduler().AddBatchProcessed("dispatch_notifications", "notifications", len(items))

	return jobErr
}

func (s *Scheduler) deliver(ctx context.Context, item notificationdomain.NotificationQueue) error {
	switch item.NotificationType {
	case notificationdomain.NotificationTypeEmail:
		return s.email.Send(ctx, item.Recipient, item.Subject, item.Message)
	case notificationdomain.NotificationTypeTelegram:
		return s.telegram.SendMessage(ctx, item.Recipient, item.Message)
	case notificationdomain.NotificationTypeWhatsApp:
		return s.whatsapp.SendMessage(ctx, item.Recipient, item.Message)
	default:
		return fmt.Errorf("unsupported notification type %q", item.NotificationType)
	}
}

func truncateDetail(value string, max int) string {
	if len(value) <= max {
		return value
	}
	return value[:max]
}
