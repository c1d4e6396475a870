// Package testing backdates rows so scheduler sweeps pick them up
// without waiting out real intervals. Test and staging use only.
package testing

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	invoicedomain "github.com/arusnet/arus/internal/invoice/domain"
	notificationdomain "github.com/arusnet/arus/internal/notification/domain"
)

// TimeAccelerator rewrites dates on live rows so the next scheduler
// tick treats them as due.
type TimeAccelerator struct {
	db *gorm.DB
}

func NewTimeAccelerator(db *gorm.DB) *TimeAccelerator {
	return &TimeAccelerator{db: db}
}

// ExpireSubscription moves end_date into the past so the expiry sweep
// claims the subscription on its next run.
func (ta *TimeAccelerator) ExpireSubscription(ctx context.Context, subscriptionID snowflake.ID) error {
	now := time.Now().UTC()
	return ta.db.WithContext(ctx).Exec(
		`UPDATE customer_subscriptions
		 SET end_date = ?, updated_at = ?
		 WHERE id = ? AND is_active = ?`,
		now.Add(-1*time.Minute),
		now,
		subscriptionID,
		true,
	).Error
}

// OverdueInvoice backdates due_date on a pending invoice.
func (ta *TimeAccelerator) OverdueInvoice(ctx context.Context, invoiceID snowflake.ID) error {
	now := time.Now().UTC()
	return ta.db.WithContext(ctx).Exec(
		`UPDATE invoices
		 SET due_date = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		now.Add(-1*time.Minute),
		now,
		invoiceID,
		invoicedomain.InvoiceStatusPending,
	).Error
}

// OverdueAllPendingInvoices backdates every pending invoice and returns
// how many rows it touched.
func (ta *TimeAccelerator) OverdueAllPendingInvoices(ctx context.Context) (int64, error) {
	now := time.Now().UTC()
	result := ta.db.WithContext(ctx).Exec(
		`UPDATE invoices
		 SET due_date = ?, updated_at = ?
		 WHERE status = ? AND due_date > ?`,
		now.Add(-1*time.Minute),
		now,
		invoicedomain.InvoiceStatusPending,
		now,
	)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// ReleaseNotification pulls scheduled_at forward so the dispatcher
// sends a deferred queue row immediately.
func (ta *TimeAccelerator) ReleaseNotification(ctx context.Context, notificationID snowflake.ID) error {
	now := time.Now().UTC()
	return ta.db.WithContext(ctx).Exec(
		`UPDATE notification_queue
		 SET scheduled_at = ?
		 WHERE id = ? AND status = ?`,
		now.Add(-1*time.Minute),
		notificationID,
		notificationdomain.NotificationStatusPending,
	).Error
}

// AgeSessions pushes last_update on all active sessions past the stale
// cutoff so the sweep closes them. Returns how many rows were aged.
func (ta *TimeAccelerator) AgeSessions(ctx context.Context, olderThan time.Duration) (int64, error) {
	stale := time.Now().UTC().Add(-olderThan)
	total := int64(0)
	for _, table := range []string{"pppoe_sessions", "hotspot_sessions"} {
		result := ta.db.WithContext(ctx).Exec(
			`UPDATE `+table+`
			 SET last_update = ?
			 WHERE is_active = ?`,
			stale,
			true,
		)
		if result.Error != nil {
			return total, result.Error
		}
		total += result.RowsAffected
	}
	return total, nil
}

// QueueDepth reports pending queue rows, for asserting dispatch
// progress in tests.
func (ta *TimeAccelerator) QueueDepth(ctx context.Context) (int64, error) {
	var count int64
	err := ta.db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM notification_queue WHERE status = ?`,
		notificationdomain.NotificationStatusPending,
	).Scan(&count).Error
	return count, err
}
