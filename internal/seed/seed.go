// Package seed fills a fresh database with the rows the platform needs
// to be usable on first boot. Every function is idempotent and never
// overwrites rows an operator has edited.
package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	identitydomain "github.com/arusnet/arus/internal/identity/domain"
	"github.com/arusnet/arus/internal/identity/password"
	notificationdomain "github.com/arusnet/arus/internal/notification/domain"
	sysconfigdomain "github.com/arusnet/arus/internal/sysconfig/domain"
)

const (
	defaultAdminUsername = "admin"
	defaultAdminEmail    = "admin@arusnet.id"
	defaultAdminName     = "Administrator"
	defaultAdminPassword = "admin"
)

// EnsureDefaultAdmin creates the bootstrap admin account when no row
// with its username exists. The password is meant to be changed on
// first login; deployments that provision accounts out of band disable
// this through BOOTSTRAP_DEFAULT_ADMIN.
func EnsureDefaultAdmin(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user identitydomain.User
		err := tx.WithContext(ctx).
			Where("username = ?", defaultAdminUsername).
			First(&user).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		hashed, err := password.Hash(defaultAdminPassword)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		user = identitydomain.User{
			ID:           node.Generate(),
			Username:     defaultAdminUsername,
			Email:        defaultAdminEmail,
			PasswordHash: hashed,
			FullName:     defaultAdminName,
			Role:         identitydomain.RoleAdmin,
			IsActive:     true,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		return tx.WithContext(ctx).Create(&user).Error
	})
}

// EnsureDefaultTemplates seeds the notification templates the billing
// flows reference by name. Existing templates are left as stored, so an
// operator's wording survives restarts.
func EnsureDefaultTemplates(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	defaults := []notificationdomain.NotificationTemplate{
		{
			Name:             "invoice_created",
			NotificationType: notificationdomain.NotificationTypeEmail,
			Subject:          "Tagihan {{.invoice_number}}",
			Template: "Halo {{.customer_name}},\n\n" +
				"Tagihan {{.invoice_number}} sebesar {{.amount}} telah diterbitkan. " +
				"Mohon selesaikan pembayaran sebelum {{.due_date}}.\n\n" +
				"Terima kasih.",
		},
		{
			Name:             "invoice_due",
			NotificationType: notificationdomain.NotificationTypeWhatsApp,
			Template: "Pengingat: tagihan {{.invoice_number}} sebesar {{.amount}} " +
				"jatuh tempo pada {{.due_date}}. Abaikan pesan ini jika Anda sudah membayar.",
		},
		{
			Name:             "payment_received",
			NotificationType: notificationdomain.NotificationTypeEmail,
			Subject:          "Pembayaran {{.invoice_number}} diterima",
			Template: "Halo {{.customer_name}},\n\n" +
				"Pembayaran tagihan {{.invoice_number}} sebesar {{.amount}} telah kami terima. " +
				"Layanan Anda tetap aktif.\n\n" +
				"Terima kasih.",
		},
		{
			Name:             "subscription_expired",
			NotificationType: notificationdomain.NotificationTypeWhatsApp,
			Template: "Layanan internet Anda berakhir pada {{.end_date}}. " +
				"Hubungi kami untuk perpanjangan paket.",
		},
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, tpl := range defaults {
			if err := ensureTemplateTx(ctx, tx, node, tpl); err != nil {
				return err
			}
		}
		return nil
	})
}

func ensureTemplateTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, tpl notificationdomain.NotificationTemplate) error {
	var existing notificationdomain.NotificationTemplate
	err := tx.WithContext(ctx).Where("name = ?", tpl.Name).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	now := time.Now().UTC()
	tpl.ID = node.Generate()
	tpl.IsActive = true
	tpl.CreatedAt = now
	tpl.UpdatedAt = now
	return tx.WithContext(ctx).Create(&tpl).Error
}

// EnsureDefaultSettings registers the branding keys invoice rendering
// reads. The address and email start blank on purpose: the keys showing
// up in the settings listing is what tells an operator they exist.
func EnsureDefaultSettings(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	defaults := []sysconfigdomain.SystemConfiguration{
		{
			Key:         "company_name",
			Value:       "ArusNet",
			Description: "Nama ISP pada tagihan dan kwitansi",
		},
		{
			Key:         "company_address",
			Value:       "",
			Description: "Alamat ISP pada tagihan dan kwitansi",
		},
		{
			Key:         "company_email",
			Value:       "",
			Description: "Alamat email ISP pada tagihan dan kwitansi",
		},
		{
			Key:         "invoice_payment_note",
			Value:       "Pembayaran melalui tautan Xendit pada email tagihan.",
			Description: "Catatan pembayaran di bagian bawah tagihan",
		},
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, setting := range defaults {
			if err := ensureSettingTx(ctx, tx, node, setting); err != nil {
				return err
			}
		}
		return nil
	})
}

func ensureSettingTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, setting sysconfigdomain.SystemConfiguration) error {
	var existing sysconfigdomain.SystemConfiguration
	err := tx.WithContext(ctx).Where("key = ?", setting.Key).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	setting.ID = node.Generate()
	setting.UpdatedAt = time.Now().UTC()
	return tx.WithContext(ctx).Create(&setting).Error
}
