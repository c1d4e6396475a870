package service

import (
	"context"
	"testing"

	"github.com/arusnet/arus/internal/internetpackage/domain"
	"github.com/arusnet/arus/internal/internetpackage/repository"
	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupPackageService(t *testing.T) (domain.Service, *gorm.DB, *snowflake.Node) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&domain.InternetPackage{}))
	require.NoError(t, db.Exec(`CREATE TABLE customer_subscriptions (
		id BIGINT PRIMARY KEY,
		customer_id BIGINT NOT NULL,
		package_id BIGINT NOT NULL,
		start_date DATETIME NOT NULL,
		end_date DATETIME NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT true,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`).Error)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
	})
	return svc, db, node
}

func TestCreateDefaultsValidity(t *testing.T) {
	svc, _, _ := setupPackageService(t)
	ctx := context.Background()

	pkg, err := svc.Create(ctx, domain.CreatePackageRequest{
		Name:           "Home 20M",
		ConnectionType: "pppoe",
		BandwidthUp:    5,
		BandwidthDown:  20,
		Price:          250000,
	})
	require.NoError(t, err)

	assert.Equal(t, 30, pkg.ValidityDays)
	assert.True(t, pkg.IsActive)
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	svc, _, _ := setupPackageService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, domain.CreatePackageRequest{
		Name:           "Home 20M",
		ConnectionType: "pppoe",
		BandwidthUp:    0,
		BandwidthDown:  20,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidBandwidth)

	_, err = svc.Create(ctx, domain.CreatePackageRequest{
		Name:           "Home 20M",
		ConnectionType: "dsl",
		BandwidthUp:    5,
		BandwidthDown:  20,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidConnectionType)

	_, err = svc.Create(ctx, domain.CreatePackageRequest{
		Name:           "Home 20M",
		ConnectionType: "pppoe",
		BandwidthUp:    5,
		BandwidthDown:  20,
		ValidityDays:   -7,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidValidity)
}

func TestUpdateTermsBlockedWhileSubscribed(t *testing.T) {
	svc, db, node := setupPackageService(t)
	ctx := context.Background()

	pkg, err := svc.Create(ctx, domain.CreatePackageRequest{
		Name:           "Hotspot Harian",
		ConnectionType: "hotspot",
		BandwidthUp:    2,
		BandwidthDown:  10,
		Price:          5000,
		ValidityDays:   1,
	})
	require.NoError(t, err)

	require.NoError(t, db.Exec(
		`INSERT INTO customer_subscriptions (id, customer_id, package_id, start_date, end_date, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, date('now'), date('now', '+1 day'), ?, date('now'), date('now'))`,
		node.Generate(), node.Generate(), pkg.ID, true,
	).Error)

	newPrice := int64(7500)
	_, err = svc.Update(ctx, domain.UpdatePackageRequest{ID: pkg.ID.String(), Price: &newPrice})
	assert.ErrorIs(t, err, domain.ErrPackageInUse)

	days := 7
	_, err = svc.Update(ctx, domain.UpdatePackageRequest{ID: pkg.ID.String(), ValidityDays: &days})
	assert.ErrorIs(t, err, domain.ErrPackageInUse)

	// Same-value writes are not term changes.
	samePrice := pkg.Price
	_, err = svc.Update(ctx, domain.UpdatePackageRequest{ID: pkg.ID.String(), Price: &samePrice})
	assert.NoError(t, err)

	// Deactivation stays open so the package can be retired.
	inactive := false
	name := "Hotspot Harian (lama)"
	updated, err := svc.Update(ctx, domain.UpdatePackageRequest{
		ID:       pkg.ID.String(),
		Name:     &name,
		IsActive: &inactive,
	})
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
	assert.Equal(t, name, updated.Name)
}

func TestUpdateTermsAllowedOnceSubscriptionEnds(t *testing.T) {
	svc, db, node := setupPackageService(t)
	ctx := context.Background()

	pkg, err := svc.Create(ctx, domain.CreatePackageRequest{
		Name:           "Home 50M",
		ConnectionType: "pppoe",
		BandwidthUp:    10,
		BandwidthDown:  50,
		Price:          400000,
	})
	require.NoError(t, err)

	require.NoError(t, db.Exec(
		`INSERT INTO customer_subscriptions (id, customer_id, package_id, start_date, end_date, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, date('now', '-31 day'), date('now', '-1 day'), ?, date('now'), date('now'))`,
		node.Generate(), node.Generate(), pkg.ID, false,
	).Error)

	newPrice := int64(425000)
	updated, err := svc.Update(ctx, domain.UpdatePackageRequest{ID: pkg.ID.String(), Price: &newPrice})
	require.NoError(t, err)
	assert.Equal(t, newPrice, updated.Price)
}
