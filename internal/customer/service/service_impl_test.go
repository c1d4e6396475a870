package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/arusnet/arus/internal/customer/domain"
	"github.com/arusnet/arus/internal/customer/repository"
	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupCustomerService(t *testing.T) (domain.Service, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&domain.Customer{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
	})
	return svc, db
}

func TestCreateGeneratesCustomerCode(t *testing.T) {
	svc, _ := setupCustomerService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, domain.CreateCustomerRequest{
		Name:           "Budi Santoso",
		Email:          "budi@example.com",
		ConnectionType: "pppoe",
	})
	require.NoError(t, err)

	assert.Equal(t, "budi-santoso", created.CustomerCode)
	assert.True(t, created.IsActive)
	assert.NotZero(t, created.ID)
}

func TestCreateCodeCollisionAddsSuffix(t *testing.T) {
	svc, _ := setupCustomerService(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, domain.CreateCustomerRequest{
		Name:           "Budi Santoso",
		ConnectionType: "pppoe",
	})
	require.NoError(t, err)

	second, err := svc.Create(ctx, domain.CreateCustomerRequest{
		Name:           "Budi Santoso",
		ConnectionType: "hotspot",
	})
	require.NoError(t, err)

	assert.Equal(t, "budi-santoso", first.CustomerCode)
	assert.Equal(t, "budi-santoso-2", second.CustomerCode)
}

func TestCreateExplicitCodeConflict(t *testing.T) {
	svc, _ := setupCustomerService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, domain.CreateCustomerRequest{
		CustomerCode:   "warnet-01",
		Name:           "Warnet Sudirman",
		ConnectionType: "hotspot",
	})
	require.NoError(t, err)

	_, err = svc.Create(ctx, domain.CreateCustomerRequest{
		CustomerCode:   "warnet-01",
		Name:           "Warnet Thamrin",
		ConnectionType: "hotspot",
	})
	assert.ErrorIs(t, err, domain.ErrCodeTaken)
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	svc, _ := setupCustomerService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, domain.CreateCustomerRequest{
		Name:           "  ",
		ConnectionType: "pppoe",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidName)

	_, err = svc.Create(ctx, domain.CreateCustomerRequest{
		Name:           "Budi",
		ConnectionType: "fiber",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidConnectionType)

	_, err = svc.Create(ctx, domain.CreateCustomerRequest{
		Name:           "Budi",
		Email:          "not-an-email",
		ConnectionType: "pppoe",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidEmail)
}

func TestUpdatePatchesOnlyProvidedFields(t *testing.T) {
	svc, _ := setupCustomerService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, domain.CreateCustomerRequest{
		Name:           "Siti Rahma",
		Email:          "siti@example.com",
		Phone:          "0811111111",
		ConnectionType: "pppoe",
	})
	require.NoError(t, err)

	phone := "0822222222"
	inactive := false
	updated, err := svc.Update(ctx, domain.UpdateCustomerRequest{
		ID:       created.ID.String(),
		Phone:    &phone,
		IsActive: &inactive,
	})
	require.NoError(t, err)

	assert.Equal(t, "Siti Rahma", updated.Name)
	assert.Equal(t, "siti@example.com", updated.Email)
	assert.Equal(t, phone, updated.Phone)
	assert.False(t, updated.IsActive)

	got, err := svc.GetByID(ctx, domain.GetCustomerRequest{ID: created.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, phone, got.Phone)
	assert.False(t, got.IsActive)
}

func TestGetByIDNotFound(t *testing.T) {
	svc, _ := setupCustomerService(t)
	ctx := context.Background()

	_, err := svc.GetByID(ctx, domain.GetCustomerRequest{ID: "123456789"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.GetByID(ctx, domain.GetCustomerRequest{ID: "abc"})
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}

func TestListFiltersAndPaginates(t *testing.T) {
	svc, _ := setupCustomerService(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		connType := "pppoe"
		if i%2 == 1 {
			connType = "hotspot"
		}
		_, err := svc.Create(ctx, domain.CreateCustomerRequest{
			Name:           fmt.Sprintf("Customer %02d", i),
			ConnectionType: connType,
		})
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)
	}

	resp, err := svc.List(ctx, domain.ListCustomerRequest{ConnectionType: "pppoe"})
	require.NoError(t, err)
	assert.Len(t, resp.Customers, 3)
	for _, c := range resp.Customers {
		assert.Equal(t, domain.ConnectionTypePPPoE, c.ConnectionType)
	}

	page, err := svc.List(ctx, domain.ListCustomerRequest{PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, page.Customers, 2)
	assert.True(t, page.HasMore)
	assert.NotEmpty(t, page.NextPageToken)

	all, err := svc.List(ctx, domain.ListCustomerRequest{PageSize: 10})
	require.NoError(t, err)
	assert.Len(t, all.Customers, 5)
	assert.False(t, all.HasMore)
}
