package authorization

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	auditdomain "github.com/arusnet/arus/internal/audit/domain"
	auditrepository "github.com/arusnet/arus/internal/audit/repository"
	auditservice "github.com/arusnet/arus/internal/audit/service"
	"github.com/arusnet/arus/internal/authctx"
)

func setupAuthorization(t *testing.T) (Service, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&auditdomain.ActivityLog{}))

	enforcer, err := NewEnforcer(db)
	require.NoError(t, err)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	audit := auditservice.New(auditservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  auditrepository.Provide(),
	})

	svc := NewService(Params{
		Log:      zap.NewNop(),
		Enforcer: enforcer,
		Audit:    audit,
	})
	return svc, db
}

func actorContext(userID int64, username string, role string) context.Context {
	return authctx.WithActor(context.Background(), authctx.Actor{
		UserID:   snowflake.ID(userID),
		Username: username,
		Role:     role,
	})
}

func TestAdminFullAccess(t *testing.T) {
	svc, _ := setupAuthorization(t)
	ctx := actorContext(7001, "budi", "admin")

	assert.NoError(t, svc.Authorize(ctx, ObjectUser, ActionCreate))
	assert.NoError(t, svc.Authorize(ctx, ObjectSetting, ActionUpdate))
	assert.NoError(t, svc.Authorize(ctx, ObjectCustomer, ActionDelete))
	assert.NoError(t, svc.Authorize(ctx, ObjectSystemLog, ActionView))
	assert.NoError(t, svc.Authorize(ctx, ObjectTraffic, ActionIngest))
}

func TestOperatorBoundaries(t *testing.T) {
	svc, _ := setupAuthorization(t)
	ctx := actorContext(7002, "siti", "operator")

	assert.NoError(t, svc.Authorize(ctx, ObjectCustomer, ActionCreate))
	assert.NoError(t, svc.Authorize(ctx, ObjectDevice, ActionDelete))
	assert.NoError(t, svc.Authorize(ctx, ObjectAlarm, ActionResolve))
	assert.NoError(t, svc.Authorize(ctx, ObjectSubscription, ActionCancel))
	assert.NoError(t, svc.Authorize(ctx, ObjectSetting, ActionView))

	assert.ErrorIs(t, svc.Authorize(ctx, ObjectUser, ActionView), ErrForbidden)
	assert.ErrorIs(t, svc.Authorize(ctx, ObjectUser, ActionCreate), ErrForbidden)
	assert.ErrorIs(t, svc.Authorize(ctx, ObjectSetting, ActionUpdate), ErrForbidden)
	assert.ErrorIs(t, svc.Authorize(ctx, ObjectActivityLog, ActionView), ErrForbidden)
	assert.ErrorIs(t, svc.Authorize(ctx, ObjectTraffic, ActionIngest), ErrForbidden)
}

func TestMonitoringReadOnlyPlusIngest(t *testing.T) {
	svc, _ := setupAuthorization(t)
	ctx := actorContext(7003, "agen-olt", "monitoring")

	assert.NoError(t, svc.Authorize(ctx, ObjectDevice, ActionView))
	assert.NoError(t, svc.Authorize(ctx, ObjectTraffic, ActionIngest))
	assert.NoError(t, svc.Authorize(ctx, ObjectDevice, ActionIngest))
	assert.NoError(t, svc.Authorize(ctx, ObjectSession, ActionIngest))
	assert.NoError(t, svc.Authorize(ctx, ObjectAlarm, ActionRaise))
	assert.NoError(t, svc.Authorize(ctx, ObjectDashboard, ActionView))

	assert.ErrorIs(t, svc.Authorize(ctx, ObjectCustomer, ActionView), ErrForbidden)
	assert.ErrorIs(t, svc.Authorize(ctx, ObjectInvoice, ActionView), ErrForbidden)
	assert.ErrorIs(t, svc.Authorize(ctx, ObjectDevice, ActionCreate), ErrForbidden)
	assert.ErrorIs(t, svc.Authorize(ctx, ObjectAlarm, ActionResolve), ErrForbidden)
}

func TestRoleChangeTakesEffect(t *testing.T) {
	svc, _ := setupAuthorization(t)

	asOperator := actorContext(7004, "pak-agus", "operator")
	require.NoError(t, svc.Authorize(asOperator, ObjectCustomer, ActionCreate))

	// The next request carries the new role; the stale grouping goes.
	asMonitoring := actorContext(7004, "pak-agus", "monitoring")
	assert.ErrorIs(t, svc.Authorize(asMonitoring, ObjectCustomer, ActionCreate), ErrForbidden)
	assert.NoError(t, svc.Authorize(asMonitoring, ObjectTraffic, ActionIngest))
}

func TestAuthorizeRequiresActor(t *testing.T) {
	svc, _ := setupAuthorization(t)

	err := svc.Authorize(context.Background(), ObjectCustomer, ActionView)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	noRole := actorContext(7005, "tanpa-peran", "")
	assert.ErrorIs(t, svc.Authorize(noRole, ObjectCustomer, ActionView), ErrForbidden)

	ctx := actorContext(7006, "budi", "admin")
	assert.ErrorIs(t, svc.Authorize(ctx, "  ", ActionView), ErrInvalidObject)
	assert.ErrorIs(t, svc.Authorize(ctx, ObjectCustomer, ""), ErrInvalidAction)
}

func TestDenialIsRecorded(t *testing.T) {
	svc, db := setupAuthorization(t)
	ctx := actorContext(7007, "siti", "monitoring")

	require.ErrorIs(t, svc.Authorize(ctx, ObjectSetting, ActionUpdate), ErrForbidden)

	var entry auditdomain.ActivityLog
	require.NoError(t, db.Where("action = ?", "authorization.denied").First(&entry).Error)
	require.NotNil(t, entry.UserID)
	assert.EqualValues(t, 7007, *entry.UserID)
	require.NotNil(t, entry.ResourceID)
	assert.Equal(t, ObjectSetting, *entry.ResourceID)
	assert.Equal(t, "Denied update on setting", entry.Description)
	assert.Equal(t, "monitoring", entry.AdditionalData["role"])
}
