package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	auditdomain "github.com/arusnet/arus/internal/audit/domain"
	"github.com/arusnet/arus/internal/authctx"
)

//go:embed model.conf
var modelText string

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
	Audit    auditdomain.Service `optional:"true"`
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
	audit    auditdomain.Service
}

// NewEnforcer builds the synced enforcer over the embedded model with
// policies persisted through the gorm adapter, then seeds the role
// policies. Seeding is additive, so operator-added rules survive
// restarts.
func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
		audit:    p.Audit,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, object string, action string) error {
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	actor, ok := authctx.ActorFromContext(ctx)
	if !ok || actor.UserID == 0 {
		return ErrUnauthenticated
	}

	role := strings.ToLower(strings.TrimSpace(actor.Role))
	if role == "" {
		s.auditDenied(ctx, object, action, role)
		return ErrForbidden
	}

	subject := fmt.Sprintf("user:%s", actor.UserID.String())
	if err := s.ensureGrouping(subject, fmt.Sprintf("role:%s", role)); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.auditDenied(ctx, object, action, role)
		return ErrForbidden
	}
	return nil
}

// ensureGrouping pins the subject to exactly one role. A user whose
// role changed gets the stale grouping removed on their next request,
// so a demotion takes effect without touching the policy table.
func (s *ServiceImpl) ensureGrouping(subject string, roleName string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 || rule[1] == roleName {
			continue
		}
		params := make([]interface{}, 0, len(rule))
		for _, value := range rule {
			params = append(params, value)
		}
		_, _ = s.enforcer.RemoveGroupingPolicy(params...)
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName)
	return err
}

// Denials are recorded; grants are not. The services already write
// their own activity entries for the mutations they perform, so
// logging grants here would double every row.
func (s *ServiceImpl) auditDenied(ctx context.Context, object string, action string, role string) {
	if s.audit == nil {
		return
	}
	resourceID := object
	_ = s.audit.Record(ctx, "authorization.denied", "authorization", &resourceID,
		fmt.Sprintf("Denied %s on %s", action, object), map[string]any{
			"object": object,
			"action": action,
			"role":   role,
		})
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	// role:admin is matched directly in model.conf and needs no rows.
	policies := [][]string{
		// Operators run the day-to-day: subscribers, billing, the
		// plant. User management and settings writes stay with admin.
		{"role:operator", ObjectCustomer, ActionView},
		{"role:operator", ObjectCustomer, ActionCreate},
		{"role:operator", ObjectCustomer, ActionUpdate},
		{"role:operator", ObjectPackage, ActionView},
		{"role:operator", ObjectPackage, ActionCreate},
		{"role:operator", ObjectPackage, ActionUpdate},
		{"role:operator", ObjectSubscription, ActionView},
		{"role:operator", ObjectSubscription, ActionCreate},
		{"role:operator", ObjectSubscription, ActionCancel},
		{"role:operator", ObjectInvoice, ActionView},
		{"role:operator", ObjectInvoice, ActionCreate},
		{"role:operator", ObjectPayment, ActionView},
		{"role:operator", ObjectDevice, ActionView},
		{"role:operator", ObjectDevice, ActionCreate},
		{"role:operator", ObjectDevice, ActionUpdate},
		{"role:operator", ObjectDevice, ActionDelete},
		{"role:operator", ObjectConnection, ActionView},
		{"role:operator", ObjectConnection, ActionCreate},
		{"role:operator", ObjectConnection, ActionDelete},
		{"role:operator", ObjectTraffic, ActionView},
		{"role:operator", ObjectAlarm, ActionView},
		{"role:operator", ObjectAlarm, ActionRaise},
		{"role:operator", ObjectAlarm, ActionAcknowledge},
		{"role:operator", ObjectAlarm, ActionResolve},
		{"role:operator", ObjectSession, ActionView},
		{"role:operator", ObjectNotification, ActionView},
		{"role:operator", ObjectNotification, ActionCreate},
		{"role:operator", ObjectNotificationTemplate, ActionView},
		{"role:operator", ObjectNotificationTemplate, ActionCreate},
		{"role:operator", ObjectNotificationTemplate, ActionUpdate},
		{"role:operator", ObjectSetting, ActionView},
		{"role:operator", ObjectDashboard, ActionView},

		// Monitoring is the NOC wallboard and the NAS agents: network
		// telemetry read access plus the ingest writes, nothing that
		// touches subscribers or money.
		{"role:monitoring", ObjectDevice, ActionView},
		{"role:monitoring", ObjectDevice, ActionIngest},
		{"role:monitoring", ObjectConnection, ActionView},
		{"role:monitoring", ObjectTraffic, ActionView},
		{"role:monitoring", ObjectTraffic, ActionIngest},
		{"role:monitoring", ObjectAlarm, ActionView},
		{"role:monitoring", ObjectAlarm, ActionRaise},
		{"role:monitoring", ObjectSession, ActionView},
		{"role:monitoring", ObjectSession, ActionIngest},
		{"role:monitoring", ObjectDashboard, ActionView},
	}

	for _, policy := range policies {
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}
