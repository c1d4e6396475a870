package authorization

import (
	"context"
	"errors"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidObject   = errors.New("invalid_object")
	ErrInvalidAction   = errors.New("invalid_action")
)

// Objects are the resources the role model speaks about, one per route
// group.
const (
	ObjectUser                 = "user"
	ObjectCustomer             = "customer"
	ObjectPackage              = "package"
	ObjectSubscription         = "subscription"
	ObjectInvoice              = "invoice"
	ObjectPayment              = "payment"
	ObjectDevice               = "device"
	ObjectConnection           = "connection"
	ObjectTraffic              = "traffic"
	ObjectAlarm                = "alarm"
	ObjectSession              = "session"
	ObjectNotification         = "notification"
	ObjectNotificationTemplate = "notification_template"
	ObjectSetting              = "setting"
	ObjectDashboard            = "dashboard"
	ObjectActivityLog          = "activity_log"
	ObjectSystemLog            = "system_log"
)

// Actions are verbs over those objects. Ingest covers the agent-facing
// write paths: traffic samples, device heartbeats and session events.
const (
	ActionView   = "view"
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"

	ActionCancel      = "cancel"
	ActionIngest      = "ingest"
	ActionRaise       = "raise"
	ActionAcknowledge = "acknowledge"
	ActionResolve     = "resolve"
)

// Service answers whether the actor on the context may perform action
// on object. The actor comes off the request context, so handlers only
// name what they are about to do.
type Service interface {
	Authorize(ctx context.Context, object string, action string) error
}
