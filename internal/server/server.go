package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/arusnet/arus/internal/alarm"
	alarmdomain "github.com/arusnet/arus/internal/alarm/domain"
	"github.com/arusnet/arus/internal/audit"
	auditdomain "github.com/arusnet/arus/internal/audit/domain"
	"github.com/arusnet/arus/internal/authorization"
	"github.com/arusnet/arus/internal/cache"
	"github.com/arusnet/arus/internal/config"
	"github.com/arusnet/arus/internal/customer"
	customerdomain "github.com/arusnet/arus/internal/customer/domain"
	"github.com/arusnet/arus/internal/dashboard"
	dashboarddomain "github.com/arusnet/arus/internal/dashboard/domain"
	"github.com/arusnet/arus/internal/device"
	devicedomain "github.com/arusnet/arus/internal/device/domain"
	"github.com/arusnet/arus/internal/identity"
	identitydomain "github.com/arusnet/arus/internal/identity/domain"
	"github.com/arusnet/arus/internal/internetpackage"
	internetpackagedomain "github.com/arusnet/arus/internal/internetpackage/domain"
	"github.com/arusnet/arus/internal/invoice"
	invoicedomain "github.com/arusnet/arus/internal/invoice/domain"
	"github.com/arusnet/arus/internal/notification"
	notificationdomain "github.com/arusnet/arus/internal/notification/domain"
	"github.com/arusnet/arus/internal/observability"
	obsmiddleware "github.com/arusnet/arus/internal/observability/logger"
	obsmetrics "github.com/arusnet/arus/internal/observability/metrics"
	obstracing "github.com/arusnet/arus/internal/observability/tracing"
	"github.com/arusnet/arus/internal/payment"
	paymentdomain "github.com/arusnet/arus/internal/payment/domain"
	"github.com/arusnet/arus/internal/providers"
	"github.com/arusnet/arus/internal/providers/pdf"
	"github.com/arusnet/arus/internal/ratelimit"
	"github.com/arusnet/arus/internal/session"
	sessiondomain "github.com/arusnet/arus/internal/session/domain"
	"github.com/arusnet/arus/internal/subscription"
	subscriptiondomain "github.com/arusnet/arus/internal/subscription/domain"
	"github.com/arusnet/arus/internal/sysconfig"
	sysconfigdomain "github.com/arusnet/arus/internal/sysconfig/domain"
	"github.com/arusnet/arus/internal/systemlog"
	systemlogdomain "github.com/arusnet/arus/internal/systemlog/domain"
	"github.com/arusnet/arus/internal/traffic"
	trafficdomain "github.com/arusnet/arus/internal/traffic/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	config.Module,
	fx.Provide(registerGin),
	cache.Module,
	ratelimit.Module,
	providers.Module,
	audit.Module,
	authorization.Module,
	systemlog.Module,
	sysconfig.Module,
	identity.Module,
	customer.Module,
	internetpackage.Module,
	subscription.Module,
	invoice.Module,
	payment.Module,
	device.Module,
	traffic.Module,
	alarm.Module,
	session.Module,
	notification.Module,
	dashboard.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	db              *gorm.DB
	genID           *snowflake.Node
	identitySvc     identitydomain.Service
	authzSvc        authorization.Service
	auditSvc        auditdomain.Service
	customerSvc     customerdomain.Service
	packageSvc      internetpackagedomain.Service
	subscriptionSvc subscriptiondomain.Service
	invoiceSvc      invoicedomain.Service
	paymentSvc      paymentdomain.Service
	webhookSvc      paymentdomain.WebhookService
	deviceSvc       devicedomain.Service
	trafficSvc      trafficdomain.Service
	alarmSvc        alarmdomain.Service
	sessionSvc      sessiondomain.Service
	notificationSvc notificationdomain.Service
	sysconfigSvc    sysconfigdomain.Service
	dashboardSvc    dashboarddomain.Service
	systemLogSvc    systemlogdomain.Service
	pdfProvider     pdf.Provider
	obsMetrics      *obsmetrics.Metrics
	ingestLimiter   *ratelimit.IngestLimiter
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	DB              *gorm.DB
	GenID           *snowflake.Node
	IdentitySvc     identitydomain.Service
	AuthzSvc        authorization.Service
	AuditSvc        auditdomain.Service
	CustomerSvc     customerdomain.Service
	PackageSvc      internetpackagedomain.Service
	SubscriptionSvc subscriptiondomain.Service
	InvoiceSvc      invoicedomain.Service
	PaymentSvc      paymentdomain.Service
	WebhookSvc      paymentdomain.WebhookService
	DeviceSvc       devicedomain.Service
	TrafficSvc      trafficdomain.Service
	AlarmSvc        alarmdomain.Service
	SessionSvc      sessiondomain.Service
	NotificationSvc notificationdomain.Service
	SysconfigSvc    sysconfigdomain.Service
	DashboardSvc    dashboarddomain.Service
	SystemLogSvc    systemlogdomain.Service
	PDFProvider     pdf.Provider
	ObsMetrics      *obsmetrics.Metrics      `optional:"true"`
	IngestLimiter   *ratelimit.IngestLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		db:              p.DB,
		genID:           p.GenID,
		identitySvc:     p.IdentitySvc,
		authzSvc:        p.AuthzSvc,
		auditSvc:        p.AuditSvc,
		customerSvc:     p.CustomerSvc,
		packageSvc:      p.PackageSvc,
		subscriptionSvc: p.SubscriptionSvc,
		invoiceSvc:      p.InvoiceSvc,
		paymentSvc:      p.PaymentSvc,
		webhookSvc:      p.WebhookSvc,
		deviceSvc:       p.DeviceSvc,
		trafficSvc:      p.TrafficSvc,
		alarmSvc:        p.AlarmSvc,
		sessionSvc:      p.SessionSvc,
		notificationSvc: p.NotificationSvc,
		sysconfigSvc:    p.SysconfigSvc,
		dashboardSvc:    p.DashboardSvc,
		systemLogSvc:    p.SystemLogSvc,
		pdfProvider:     p.PDFProvider,
		obsMetrics:      p.ObsMetrics,
		ingestLimiter:   p.IngestLimiter,
	}

	svc.registerRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerRoutes() {
	v1 := s.engine.Group("/v1")

	auth := v1.Group("/auth")
	auth.POST("/login", s.Login)
	auth.POST("/logout", s.AuthRequired(), s.Logout)
	auth.GET("/me", s.AuthRequired(), s.Me)

	// Gateway callbacks authenticate with their own token, not ours.
	v1.POST("/webhooks/:provider", s.HandlePaymentWebhook)

	api := v1.Group("", s.AuthRequired())

	api.POST("/users", s.authorize(authorization.ObjectUser, authorization.ActionCreate), s.CreateUser)
	api.GET("/users", s.authorize(authorization.ObjectUser, authorization.ActionView), s.ListUsers)
	api.GET("/users/:id", s.authorize(authorization.ObjectUser, authorization.ActionView), s.GetUserByID)
	api.PATCH("/users/:id", s.authorize(authorization.ObjectUser, authorization.ActionUpdate), s.UpdateUser)

	api.POST("/customers", s.authorize(authorization.ObjectCustomer, authorization.ActionCreate), s.CreateCustomer)
	api.GET("/customers", s.authorize(authorization.ObjectCustomer, authorization.ActionView), s.ListCustomers)
	api.GET("/customers/:id", s.authorize(authorization.ObjectCustomer, authorization.ActionView), s.GetCustomerByID)
	api.PATCH("/customers/:id", s.authorize(authorization.ObjectCustomer, authorization.ActionUpdate), s.UpdateCustomer)

	api.POST("/packages", s.authorize(authorization.ObjectPackage, authorization.ActionCreate), s.CreatePackage)
	api.GET("/packages", s.authorize(authorization.ObjectPackage, authorization.ActionView), s.ListPackages)
	api.GET("/packages/:id", s.authorize(authorization.ObjectPackage, authorization.ActionView), s.GetPackageByID)
	api.PATCH("/packages/:id", s.authorize(authorization.ObjectPackage, authorization.ActionUpdate), s.UpdatePackage)

	api.POST("/subscriptions", s.authorize(authorization.ObjectSubscription, authorization.ActionCreate), s.CreateSubscription)
	api.GET("/subscriptions", s.authorize(authorization.ObjectSubscription, authorization.ActionView), s.ListSubscriptions)
	api.GET("/subscriptions/:id", s.authorize(authorization.ObjectSubscription, authorization.ActionView), s.GetSubscriptionByID)
	api.POST("/subscriptions/:id/cancel", s.authorize(authorization.ObjectSubscription, authorization.ActionCancel), s.CancelSubscription)

	api.POST("/invoices", s.authorize(authorization.ObjectInvoice, authorization.ActionCreate), s.IssueInvoice)
	api.GET("/invoices", s.authorize(authorization.ObjectInvoice, authorization.ActionView), s.ListInvoices)
	api.GET("/invoices/:id", s.authorize(authorization.ObjectInvoice, authorization.ActionView), s.GetInvoiceByID)
	api.GET("/invoices/:id/pdf", s.authorize(authorization.ObjectInvoice, authorization.ActionView), s.RenderInvoicePDF)

	api.GET("/payments", s.authorize(authorization.ObjectPayment, authorization.ActionView), s.ListPayments)
	api.GET("/payments/:id", s.authorize(authorization.ObjectPayment, authorization.ActionView), s.GetPaymentByID)
	api.GET("/payments/:id/receipt", s.authorize(authorization.ObjectPayment, authorization.ActionView), s.RenderPaymentReceiptPDF)

	api.POST("/devices", s.authorize(authorization.ObjectDevice, authorization.ActionCreate), s.CreateDevice)
	api.GET("/devices", s.authorize(authorization.ObjectDevice, authorization.ActionView), s.ListDevices)
	api.GET("/devices/:id", s.authorize(authorization.ObjectDevice, authorization.ActionView), s.GetDeviceByID)
	api.PATCH("/devices/:id", s.authorize(authorization.ObjectDevice, authorization.ActionUpdate), s.UpdateDevice)
	api.DELETE("/devices/:id", s.authorize(authorization.ObjectDevice, authorization.ActionDelete), s.DeleteDevice)
	api.GET("/devices/:id/topology", s.authorize(authorization.ObjectDevice, authorization.ActionView), s.GetDeviceTopology)
	api.POST("/devices/:id/heartbeat", s.authorize(authorization.ObjectDevice, authorization.ActionIngest), s.DeviceHeartbeat)
	api.GET("/devices/:id/traffic", s.authorize(authorization.ObjectTraffic, authorization.ActionView), s.QueryDeviceTraffic)

	api.POST("/connections", s.authorize(authorization.ObjectConnection, authorization.ActionCreate), s.AddConnection)
	api.GET("/connections", s.authorize(authorization.ObjectConnection, authorization.ActionView), s.ListConnections)
	api.DELETE("/connections/:id", s.authorize(authorization.ObjectConnection, authorization.ActionDelete), s.RemoveConnection)

	api.POST("/traffic", s.authorize(authorization.ObjectTraffic, authorization.ActionIngest), s.TrafficIngestRateLimit(), s.IngestTraffic)

	api.POST("/alarms", s.authorize(authorization.ObjectAlarm, authorization.ActionRaise), s.RaiseAlarm)
	api.GET("/alarms", s.authorize(authorization.ObjectAlarm, authorization.ActionView), s.ListAlarms)
	api.GET("/alarms/:id", s.authorize(authorization.ObjectAlarm, authorization.ActionView), s.GetAlarmByID)
	api.POST("/alarms/:id/acknowledge", s.authorize(authorization.ObjectAlarm, authorization.ActionAcknowledge), s.AcknowledgeAlarm)
	api.POST("/alarms/:id/resolve", s.authorize(authorization.ObjectAlarm, authorization.ActionResolve), s.ResolveAlarm)

	api.POST("/sessions/pppoe", s.authorize(authorization.ObjectSession, authorization.ActionIngest), s.OpenPPPoESession)
	api.GET("/sessions/pppoe", s.authorize(authorization.ObjectSession, authorization.ActionView), s.ListPPPoESessions)
	api.GET("/sessions/pppoe/:id", s.authorize(authorization.ObjectSession, authorization.ActionView), s.GetPPPoESession)
	api.PATCH("/sessions/pppoe/:id", s.authorize(authorization.ObjectSession, authorization.ActionIngest), s.RefreshPPPoESession)
	api.POST("/sessions/pppoe/:id/close", s.authorize(authorization.ObjectSession, authorization.ActionIngest), s.ClosePPPoESession)

	api.POST("/sessions/hotspot", s.authorize(authorization.ObjectSession, authorization.ActionIngest), s.OpenHotspotSession)
	api.GET("/sessions/hotspot", s.authorize(authorization.ObjectSession, authorization.ActionView), s.ListHotspotSessions)
	api.GET("/sessions/hotspot/:id", s.authorize(authorization.ObjectSession, authorization.ActionView), s.GetHotspotSession)
	api.PATCH("/sessions/hotspot/:id", s.authorize(authorization.ObjectSession, authorization.ActionIngest), s.RefreshHotspotSession)
	api.POST("/sessions/hotspot/:id/close", s.authorize(authorization.ObjectSession, authorization.ActionIngest), s.CloseHotspotSession)

	api.POST("/notifications", s.authorize(authorization.ObjectNotification, authorization.ActionCreate), s.EnqueueNotification)
	api.GET("/notifications", s.authorize(authorization.ObjectNotification, authorization.ActionView), s.ListNotifications)
	api.GET("/notifications/:id", s.authorize(authorization.ObjectNotification, authorization.ActionView), s.GetNotificationByID)

	api.POST("/notification-templates", s.authorize(authorization.ObjectNotificationTemplate, authorization.ActionCreate), s.CreateNotificationTemplate)
	api.GET("/notification-templates", s.authorize(authorization.ObjectNotificationTemplate, authorization.ActionView), s.ListNotificationTemplates)
	api.GET("/notification-templates/:id", s.authorize(authorization.ObjectNotificationTemplate, authorization.ActionView), s.GetNotificationTemplateByID)
	api.PATCH("/notification-templates/:id", s.authorize(authorization.ObjectNotificationTemplate, authorization.ActionUpdate), s.UpdateNotificationTemplate)

	api.GET("/settings", s.authorize(authorization.ObjectSetting, authorization.ActionView), s.ListSettings)
	api.GET("/settings/:key", s.authorize(authorization.ObjectSetting, authorization.ActionView), s.GetSetting)
	api.PUT("/settings/:key", s.authorize(authorization.ObjectSetting, authorization.ActionUpdate), s.PutSetting)

	api.GET("/dashboard/stats", s.authorize(authorization.ObjectDashboard, authorization.ActionView), s.GetDashboardStats)

	api.GET("/activity-logs", s.authorize(authorization.ObjectActivityLog, authorization.ActionView), s.ListActivityLogs)
	api.GET("/system-logs", s.authorize(authorization.ObjectSystemLog, authorization.ActionView), s.ListSystemLogs)
}
