package payment

import (
	"github.com/arusnet/arus/internal/payment/adapters"
	"github.com/arusnet/arus/internal/payment/adapters/xendit"
	"github.com/arusnet/arus/internal/payment/repository"
	"github.com/arusnet/arus/internal/payment/service"
	"github.com/arusnet/arus/internal/payment/webhook"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.service",
	fx.Provide(repository.Provide),
	fx.Provide(func() *adapters.Registry {
		return adapters.NewRegistry(
			xendit.NewFactory(),
		)
	}),
	fx.Provide(service.New),
	fx.Provide(webhook.NewService),
)
