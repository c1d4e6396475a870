package customer

import (
	"github.com/arusnet/arus/internal/customer/repository"
	"github.com/arusnet/arus/internal/customer/service"
	"go.uber.org/fx"
)

var Module = fx.Module("customer.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
