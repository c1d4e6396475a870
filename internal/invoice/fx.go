package invoice

import (
	"github.com/arusnet/arus/internal/invoice/repository"
	"github.com/arusnet/arus/internal/invoice/service"
	"go.uber.org/fx"
)

var Module = fx.Module("invoice.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
