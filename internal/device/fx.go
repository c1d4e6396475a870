package device

import (
	"github.com/arusnet/arus/internal/device/repository"
	"github.com/arusnet/arus/internal/device/service"
	"go.uber.org/fx"
)

var Module = fx.Module("device.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
