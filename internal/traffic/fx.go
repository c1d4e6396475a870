package traffic

import (
	"github.com/arusnet/arus/internal/traffic/repository"
	"github.com/arusnet/arus/internal/traffic/service"

	"go.uber.org/fx"
)

var Module = fx.Module("traffic.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
