package alarm

import (
	"github.com/arusnet/arus/internal/alarm/repository"
	"github.com/arusnet/arus/internal/alarm/service"

	"go.uber.org/fx"
)

var Module = fx.Module("alarm.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
