package systemlog

import (
	"github.com/arusnet/arus/internal/systemlog/repository"
	"github.com/arusnet/arus/internal/systemlog/service"
	"go.uber.org/fx"
)

var Module = fx.Module("systemlog.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
