package sysconfig

import (
	"go.uber.org/fx"

	"github.com/arusnet/arus/internal/sysconfig/repository"
	"github.com/arusnet/arus/internal/sysconfig/service"
)

var Module = fx.Module("sysconfig.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
