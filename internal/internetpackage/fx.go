package internetpackage

import (
	"github.com/arusnet/arus/internal/internetpackage/repository"
	"github.com/arusnet/arus/internal/internetpackage/service"
	"go.uber.org/fx"
)

var Module = fx.Module("internetpackage.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
