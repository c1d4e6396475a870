package audit

import (
	"go.uber.org/fx"

	"github.com/arusnet/arus/internal/audit/repository"
	"github.com/arusnet/arus/internal/audit/service"
)

var Module = fx.Module("audit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
