package identity

import (
	"github.com/arusnet/arus/internal/identity/repository"
	"github.com/arusnet/arus/internal/identity/service"
	"go.uber.org/fx"
)

var Module = fx.Module("identity.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
