package subscription

import (
	"github.com/arusnet/arus/internal/subscription/repository"
	"github.com/arusnet/arus/internal/subscription/service"
	"go.uber.org/fx"
)

var Module = fx.Module("subscription.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
