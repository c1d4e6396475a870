package notification

import (
	"github.com/arusnet/arus/internal/notification/repository"
	"github.com/arusnet/arus/internal/notification/service"
	"go.uber.org/fx"
)

var Module = fx.Module("notification.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
