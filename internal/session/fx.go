package session

import (
	"github.com/arusnet/arus/internal/session/repository"
	"github.com/arusnet/arus/internal/session/service"

	"go.uber.org/fx"
)

var Module = fx.Module("session.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
