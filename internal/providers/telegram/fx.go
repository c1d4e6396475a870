package telegram

import (
	"strings"

	"go.uber.org/fx"

	"github.com/arusnet/arus/internal/config"
)

var Module = fx.Module("providers.telegram",
	fx.Provide(NewFromConfig),
)

func NewFromConfig(cfg config.Config) Provider {
	if strings.TrimSpace(cfg.Telegram.BotToken) == "" {
		return &NoOpProvider{}
	}
	return NewBot(cfg.Telegram.BotToken, cfg.Telegram.APIBase)
}
