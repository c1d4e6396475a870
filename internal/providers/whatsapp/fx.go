package whatsapp

import (
	"strings"

	"go.uber.org/fx"

	"github.com/arusnet/arus/internal/config"
)

var Module = fx.Module("providers.whatsapp",
	fx.Provide(NewFromConfig),
)

func NewFromConfig(cfg config.Config) Provider {
	if strings.TrimSpace(cfg.WhatsApp.GatewayURL) == "" {
		return &NoOpProvider{}
	}
	return NewGateway(cfg.WhatsApp.GatewayURL, cfg.WhatsApp.APIKey)
}
