package providers

import (
	"go.uber.org/fx"

	"github.com/arusnet/arus/internal/providers/email"
	"github.com/arusnet/arus/internal/providers/pdf"
	"github.com/arusnet/arus/internal/providers/telegram"
	"github.com/arusnet/arus/internal/providers/whatsapp"
)

var Module = fx.Module("providers",
	email.Module,
	telegram.Module,
	whatsapp.Module,
	pdf.Module,
)
