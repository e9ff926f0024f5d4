package webhook

import (
	"github.com/sitewandlabs/sitewand/internal/webhook/service"
	"go.uber.org/fx"
)

var Module = fx.Module("webhook",
	fx.Provide(service.New),
)
