package submission

import (
	"github.com/sitewandlabs/sitewand/internal/submission/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("submission",
	fx.Provide(repository.New),
)
