package checkout

import (
	"github.com/sitewandlabs/sitewand/internal/checkout/service"
	"go.uber.org/fx"
)

var Module = fx.Module("checkout",
	fx.Provide(service.NewDiscountValidator),
	fx.Provide(service.NewCustomerResolver),
	fx.Provide(service.NewScheduleBuilder),
	fx.Provide(service.NewInvoiceFinalizer),
	fx.Provide(service.NewOrchestrator),
)
