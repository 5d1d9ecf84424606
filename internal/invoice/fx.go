package invoice

import (
	"github.com/smallbiznis/clinicbill/internal/invoice/service"
	"go.uber.org/fx"
)

// Module provides the lifecycle service. Repositories come from the store
// module.
var Module = fx.Module("invoice.service",
	fx.Provide(service.NewService),
)
