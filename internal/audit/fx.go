package audit

import (
	"github.com/smallbiznis/clinicbill/internal/audit/service"
	"go.uber.org/fx"
)

// Module provides the audit service. The repository comes from the store
// module so that the audit trail lives next to the invoices it describes.
var Module = fx.Module("audit.service",
	fx.Provide(service.NewService),
)
