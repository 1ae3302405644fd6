package license

import (
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/license/repository"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/license/service"
	"go.uber.org/fx"
)

var Module = fx.Module("license.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
