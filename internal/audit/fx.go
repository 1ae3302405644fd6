package audit

import (
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/audit/repository"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
