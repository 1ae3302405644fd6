package feedback

import (
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/feedback/repository"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/feedback/service"
	"go.uber.org/fx"
)

var Module = fx.Module("feedback.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
