package itcheck

import (
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/itcheck/repository"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/itcheck/service"
	"go.uber.org/fx"
)

var Module = fx.Module("itcheck.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
