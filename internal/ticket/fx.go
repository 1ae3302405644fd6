package ticket

import (
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/ticket/repository"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/ticket/service"
	"go.uber.org/fx"
)

var Module = fx.Module("ticket.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
