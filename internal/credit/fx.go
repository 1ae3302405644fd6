package credit

import (
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/credit/repository"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/credit/service"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/credit/statement"
	"go.uber.org/fx"
)

var Module = fx.Module("credit.service",
	fx.Provide(repository.Provide),
	fx.Provide(statement.New),
	fx.Provide(service.New),
)
