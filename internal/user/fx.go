package user

import (
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/user/repository"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/user/service"
	"go.uber.org/fx"
)

var Module = fx.Module("user.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
