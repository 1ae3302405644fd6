package auth

import (
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/auth/repository"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/auth/service"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/auth/token"
	"go.uber.org/fx"
)

var Module = fx.Module("auth.service",
	fx.Provide(repository.Provide),
	fx.Provide(token.ConfigFrom),
	fx.Provide(token.NewIssuer),
	fx.Provide(service.New),
)
