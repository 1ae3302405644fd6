package vault

import (
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/vault/crypto"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/vault/repository"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/vault/service"
	"go.uber.org/fx"
)

var Module = fx.Module("vault.service",
	fx.Provide(crypto.NewSealer),
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
