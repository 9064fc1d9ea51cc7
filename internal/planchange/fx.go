package planchange

import (
	"github.com/smallbiznis/relayplan/internal/planchange/repository"
	"github.com/smallbiznis/relayplan/internal/planchange/service"
	"go.uber.org/fx"
)

var Module = fx.Module("planchange.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
