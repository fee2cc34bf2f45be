package subsidy

import (
	"github.com/subsidytracker/subsidytracker/internal/subsidy/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("subsidy.repository",
	fx.Provide(repository.NewRepository),
)
