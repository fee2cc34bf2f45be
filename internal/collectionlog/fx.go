package collectionlog

import (
	"github.com/subsidytracker/subsidytracker/internal/collectionlog/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("collectionlog.repository",
	fx.Provide(repository.NewRepository),
)
