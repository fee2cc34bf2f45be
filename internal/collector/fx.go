package collector

import (
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/subsidytracker/subsidytracker/internal/clock"
	logdomain "github.com/subsidytracker/subsidytracker/internal/collectionlog/domain"
	"github.com/subsidytracker/subsidytracker/internal/collector/bokjiro"
	"github.com/subsidytracker/subsidytracker/internal/collector/domain"
	"github.com/subsidytracker/subsidytracker/internal/collector/govdata"
	"github.com/subsidytracker/subsidytracker/internal/collector/service"
	"github.com/subsidytracker/subsidytracker/internal/collector/youthcenter"
	"github.com/subsidytracker/subsidytracker/internal/config"
	subsidydomain "github.com/subsidytracker/subsidytracker/internal/subsidy/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("collector",
	fx.Provide(NewHTTPClient),
	fx.Provide(NewRunner),
)

func NewHTTPClient(cfg config.Config) *http.Client {
	return &http.Client{Timeout: cfg.HTTPClientTimeout}
}

type Params struct {
	fx.In

	Config config.Config
	Client *http.Client
	Store  subsidydomain.Repository
	Logs   logdomain.Repository
	Clock  clock.Clock
	GenID  *snowflake.Node
	Log    *zap.Logger
}

// NewRunner assembles the three source collectors. Registration order
// is the run order of a full collection pass.
func NewRunner(p Params) domain.Runner {
	collectors := []domain.Collector{
		govdata.New(
			govdata.Config{
				APIKey:    p.Config.GovDataAPIKey,
				BaseURL:   p.Config.GovDataBaseURL,
				PageDelay: p.Config.PageDelay,
			},
			p.Client, p.Store, p.Logs, p.Clock, p.GenID, p.Log,
		),
		youthcenter.New(
			youthcenter.Config{
				APIKey:    p.Config.YouthCenterAPIKey,
				BaseURL:   p.Config.YouthCenterBaseURL,
				PageDelay: p.Config.PageDelay,
			},
			p.Client, p.Store, p.Logs, p.Clock, p.GenID, p.Log,
		),
		bokjiro.New(
			bokjiro.Config{ListURL: p.Config.BokjiroListURL},
			p.Client, p.Store, p.Logs, p.Clock, p.GenID, p.Log,
		),
	}

	return service.NewRunner(collectors, p.Config.CollectorDelay, p.Log)
}
