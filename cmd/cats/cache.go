package cats

import (
	"github.com/catsched/cats/internal/config"
	"github.com/catsched/cats/internal/estimator"
	"github.com/catsched/cats/internal/model"
)

func newEstimatorCache(pipeline *model.Pipeline, network *model.Network, samples *model.DrySamples, cfg config.RunConfig) *estimator.Cache {
	return estimator.NewCache(pipeline, network, samples, cfg.EstimatorConfig(), cfg.Scheduling.InputVolumeMB)
}
