package search_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/catsched/cats/internal/catserr"
	"github.com/catsched/cats/internal/estimator"
	"github.com/catsched/cats/internal/model"
	"github.com/catsched/cats/internal/search"
)

// buildSingleProducerFixture is spec.md scenario 1: one producer step, two
// resources with different cost/speed tradeoffs.
func buildSingleProducerFixture(t *testing.T) (*model.Pipeline, *model.Network, *model.DrySamples, model.StepID, model.ResourceID, model.ResourceID) {
	t.Helper()
	p := model.NewPipeline()
	s1, err := p.AddStep("S1")
	require.NoError(t, err)

	n := model.NewNetwork()
	fast, err := n.AddResource("R_fast", 4, 8<<30, 0.02)
	require.NoError(t, err)
	cheap, err := n.AddResource("R_cheap", 4, 8<<30, 0.005)
	require.NoError(t, err)

	samples := model.NewDrySamples()
	samples.AddStepMetric(model.StepMetricSample{DryRunID: "d1", Step: s1, Resource: fast, NumInputs: 1, InputBytes: 1000e6, NumOutputs: 1, OutputBytes: 1000e6, StepProcessingMillis: 100000})
	samples.AddStepMetric(model.StepMetricSample{DryRunID: "d2", Step: s1, Resource: cheap, NumInputs: 1, InputBytes: 1000e6, NumOutputs: 1, OutputBytes: 1000e6, StepProcessingMillis: 300000})
	samples.AddPerformanceMetric(model.StepPerformanceSample{DryRunID: "d1", Step: s1, Resource: fast, AvgCPUPct: 50, MaxMemMB: 512})
	samples.AddPerformanceMetric(model.StepPerformanceSample{DryRunID: "d2", Step: s1, Resource: cheap, AvgCPUPct: 50, MaxMemMB: 512})
	samples.SetDeploymentMetric(model.DeploymentSample{Step: s1, Resource: fast})
	samples.SetDeploymentMetric(model.DeploymentSample{Step: s1, Resource: cheap})

	return p, n, samples, s1, fast, cheap
}

func TestScenario1_SingleProducerTwoResources(t *testing.T) {
	p, n, samples, s1, fast, _ := buildSingleProducerFixture(t)
	cache := estimator.NewCache(p, n, samples, estimator.DefaultConfig(), 1000)
	cfg := search.DefaultConfig()
	cfg.DeadlineSeconds = 200
	cfg.BudgetUSD = 10
	cfg.InputVolumeMB = 1000

	driver := search.NewDriver(p, n, samples, cache, cfg, nil)
	results, err := driver.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)

	events := results[0].EventsOfStep(s1)
	require.Len(t, events, 1)
	require.Equal(t, fast, events[0].Resource)
	require.InDelta(t, 100, results[0].TotalTime(), 1e-6)
}

func TestScenario4_BudgetBoundInfeasibility(t *testing.T) {
	p, n, samples, _, _, _ := buildSingleProducerFixture(t)
	cache := estimator.NewCache(p, n, samples, estimator.DefaultConfig(), 1000)
	cfg := search.DefaultConfig()
	cfg.DeadlineSeconds = 200
	cfg.BudgetUSD = 0.01
	cfg.InputVolumeMB = 1000

	driver := search.NewDriver(p, n, samples, cache, cfg, nil)
	_, err := driver.Run(context.Background())
	require.Error(t, err)
	require.ErrorIs(t, err, catserr.ErrInfeasible)
	require.Equal(t, 2, catserr.ExitCode(err))
}

func TestScenario5_ForcedDeployment(t *testing.T) {
	p, n, samples, s1, _, cheap := buildSingleProducerFixture(t)
	cache := estimator.NewCache(p, n, samples, estimator.DefaultConfig(), 1000)

	t.Run("meets deadline", func(t *testing.T) {
		cfg := search.DefaultConfig()
		cfg.DeadlineSeconds = 1000
		cfg.BudgetUSD = 10
		cfg.InputVolumeMB = 1000
		driver := search.NewDriver(p, n, samples, cache, cfg, map[model.StepID]model.ResourceID{s1: cheap})
		results, err := driver.Run(context.Background())
		require.NoError(t, err)
		require.Len(t, results, 1)
		events := results[0].EventsOfStep(s1)
		require.Len(t, events, 1)
		require.Equal(t, cheap, events[0].Resource)
	})

	t.Run("misses deadline", func(t *testing.T) {
		cfg := search.DefaultConfig()
		cfg.DeadlineSeconds = 200
		cfg.BudgetUSD = 10
		cfg.InputVolumeMB = 1000
		driver := search.NewDriver(p, n, samples, cache, cfg, map[model.StepID]model.ResourceID{s1: cheap})
		_, err := driver.Run(context.Background())
		require.Error(t, err)
		require.ErrorIs(t, err, catserr.ErrInfeasible)
		require.Equal(t, 2, catserr.ExitCode(err))
	})
}

// buildSyncConsumerFixture is spec.md scenario 2: a producer and a
// synchronous (non-scalable) consumer, two resources of equal speed but
// different cost.
func buildSyncConsumerFixture(t *testing.T) (*model.Pipeline, *model.Network, *model.DrySamples, model.StepID, model.StepID, model.ResourceID, model.ResourceID) {
	t.Helper()
	p := model.NewPipeline()
	prod, err := p.AddStep("P")
	require.NoError(t, err)
	cons, err := p.AddStep("C")
	require.NoError(t, err)
	require.NoError(t, p.AddDependency("C", "P", model.Synchronous, false))

	n := model.NewNetwork()
	r1, err := n.AddResource("R1", 4, 8<<30, 0.01)
	require.NoError(t, err)
	r2, err := n.AddResource("R2", 4, 8<<30, 0.02)
	require.NoError(t, err)
	n.SetEdge(r1, r2, 100e6, 10, 0)
	n.SetEdge(r2, r1, 100e6, 10, 0)

	samples := model.NewDrySamples()
	for _, step := range []model.StepID{prod, cons} {
		for _, res := range []model.ResourceID{r1, r2} {
			samples.AddStepMetric(model.StepMetricSample{DryRunID: "d", Step: step, Resource: res, NumInputs: 1, InputBytes: 100e6, NumOutputs: 1, OutputBytes: 100e6, StepProcessingMillis: 10000})
			samples.AddPerformanceMetric(model.StepPerformanceSample{DryRunID: "d", Step: step, Resource: res, AvgCPUPct: 50, MaxMemMB: 512})
			samples.SetDeploymentMetric(model.DeploymentSample{Step: step, Resource: res})
		}
	}

	return p, n, samples, prod, cons, r1, r2
}

func TestScenario2_SyncConsumerSameResource(t *testing.T) {
	p, n, samples, prod, cons, r1, _ := buildSyncConsumerFixture(t)
	cache := estimator.NewCache(p, n, samples, estimator.DefaultConfig(), 100)
	cfg := search.DefaultConfig()
	cfg.DeadlineSeconds = 100
	cfg.BudgetUSD = 10
	cfg.InputVolumeMB = 100

	driver := search.NewDriver(p, n, samples, cache, cfg, nil)
	results, err := driver.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)

	// R1 is strictly cheaper than R2 at equal speed, so the minimum-cost
	// placement puts both steps on R1 regardless of the synchronous
	// dependency between them.
	prodEvents := results[0].EventsOfStep(prod)
	consEvents := results[0].EventsOfStep(cons)
	require.Len(t, prodEvents, 1)
	require.Len(t, consEvents, 1)
	require.Equal(t, r1, prodEvents[0].Resource)
	require.Equal(t, r1, consEvents[0].Resource)

	require.InDelta(t, 0, results[0].DataTransmissionCost(), 1e-9)
	require.InDelta(t, 20, results[0].TotalTime(), 1e-6)
}

func TestInsufficientSamplesYieldsExitCode4(t *testing.T) {
	p := model.NewPipeline()
	orphan, err := p.AddStep("Orphan")
	require.NoError(t, err)

	n := model.NewNetwork()
	_, err = n.AddResource("R1", 4, 8<<30, 0.01)
	require.NoError(t, err)

	samples := model.NewDrySamples() // no step_metrics/performance/deployment rows at all
	cache := estimator.NewCache(p, n, samples, estimator.DefaultConfig(), 100)
	cfg := search.DefaultConfig()
	cfg.DeadlineSeconds = 100
	cfg.BudgetUSD = 10
	cfg.InputVolumeMB = 100

	driver := search.NewDriver(p, n, samples, cache, cfg, nil)
	_, err = driver.Run(context.Background())
	require.Error(t, err)
	require.ErrorIs(t, err, catserr.ErrInfeasible)
	require.ErrorIs(t, err, catserr.ErrInsufficientSamples)
	require.Equal(t, 4, catserr.ExitCode(err))
	_ = orphan
}

// buildScalableConsumerFixture is spec.md scenario 3: a producer feeding an
// asynchronous, scalable consumer.
func buildScalableConsumerFixture(t *testing.T) (*model.Pipeline, *model.Network, *model.DrySamples, model.StepID, model.StepID) {
	t.Helper()
	p := model.NewPipeline()
	prod, err := p.AddStep("P")
	require.NoError(t, err)
	cons, err := p.AddStep("C")
	require.NoError(t, err)
	require.NoError(t, p.AddDependency("C", "P", model.Asynchronous, true))

	n := model.NewNetwork()
	r1, err := n.AddResource("R1", 8, 16<<30, 0.01)
	require.NoError(t, err)
	cloud, err := n.AddResource("Cloud", 8, 16<<30, 0.02)
	require.NoError(t, err)
	n.SetEdge(r1, cloud, 1e9, 1, 0)
	n.SetEdge(cloud, r1, 1e9, 1, 0)

	samples := model.NewDrySamples()
	// P: 1 input -> 10 outputs of 50MB each, 5s/output => 50s total.
	samples.AddStepMetric(model.StepMetricSample{DryRunID: "p1", Step: prod, Resource: r1, NumInputs: 1, InputBytes: 1e6, NumOutputs: 10, OutputBytes: 500e6, StepProcessingMillis: 50000})
	samples.AddPerformanceMetric(model.StepPerformanceSample{DryRunID: "p1", Step: prod, Resource: r1, AvgCPUPct: 60, MaxMemMB: 1024})
	samples.SetDeploymentMetric(model.DeploymentSample{Step: prod, Resource: r1})
	// C: 1 input of 50MB processed in 20s.
	samples.AddStepMetric(model.StepMetricSample{DryRunID: "c1", Step: cons, Resource: cloud, NumInputs: 1, InputBytes: 50e6, NumOutputs: 1, OutputBytes: 1e6, StepProcessingMillis: 20000})
	samples.AddPerformanceMetric(model.StepPerformanceSample{DryRunID: "c1", Step: cons, Resource: cloud, AvgCPUPct: 40, MaxMemMB: 512})
	samples.SetDeploymentMetric(model.DeploymentSample{Step: cons, Resource: cloud})

	return p, n, samples, prod, cons
}

func TestScenario3_AsyncScalableConsumer(t *testing.T) {
	p, n, samples, _, cons := buildScalableConsumerFixture(t)
	cache := estimator.NewCache(p, n, samples, estimator.DefaultConfig(), 1)
	cfg := search.DefaultConfig()
	cfg.DeadlineSeconds = 1e6
	cfg.BudgetUSD = 1e6
	cfg.InputVolumeMB = 1
	cfg.MaxScalability = 5

	driver := search.NewDriver(p, n, samples, cache, cfg, nil)
	results, err := driver.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)

	events := results[0].EventsOfStep(cons)
	// ceil(P.StepProcessingTime() / C.perInputProcessing) = ceil(50/20) = 3,
	// capped by max_scalability=5.
	require.Len(t, events, 3)

	var totalCovered float64
	for _, e := range events {
		require.Equal(t, 3, e.ReplicaCount)
		totalCovered += e.InputsCovered
	}
	require.InDelta(t, 10, totalCovered, 1e-6)
}
