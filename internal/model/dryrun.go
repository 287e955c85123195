package model

// StepMetricSample is one row of the step_metrics dry-run table: a
// single empirical (dry_run_id, step, resource) observation of produced
// work at a given operating point.
type StepMetricSample struct {
	DryRunID             string
	Step                 StepID
	Resource             ResourceID
	NumInputs            float64
	InputBytes           float64
	NumOutputs           float64
	OutputBytes          float64
	StepProcessingMillis float64
	DataTransmissionMillis float64
}

// StepPerformanceSample is one row of the step_performance_metrics table.
type StepPerformanceSample struct {
	DryRunID  string
	Step      StepID
	Resource  ResourceID
	MaxCPUPct float64
	AvgCPUPct float64
	MaxMemMB  float64
}

// DeploymentSample is one row of the deployment_metrics table: the
// provisioning+deployment cost of pulling a step's container image and
// starting its first instance on a resource.
type DeploymentSample struct {
	Step                   StepID
	Resource               ResourceID
	AvgDownloadSeconds     float64
	AvgInstanceStartSeconds float64
}

// DrySamples is the read-only, load-once collection of all dry-run
// observations, keyed for fast estimator lookup.
type DrySamples struct {
	stepMetrics      map[pairKey][]StepMetricSample
	perfMetrics      map[pairKey][]StepPerformanceSample
	deployment       map[pairKey]DeploymentSample
}

type pairKey struct {
	Step     StepID
	Resource ResourceID
}

// NewDrySamples builds an empty DrySamples collection.
func NewDrySamples() *DrySamples {
	return &DrySamples{
		stepMetrics: make(map[pairKey][]StepMetricSample),
		perfMetrics: make(map[pairKey][]StepPerformanceSample),
		deployment:  make(map[pairKey]DeploymentSample),
	}
}

// AddStepMetric appends a step_metrics row.
func (d *DrySamples) AddStepMetric(s StepMetricSample) {
	k := pairKey{s.Step, s.Resource}
	d.stepMetrics[k] = append(d.stepMetrics[k], s)
}

// AddPerformanceMetric appends a step_performance_metrics row.
func (d *DrySamples) AddPerformanceMetric(s StepPerformanceSample) {
	k := pairKey{s.Step, s.Resource}
	d.perfMetrics[k] = append(d.perfMetrics[k], s)
}

// SetDeploymentMetric records the deployment_metrics row for (step, resource).
func (d *DrySamples) SetDeploymentMetric(s DeploymentSample) {
	d.deployment[pairKey{s.Step, s.Resource}] = s
}

// StepMetrics returns all step_metrics samples for (step, resource).
func (d *DrySamples) StepMetrics(step StepID, resource ResourceID) []StepMetricSample {
	return d.stepMetrics[pairKey{step, resource}]
}

// PerformanceMetrics returns all step_performance_metrics samples for
// (step, resource).
func (d *DrySamples) PerformanceMetrics(step StepID, resource ResourceID) []StepPerformanceSample {
	return d.perfMetrics[pairKey{step, resource}]
}

// DeploymentMetric returns the deployment_metrics row for (step, resource).
func (d *DrySamples) DeploymentMetric(step StepID, resource ResourceID) (DeploymentSample, bool) {
	s, ok := d.deployment[pairKey{step, resource}]
	return s, ok
}

// HasSamples reports whether any step_metrics sample exists for (step,
// resource). The search driver uses it to build a step's eligible
// resources; the estimators look up their own sample tables directly.
func (d *DrySamples) HasSamples(step StepID, resource ResourceID) bool {
	return len(d.stepMetrics[pairKey{step, resource}]) > 0
}

// ForcedDeployment pins a step to a specific resource, removing every
// other (step, resource) pair from the search space for that step.
type ForcedDeployment struct {
	Step     StepID
	Resource ResourceID
}
