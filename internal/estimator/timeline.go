package estimator

import (
	"fmt"
	"math"

	"github.com/catsched/cats/internal/catserr"
	"github.com/catsched/cats/internal/model"
)

// Kind tags which variant a TimelineEstimation is, per the tagged-variant
// design in spec §9: dispatch by tag, not by inheritance.
type Kind int

const (
	// KindProducer: the step has no asynchronous predecessor; its total
	// work scales with the global input volume.
	KindProducer Kind = iota
	// KindConsumer: the step consumes from an asynchronous predecessor;
	// its total work scales with that predecessor's delivered message
	// count, and it is the only kind that supports ScaleTo.
	KindConsumer
)

// TimelineEstimation is the common capability set shared by both
// variants, per spec §9.
type TimelineEstimation interface {
	Kind() Kind
	ProvisioningAndDeploymentTime() float64
	StepProcessingTime() float64
	DataTransmissionTime() float64
	NumberOfTransmittedInputs() float64
	NumberOfProducedOutputs() float64
	// TotalDuration is provisioning + processing + transmission, the
	// quantity a SchedulingEvent's duration is built from (spec I3: the
	// consumer event subsumes transfer time into its own duration).
	TotalDuration() float64
	// DataTransmissionBytes is the total bytes carried across the
	// incoming asynchronous edge for this estimation's full input share;
	// zero for KindProducer (nothing is received over an edge).
	DataTransmissionBytes() float64
	// ScaleTo re-derives this estimation for replica shareIndex of k
	// total replicas, partitioning NumberOfTransmittedInputs as
	// ceil(N/k), with the last replica taking the remainder (spec
	// §4.1 "Scaling operation semantics"). Deployment time is paid
	// independently on every replica. Only meaningful for KindConsumer;
	// KindProducer estimations are never scaled (producers are never
	// scalable per spec §3 — scalability requires an incoming
	// asynchronous, scalable-marked dependency).
	ScaleTo(k, shareIndex int) (TimelineEstimation, error)
}

// producerEstimation implements the producer variant: total duration is
// a closed-form function of the operating input volume.
type producerEstimation struct {
	provisioningSeconds       float64
	perInputProcessingSeconds float64
	totalInputs               float64
	totalOutputs              float64
}

func (e *producerEstimation) Kind() Kind                           { return KindProducer }
func (e *producerEstimation) ProvisioningAndDeploymentTime() float64 { return e.provisioningSeconds }
func (e *producerEstimation) StepProcessingTime() float64 {
	return e.totalInputs * e.perInputProcessingSeconds
}
func (e *producerEstimation) DataTransmissionTime() float64    { return 0 }
func (e *producerEstimation) DataTransmissionBytes() float64    { return 0 }
func (e *producerEstimation) NumberOfTransmittedInputs() float64 { return e.totalInputs }
func (e *producerEstimation) NumberOfProducedOutputs() float64   { return e.totalOutputs }
func (e *producerEstimation) TotalDuration() float64 {
	return e.provisioningSeconds + e.StepProcessingTime()
}
func (e *producerEstimation) ScaleTo(k, shareIndex int) (TimelineEstimation, error) {
	return nil, fmt.Errorf("estimator: producer estimations are not scalable")
}

// consumerEstimation implements the consumer variant: total duration is
// parameterized by how many inputs this instance actually processes,
// supporting scaling by shrinking that share.
type consumerEstimation struct {
	provisioningSeconds       float64
	perInputProcessingSeconds float64
	totalInputs               float64 // full share before any ScaleTo
	inputBytes                float64 // avg bytes received per input, from this step's own dry-run InputBytes column
	totalOutputs              float64
	bandwidthSecondsPerInput  float64 // per-input transfer time attributable to bandwidth alone
	fixedLatencySeconds       float64 // RTT paid once per instance's own transfer, not per input
}

func (e *consumerEstimation) Kind() Kind                           { return KindConsumer }
func (e *consumerEstimation) ProvisioningAndDeploymentTime() float64 { return e.provisioningSeconds }
func (e *consumerEstimation) StepProcessingTime() float64 {
	return e.totalInputs * e.perInputProcessingSeconds
}
func (e *consumerEstimation) DataTransmissionTime() float64 {
	if e.totalInputs <= 0 {
		return 0
	}
	return e.totalInputs*e.bandwidthSecondsPerInput + e.fixedLatencySeconds
}
func (e *consumerEstimation) DataTransmissionBytes() float64 {
	return e.totalInputs * e.inputBytes
}
func (e *consumerEstimation) NumberOfTransmittedInputs() float64 { return e.totalInputs }
func (e *consumerEstimation) NumberOfProducedOutputs() float64   { return e.totalOutputs }
func (e *consumerEstimation) TotalDuration() float64 {
	return e.provisioningSeconds + e.StepProcessingTime() + e.DataTransmissionTime()
}

func (e *consumerEstimation) ScaleTo(k, shareIndex int) (TimelineEstimation, error) {
	if k < 1 {
		return nil, fmt.Errorf("estimator: ScaleTo requires k >= 1, got %d", k)
	}
	if shareIndex < 0 || shareIndex >= k {
		return nil, fmt.Errorf("estimator: ScaleTo shareIndex %d out of range [0,%d)", shareIndex, k)
	}
	base := math.Ceil(e.totalInputs / float64(k))
	share := base
	if shareIndex == k-1 {
		// Last replica takes the remainder, per spec §4.1.
		share = e.totalInputs - base*float64(k-1)
		if share < 0 {
			share = 0
		}
	}
	outputShareRatio := 0.0
	if e.totalInputs > 0 {
		outputShareRatio = share / e.totalInputs
	}
	return &consumerEstimation{
		provisioningSeconds:       e.provisioningSeconds,
		perInputProcessingSeconds: e.perInputProcessingSeconds,
		totalInputs:               share,
		inputBytes:                e.inputBytes,
		totalOutputs:              e.totalOutputs * outputShareRatio,
		bandwidthSecondsPerInput:  e.bandwidthSecondsPerInput,
		fixedLatencySeconds:       e.fixedLatencySeconds,
	}, nil
}

// Estimate derives a TimelineEstimation for (step, producerResource,
// consumerResource, inputVolumeMB), per spec §4.1. If step has no
// asynchronous parent, producerResource is ignored for the purpose of
// data-transfer (there is nothing upstream to transfer from) and a
// producer-variant estimation is returned, whose total inputs scale with
// inputVolumeMB. If step does have an asynchronous parent, upstreamOutputs
// is the parent's NumberOfProducedOutputs() at the operating input volume
// (the caller resolves this level-by-level through the DAG, per spec
// §4.3); when upstreamOutputs is <= 0 the dry-run average is extrapolated
// by input volume instead, so a consumer step can still be estimated in
// isolation (e.g. in hardware-requirement-only contexts or tests).
// Returns ErrInsufficientSamples if the consumer resource has no
// step_metrics or deployment_metrics sample for this step.
func Estimate(pipeline *model.Pipeline, network *model.Network, samples *model.DrySamples, step model.StepID, producerResource, consumerResource model.ResourceID, inputVolumeMB, upstreamOutputs float64) (TimelineEstimation, error) {
	stepMetrics := samples.StepMetrics(step, consumerResource)
	if len(stepMetrics) == 0 {
		return nil, fmt.Errorf("estimator: timeline estimation for step %d on resource %d: %w", step, consumerResource, catserr.ErrInsufficientSamples)
	}
	deploy, ok := samples.DeploymentMetric(step, consumerResource)
	if !ok {
		return nil, fmt.Errorf("estimator: deployment metrics for step %d on resource %d: %w", step, consumerResource, catserr.ErrInsufficientSamples)
	}
	provisioning := deploy.AvgDownloadSeconds + deploy.AvgInstanceStartSeconds

	var sumInputs, sumOutputs, sumInputBytes, sumProcMillis float64
	for _, m := range stepMetrics {
		sumInputs += m.NumInputs
		sumOutputs += m.NumOutputs
		sumInputBytes += m.InputBytes
		sumProcMillis += m.StepProcessingMillis
	}
	n := float64(len(stepMetrics))
	avgInputs := sumInputs / n
	avgOutputs := sumOutputs / n
	avgProcMillisPerRun := sumProcMillis / n

	if avgInputs <= 0 {
		return nil, fmt.Errorf("estimator: step %d on resource %d has zero average inputs in dry run: %w", step, consumerResource, catserr.ErrInsufficientSamples)
	}
	perInputProcessingSeconds := (avgProcMillisPerRun / 1000.0) / avgInputs
	outputsPerInput := 0.0
	if avgInputs > 0 {
		outputsPerInput = avgOutputs / avgInputs
	}

	s := pipeline.Step(step)
	if s.IsProducer() {
		// Linear extrapolation from dry-run throughput to the operating
		// input volume, per spec §4.1 step 3.
		avgInputBytesMB := (sumInputBytes / n) / 1e6
		totalInputs := avgInputs
		if avgInputBytesMB > 0 {
			totalInputs = avgInputs * (inputVolumeMB / avgInputBytesMB)
		}
		return &producerEstimation{
			provisioningSeconds:       provisioning,
			perInputProcessingSeconds: perInputProcessingSeconds,
			totalInputs:               totalInputs,
			totalOutputs:              totalInputs * outputsPerInput,
		}, nil
	}

	// The data crossing the producer->consumer edge is what this step
	// receives, measured by its own dry-run InputBytes column, not what
	// it subsequently produces.
	avgInputBytesPerRun := sumInputBytes / n
	bytesPerInput := avgInputBytesPerRun / avgInputs

	// TransferTime bundles the edge's fixed RTT into any single call; split
	// it back out so the RTT is charged once per instance's transfer
	// rather than once per input (per-input bandwidth cost still scales
	// with totalInputs below).
	transferWithLatency, err := network.TransferTime(producerResource, consumerResource, bytesPerInput, 1)
	if err != nil {
		return nil, fmt.Errorf("estimator: %w", err)
	}
	fixedLatencySeconds, err := network.TransferTime(producerResource, consumerResource, 0, 1)
	if err != nil {
		return nil, fmt.Errorf("estimator: %w", err)
	}
	bandwidthSecondsPerInput := transferWithLatency - fixedLatencySeconds

	totalInputs := upstreamOutputs
	if totalInputs <= 0 {
		avgInputBytesMB := avgInputBytesPerRun / 1e6
		totalInputs = avgInputs
		if avgInputBytesMB > 0 {
			totalInputs = avgInputs * (inputVolumeMB / avgInputBytesMB)
		}
	}

	return &consumerEstimation{
		provisioningSeconds:       provisioning,
		perInputProcessingSeconds: perInputProcessingSeconds,
		totalInputs:               totalInputs,
		inputBytes:                bytesPerInput,
		totalOutputs:              totalInputs * outputsPerInput,
		bandwidthSecondsPerInput:  bandwidthSecondsPerInput,
		fixedLatencySeconds:       fixedLatencySeconds,
	}, nil
}
