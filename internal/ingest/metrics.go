package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/catsched/cats/internal/catserr"
	"github.com/catsched/cats/internal/model"
)

// LoadStepMetrics reads a step_metrics CSV (spec §6 columns: dry_run_id,
// timestamp, step, resource, num_inputs, input_bytes, num_outputs,
// output_bytes, step_processing_ms, data_transmission_ms) and adds each
// row to samples, resolving step/resource names against pipeline/network.
func LoadStepMetrics(path string, pipeline *model.Pipeline, network *model.Network, samples *model.DrySamples) error {
	rows, err := readCSV(path)
	if err != nil {
		return err
	}
	for i, row := range rows {
		if len(row) < 10 {
			return fmt.Errorf("ingest: step_metrics %s row %d: expected 10 columns, got %d: %w", path, i, len(row), catserr.ErrMalformedInput)
		}
		step, resource, err := resolveStepResource(pipeline, network, row[2], row[3])
		if err != nil {
			return fmt.Errorf("ingest: step_metrics %s row %d: %w", path, i, err)
		}
		numInputs, e1 := parseFloat(row[4])
		inputBytes, e2 := parseFloat(row[5])
		numOutputs, e3 := parseFloat(row[6])
		outputBytes, e4 := parseFloat(row[7])
		procMs, e5 := parseFloat(row[8])
		transMs, e6 := parseFloat(row[9])
		if err := firstErr(e1, e2, e3, e4, e5, e6); err != nil {
			return fmt.Errorf("ingest: step_metrics %s row %d: %w: %v", path, i, catserr.ErrMalformedInput, err)
		}
		samples.AddStepMetric(model.StepMetricSample{
			DryRunID:               row[0],
			Step:                   step,
			Resource:               resource,
			NumInputs:              numInputs,
			InputBytes:             inputBytes,
			NumOutputs:             numOutputs,
			OutputBytes:            outputBytes,
			StepProcessingMillis:   procMs,
			DataTransmissionMillis: transMs,
		})
	}
	return nil
}

// LoadStepPerformanceMetrics reads a step_performance_metrics CSV (spec
// §6 columns: dry_run_id, timestamp, step, resource, max_cpu_pct,
// avg_cpu_pct, max_mem_mb).
func LoadStepPerformanceMetrics(path string, pipeline *model.Pipeline, network *model.Network, samples *model.DrySamples) error {
	rows, err := readCSV(path)
	if err != nil {
		return err
	}
	for i, row := range rows {
		if len(row) < 7 {
			return fmt.Errorf("ingest: step_performance_metrics %s row %d: expected 7 columns, got %d: %w", path, i, len(row), catserr.ErrMalformedInput)
		}
		step, resource, err := resolveStepResource(pipeline, network, row[2], row[3])
		if err != nil {
			return fmt.Errorf("ingest: step_performance_metrics %s row %d: %w", path, i, err)
		}
		maxCPU, e1 := parseFloat(row[4])
		avgCPU, e2 := parseFloat(row[5])
		maxMem, e3 := parseFloat(row[6])
		if err := firstErr(e1, e2, e3); err != nil {
			return fmt.Errorf("ingest: step_performance_metrics %s row %d: %w: %v", path, i, catserr.ErrMalformedInput, err)
		}
		samples.AddPerformanceMetric(model.StepPerformanceSample{
			DryRunID:  row[0],
			Step:      step,
			Resource:  resource,
			MaxCPUPct: maxCPU,
			AvgCPUPct: avgCPU,
			MaxMemMB:  maxMem,
		})
	}
	return nil
}

// LoadDeploymentMetrics reads a deployment_metrics CSV (spec §6 columns:
// step, resource, avg_download_seconds, avg_instance_start_seconds).
func LoadDeploymentMetrics(path string, pipeline *model.Pipeline, network *model.Network, samples *model.DrySamples) error {
	rows, err := readCSV(path)
	if err != nil {
		return err
	}
	for i, row := range rows {
		if len(row) < 4 {
			return fmt.Errorf("ingest: deployment_metrics %s row %d: expected 4 columns, got %d: %w", path, i, len(row), catserr.ErrMalformedInput)
		}
		step, resource, err := resolveStepResource(pipeline, network, row[0], row[1])
		if err != nil {
			return fmt.Errorf("ingest: deployment_metrics %s row %d: %w", path, i, err)
		}
		download, e1 := parseFloat(row[2])
		start, e2 := parseFloat(row[3])
		if err := firstErr(e1, e2); err != nil {
			return fmt.Errorf("ingest: deployment_metrics %s row %d: %w: %v", path, i, catserr.ErrMalformedInput, err)
		}
		samples.SetDeploymentMetric(model.DeploymentSample{
			Step:                    step,
			Resource:                resource,
			AvgDownloadSeconds:      download,
			AvgInstanceStartSeconds: start,
		})
	}
	return nil
}

func resolveStepResource(pipeline *model.Pipeline, network *model.Network, stepName, resourceName string) (model.StepID, model.ResourceID, error) {
	step, ok := pipeline.StepByName(stepName)
	if !ok {
		return model.InvalidStepID, model.InvalidResourceID, fmt.Errorf("unknown step %q: %w", stepName, catserr.ErrMalformedInput)
	}
	resource, ok := network.ResourceByName(resourceName)
	if !ok {
		return model.InvalidStepID, model.InvalidResourceID, fmt.Errorf("unknown resource %q: %w", resourceName, catserr.ErrMalformedInput)
	}
	return step, resource, nil
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}

func firstErr(errs ...error) error {
	for _, e := range errs {
		if e != nil {
			return e
		}
	}
	return nil
}

// readCSV opens path, skips the header row, and returns the remaining
// rows.
func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ingest: opening %s: %w: %v", path, catserr.ErrMalformedInput, err)
	}
	defer file.Close() //nolint:errcheck // read-only file

	reader := csv.NewReader(file)
	if _, err := reader.Read(); err != nil {
		return nil, fmt.Errorf("ingest: reading header from %s: %w: %v", path, catserr.ErrMalformedInput, err)
	}

	var rows [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ingest: reading %s: %w: %v", path, catserr.ErrMalformedInput, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
