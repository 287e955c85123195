package cats

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/catsched/cats/internal/catserr"
	"github.com/catsched/cats/internal/config"
	"github.com/catsched/cats/internal/csvio"
	"github.com/catsched/cats/internal/ingest"
	"github.com/catsched/cats/internal/model"
	"github.com/catsched/cats/internal/search"
)

var scheduleFlags struct {
	pipelinePath   string
	resourcesPath  string
	stepMetrics    string
	perfMetrics    string
	deploymentPath string
	forcedPath     string
	configPath     string
	deadline       float64
	budget         float64
	inputVolumeMB  float64
	maxScalability int
	workers        int
	timeout        time.Duration
	emitAllTies    bool
	outDir         string
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Search for the lowest-scoring feasible deployment of a pipeline",
	RunE:  runSchedule,
}

func init() {
	f := scheduleCmd.Flags()
	f.StringVar(&scheduleFlags.pipelinePath, "pipeline", "", "pipeline descriptor YAML (required)")
	f.StringVar(&scheduleFlags.resourcesPath, "resources", "", "resource/network descriptor YAML (required)")
	f.StringVar(&scheduleFlags.stepMetrics, "step-metrics", "", "step_metrics dry-run CSV (required)")
	f.StringVar(&scheduleFlags.perfMetrics, "perf-metrics", "", "step_performance_metrics dry-run CSV (required)")
	f.StringVar(&scheduleFlags.deploymentPath, "deployment-metrics", "", "deployment_metrics CSV (required)")
	f.StringVar(&scheduleFlags.forcedPath, "forced", "", "optional forced-deployment YAML")
	f.StringVar(&scheduleFlags.configPath, "config", "", "optional YAML run configuration, overridden by explicit flags")
	f.Float64Var(&scheduleFlags.deadline, "deadline", 0, "deadline in seconds (required unless set in --config)")
	f.Float64Var(&scheduleFlags.budget, "budget", 0, "budget in USD (required unless set in --config)")
	f.Float64Var(&scheduleFlags.inputVolumeMB, "input-volume-mb", 0, "operating input volume in MB (required unless set in --config)")
	f.IntVar(&scheduleFlags.maxScalability, "max-scalability", 0, "cap on replicas per scalable step (0: use config/default)")
	f.IntVar(&scheduleFlags.workers, "workers", 0, "search worker pool size (0: use config/default)")
	f.DurationVar(&scheduleFlags.timeout, "timeout", 0, "wall-clock search budget (0: unbounded)")
	f.BoolVar(&scheduleFlags.emitAllTies, "emit-all-ties", false, "emit every timeline tying for the minimum score, not just the first")
	f.StringVar(&scheduleFlags.outDir, "out-dir", "./timelines", "directory to write timeline_*.csv and summary_*.csv into")

	for _, name := range []string{"pipeline", "resources", "step-metrics", "perf-metrics", "deployment-metrics"} {
		if err := scheduleCmd.MarkFlagRequired(name); err != nil {
			panic(err)
		}
	}
}

func runSchedule(cmd *cobra.Command, args []string) error {
	cfg := config.DefaultRunConfig()
	if scheduleFlags.configPath != "" {
		loaded, err := config.LoadRunConfig(scheduleFlags.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	flags := cmd.Flags()
	if flags.Changed("deadline") {
		cfg.Scheduling.DeadlineSeconds = scheduleFlags.deadline
	}
	if flags.Changed("budget") {
		cfg.Scheduling.BudgetUSD = scheduleFlags.budget
	}
	if flags.Changed("input-volume-mb") {
		cfg.Scheduling.InputVolumeMB = scheduleFlags.inputVolumeMB
	}
	if scheduleFlags.maxScalability > 0 {
		cfg.Scheduling.MaxScalability = scheduleFlags.maxScalability
	}
	if scheduleFlags.workers > 0 {
		cfg.Concurrency.Workers = scheduleFlags.workers
	}
	if scheduleFlags.timeout > 0 {
		cfg.Concurrency.TimeoutSeconds = scheduleFlags.timeout.Seconds()
	}
	if flags.Changed("emit-all-ties") {
		cfg.Concurrency.EmitAllTies = scheduleFlags.emitAllTies
	}

	runID := uuid.New().String()
	logrus.Infof("cats schedule[%s]: pipeline=%s resources=%s deadline=%.0fs budget=$%.2f",
		runID, scheduleFlags.pipelinePath, scheduleFlags.resourcesPath, cfg.Scheduling.DeadlineSeconds, cfg.Scheduling.BudgetUSD)

	pipeline, err := ingest.LoadPipeline(scheduleFlags.pipelinePath)
	if err != nil {
		return err
	}
	network, err := ingest.LoadResources(scheduleFlags.resourcesPath)
	if err != nil {
		return err
	}
	samples := model.NewDrySamples()
	if err := ingest.LoadStepMetrics(scheduleFlags.stepMetrics, pipeline, network, samples); err != nil {
		return err
	}
	if err := ingest.LoadStepPerformanceMetrics(scheduleFlags.perfMetrics, pipeline, network, samples); err != nil {
		return err
	}
	if err := ingest.LoadDeploymentMetrics(scheduleFlags.deploymentPath, pipeline, network, samples); err != nil {
		return err
	}

	var forced map[model.StepID]model.ResourceID
	if scheduleFlags.forcedPath != "" {
		forced, err = ingest.LoadForcedDeployments(scheduleFlags.forcedPath, pipeline, network)
		if err != nil {
			return err
		}
	}

	cache := newEstimatorCache(pipeline, network, samples, cfg)
	driver := search.NewDriver(pipeline, network, samples, cache, cfg.SearchConfig(), forced)

	results, err := driver.Run(context.Background())
	if err != nil {
		return err
	}
	for _, entry := range driver.Trace().Entries() {
		logrus.Debugf("search: %s", entry)
	}

	logrus.Infof("search: %d timeline(s) tied for minimum score", len(results))

	if err := os.MkdirAll(scheduleFlags.outDir, 0o755); err != nil {
		return fmt.Errorf("cats schedule: creating %s: %w: %v", scheduleFlags.outDir, catserr.ErrMalformedInput, err)
	}
	for i, tl := range results {
		path := filepath.Join(scheduleFlags.outDir, fmt.Sprintf("timeline_%d.csv", i))
		if err := csvio.WriteTimeline(path, tl, pipeline, network); err != nil {
			return err
		}
		summaryPath := filepath.Join(scheduleFlags.outDir, fmt.Sprintf("summary_%d.csv", i))
		if err := csvio.WriteSummary(summaryPath, tl, cfg.Scheduling.DeadlineSeconds, cfg.Scheduling.BudgetUSD); err != nil {
			return err
		}
		logrus.Infof("wrote %s (total_time=%.2fs resource_cost=$%.4f)", path, tl.TotalTime(), tl.ResourceCost())
	}
	return nil
}
