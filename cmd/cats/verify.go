package cats

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/catsched/cats/internal/catserr"
	"github.com/catsched/cats/internal/csvio"
	"github.com/catsched/cats/internal/ingest"
	"github.com/catsched/cats/internal/timeline"
)

var verifyFlags struct {
	timelinePath  string
	pipelinePath  string
	resourcesPath string
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Re-check a produced timeline CSV against the scheduling invariants",
	RunE:  runVerify,
}

func init() {
	f := verifyCmd.Flags()
	f.StringVar(&verifyFlags.timelinePath, "timeline", "", "timeline CSV produced by `cats schedule` (required)")
	f.StringVar(&verifyFlags.pipelinePath, "pipeline", "", "pipeline descriptor YAML (required)")
	f.StringVar(&verifyFlags.resourcesPath, "resources", "", "resource/network descriptor YAML (required)")
	for _, name := range []string{"timeline", "pipeline", "resources"} {
		if err := verifyCmd.MarkFlagRequired(name); err != nil {
			panic(err)
		}
	}
}

func runVerify(cmd *cobra.Command, args []string) error {
	pipeline, err := ingest.LoadPipeline(verifyFlags.pipelinePath)
	if err != nil {
		return err
	}
	network, err := ingest.LoadResources(verifyFlags.resourcesPath)
	if err != nil {
		return err
	}
	tl, err := csvio.ReadTimeline(verifyFlags.timelinePath, pipeline, network)
	if err != nil {
		return err
	}

	// A round-tripped CSV carries no InputsCovered data (not part of the
	// CSV contract per csvio.ReadTimeline), so the I4 completeness check
	// is skipped here; I1 and I2 are checked in full.
	violations := timeline.CheckInvariants(tl, nil)
	if len(violations) == 0 {
		logrus.Infof("verify: %s satisfies all checked invariants", verifyFlags.timelinePath)
		return nil
	}
	for _, v := range violations {
		logrus.Errorf("verify: %s", v)
	}
	return fmt.Errorf("cats verify: %s: %d invariant violation(s): %w", verifyFlags.timelinePath, len(violations), catserr.ErrReservationConflict)
}
