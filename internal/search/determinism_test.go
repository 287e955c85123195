package search_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/catsched/cats/internal/estimator"
	"github.com/catsched/cats/internal/search"
)

// TestDeterminism_RepeatedRunsAgree is spec.md scenario 6: the same
// inputs and worker count must yield byte-identical output across runs
// (spec's testable property "two runs with identical inputs, identical
// worker count, and identical tie-break order produce identical output
// timelines").
func TestDeterminism_RepeatedRunsAgree(t *testing.T) {
	p, n, samples, _, _ := buildScalableConsumerFixture(t)
	cache := estimator.NewCache(p, n, samples, estimator.DefaultConfig(), 1)
	cfg := search.DefaultConfig()
	cfg.DeadlineSeconds = 1e6
	cfg.BudgetUSD = 1e6
	cfg.InputVolumeMB = 1
	cfg.MaxScalability = 5
	cfg.Workers = 4

	var canonical string
	for i := 0; i < 5; i++ {
		driver := search.NewDriver(p, n, samples, cache, cfg, nil)
		results, err := driver.Run(context.Background())
		require.NoError(t, err)
		require.Len(t, results, 1)
		got := results[0].Canonical()
		if i == 0 {
			canonical = got
			continue
		}
		require.Equal(t, canonical, got, "run %d diverged from run 0", i)
	}
}
