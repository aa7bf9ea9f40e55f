package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"ptoj-judger/internal/metrics"
)

func TestRegistryCollectorsAreUsable(t *testing.T) {
	t.Parallel()

	reg := metrics.NewTestRegistry()

	reg.SubmissionsTotal.WithLabelValues("Accepted").Inc()
	reg.QueueWaitSeconds.Observe(0.25)
	reg.ActiveWorkers.Inc()
	reg.ActiveWorkers.Dec()

	if got := testutil.ToFloat64(reg.SubmissionsTotal.WithLabelValues("Accepted")); got != 1 {
		t.Fatalf("expected submissions_total=1, got %v", got)
	}
	if got := testutil.ToFloat64(reg.ActiveWorkers); got != 0 {
		t.Fatalf("expected active_workers back to 0, got %v", got)
	}
}
