package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
)

func TestCollectorCounters(t *testing.T) {
	mc := NewCollector(zap.NewNop())

	mc.RecordQuery("ok")
	mc.RecordQuery("ok")
	mc.RecordQuery("throttled")
	mc.RecordRetryPause()
	mc.RecordKeyFailed()
	mc.RecordRowProcessed()
	mc.RecordRowProcessed()
	mc.RecordRowSkipped()

	if got := testutil.ToFloat64(mc.queriesTotal.WithLabelValues("ok")); got != 2 {
		t.Errorf("queries ok = %v, want 2", got)
	}
	if got := testutil.ToFloat64(mc.queriesTotal.WithLabelValues("throttled")); got != 1 {
		t.Errorf("queries throttled = %v, want 1", got)
	}
	if got := testutil.ToFloat64(mc.retryPauses); got != 1 {
		t.Errorf("retry pauses = %v, want 1", got)
	}
	if got := testutil.ToFloat64(mc.keysFailed); got != 1 {
		t.Errorf("keys failed = %v, want 1", got)
	}
	if got := testutil.ToFloat64(mc.rowsProcessed); got != 2 {
		t.Errorf("rows processed = %v, want 2", got)
	}
	if got := testutil.ToFloat64(mc.rowsSkipped); got != 1 {
		t.Errorf("rows skipped = %v, want 1", got)
	}
}

func TestCollectorsDoNotCollide(t *testing.T) {
	// Each run owns a private registry, so building two collectors in one
	// process must not panic on duplicate registration.
	a := NewCollector(zap.NewNop())
	b := NewCollector(zap.NewNop())
	a.RecordQuery("ok")
	b.RecordQuery("ok")

	if got := testutil.ToFloat64(a.queriesTotal.WithLabelValues("ok")); got != 1 {
		t.Errorf("collector a = %v, want 1", got)
	}
}

func TestLogSummaryGathersAllFamilies(t *testing.T) {
	mc := NewCollector(zap.NewNop())
	mc.RecordQuery("server_error")
	mc.RecordRowProcessed()

	families, err := mc.Registry().Gather()
	if err != nil {
		t.Fatal(err)
	}
	if len(families) == 0 {
		t.Fatal("no metric families gathered")
	}

	mc.LogSummary()
}
