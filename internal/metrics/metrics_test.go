package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordSourceFetch(t *testing.T) {
	before := testutil.ToFloat64(SourceFetchesTotal.WithLabelValues("video", SourceContributed))

	RecordSourceFetch("video", SourceContributed, 300*time.Millisecond)

	after := testutil.ToFloat64(SourceFetchesTotal.WithLabelValues("video", SourceContributed))
	if after != before+1 {
		t.Fatalf("counter = %v, want %v", after, before+1)
	}
}

func TestRecordPipelineRun(t *testing.T) {
	before := testutil.ToFloat64(PipelineRunsTotal.WithLabelValues("skipped"))

	RecordPipelineRun("skipped", 0, time.Second)

	if got := testutil.ToFloat64(PipelineRunsTotal.WithLabelValues("skipped")); got != before+1 {
		t.Fatalf("counter = %v, want %v", got, before+1)
	}
}

func TestRecordRefreshDue(t *testing.T) {
	RecordRefreshDue(7)
	if got := testutil.ToFloat64(RefreshDueProfiles); got != 7 {
		t.Fatalf("gauge = %v, want 7", got)
	}
}
