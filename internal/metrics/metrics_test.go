package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/synopticspread/spread/internal/domain"
)

func TestRecordOutcomeIncrementsCorrectCounter(t *testing.T) {
	before := testutil.ToFloat64(jobsCompleted.WithLabelValues(domain.HRRR.String()))
	RecordOutcome(domain.HRRR, domain.StatusComplete)
	after := testutil.ToFloat64(jobsCompleted.WithLabelValues(domain.HRRR.String()))
	if after != before+1 {
		t.Fatalf("jobs_completed_total = %v, want %v", after, before+1)
	}

	beforeFail := testutil.ToFloat64(jobFailures.WithLabelValues(domain.NAM.String()))
	RecordOutcome(domain.NAM, domain.StatusError)
	afterFail := testutil.ToFloat64(jobFailures.WithLabelValues(domain.NAM.String()))
	if afterFail != beforeFail+1 {
		t.Fatalf("job_failures_total = %v, want %v", afterFail, beforeFail+1)
	}
}

func TestObserveJobDurationDoesNotPanic(t *testing.T) {
	ObserveJobDuration(domain.GFS, 12.5)
}
