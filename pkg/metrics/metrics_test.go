package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCronJobMetrics_ExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)
	job := "abandoned_cart_cleanup"

	m.ObserveDuration(job, 250*time.Millisecond)
	m.IncSuccess(job)
	m.IncFailure(job)
	m.IncSkipped(job)
	m.IncSkipped(job)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.success.WithLabelValues(job)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.failure.WithLabelValues(job)))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.skipped.WithLabelValues(job)))

	count, err := testutil.GatherAndCount(reg, "cart_recovery_job_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestCaptureMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCaptureMetrics(reg)

	m.IncCapture("ajax", "inserted")
	m.IncCapture("ajax", "inserted")
	m.IncCapture("hook", "updated")
	m.IncFailure("upsert")
	m.IncCompletion(true)
	m.IncCompletion(false)
	m.AddDeleted(3)
	m.AddDeleted(0)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.captures.WithLabelValues("ajax", "inserted")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.captures.WithLabelValues("hook", "updated")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.failures.WithLabelValues("upsert")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.completions.WithLabelValues("true")))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.deleted))
}

func TestNilRecorders_AreSafe(t *testing.T) {
	var cron *CronJobMetrics
	var capture *CaptureMetrics

	assert.NotPanics(t, func() {
		cron.IncSuccess("job")
		cron.ObserveDuration("job", time.Second)
		capture.IncCapture("ajax", "inserted")
		capture.AddDeleted(5)
		NewCronJobMetrics(nil).IncFailure("job")
		NewCaptureMetrics(nil).IncCompletion(true)
	})
}
