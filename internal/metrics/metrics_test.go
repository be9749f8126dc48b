package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveRecord(t *testing.T) {
	before := testutil.ToFloat64(recordsTotal.WithLabelValues(OutcomeDuplicate))
	ObserveRecord(OutcomeDuplicate)
	ObserveRecord(OutcomeDuplicate)
	assert.Equal(t, before+2, testutil.ToFloat64(recordsTotal.WithLabelValues(OutcomeDuplicate)))
}

func TestObserveJobAndInFlight(t *testing.T) {
	ObserveJob("ingest", "failed", "cancelled", 2*time.Second)
	assert.Equal(t, float64(1), testutil.ToFloat64(jobsTotal.WithLabelValues("ingest", "failed", "cancelled")))

	IncrementInFlight()
	assert.Equal(t, float64(1), testutil.ToFloat64(jobsInFlight))
	DecrementInFlight()
	assert.Equal(t, float64(0), testutil.ToFloat64(jobsInFlight))
}
