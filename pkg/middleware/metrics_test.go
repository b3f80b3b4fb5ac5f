package middleware

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func testCounterValue(t *testing.T, labels ...string) float64 {
	t.Helper()
	return testutil.ToFloat64(httpRequestsTotal.WithLabelValues(labels...))
}
