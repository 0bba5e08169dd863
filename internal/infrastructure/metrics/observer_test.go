package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngineObserver(t *testing.T) {
	reg := prometheus.NewRegistry()
	o := NewEngineObserver(reg)

	o.AssignmentSucceeded(0.82, 1)
	o.AssignmentSucceeded(0.64, 2)
	o.AssignmentFailed("no_eligible")
	o.AssignmentFailed("no_eligible")
	o.AssignmentFailed("conflict_exhausted")
	o.ReservationConflict()
	o.ScoreComputed(3*time.Millisecond, false)
	o.ScoreComputed(0, true)
	o.QueueDepth(7)

	assert.Equal(t, 2.0, testutil.ToFloat64(o.assignments))
	assert.Equal(t, 2.0, testutil.ToFloat64(o.assignmentFailures.WithLabelValues("no_eligible")))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.assignmentFailures.WithLabelValues("conflict_exhausted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.reservationConflicts))
	assert.Equal(t, 7.0, testutil.ToFloat64(o.queueDepth))
	assert.Equal(t, 2, testutil.CollectAndCount(o.scoreDuration))
}

func TestEngineObserver_NilIsNoop(t *testing.T) {
	var o *EngineObserver
	assert.NotPanics(t, func() {
		o.AssignmentSucceeded(1, 1)
		o.AssignmentFailed("x")
		o.ReservationConflict()
		o.ScoreComputed(time.Second, false)
		o.QueueDepth(1)
	})
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	o := NewEngineObserver(reg)
	o.QueueDepth(3)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "service_desk_routing_dispatch_queue_depth 3")
}
