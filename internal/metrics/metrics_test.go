package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveUpload(StatusSuccess, time.Second)
	m.ObserveUpload(StatusError, 0)
	m.ObserveQuestion(StatusSuccess, 2*time.Second)
	m.ObserveQuestion(StatusNotReady, 0)
	m.ObserveQuestion(StatusNotReady, 0)
	m.SessionOpened()
	m.SessionOpened()
	m.SessionClosed()
	m.DocumentLoaded()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.UploadsTotal.WithLabelValues(StatusSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UploadsTotal.WithLabelValues(StatusError)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.QuestionsTotal.WithLabelValues(StatusNotReady)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActiveSessions))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LiveDocuments))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveUpload(StatusSuccess, time.Second)
		m.ObserveQuestion(StatusError, time.Second)
		m.ObserveFirstFragment(time.Millisecond)
		m.SessionOpened()
		m.SessionClosed()
		m.DocumentLoaded()
		m.DocumentReleased()
	})
}
