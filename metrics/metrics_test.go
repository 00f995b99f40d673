package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()
	m.RecordAction("lead_phone")
	m.RecordAction("lead_phone")
	m.RecordPatch("ok", 0.02)
	m.RecordPatch("invalid", 0.001)
	m.RecordNotified(3)
	m.StreamOpened()
	m.StreamOpened()
	m.StreamClosed()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ActionsRecorded.WithLabelValues("lead_phone")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LeadPatches.WithLabelValues("invalid")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.RemindersNotified))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StreamClients))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.RecordDigest("sent")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `leads_reminder_digests_total{result="sent"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
