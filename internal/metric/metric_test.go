package metric

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cotpanel/cotpanel/internal/unit"
)

func gatherNames(t *testing.T, m *Metrics) map[string]bool {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	return names
}

func TestNewRegistersPanelMetrics(t *testing.T) {
	m := New()

	m.RecordHTTPRequest("GET", "/api/v1/service", 200, 5*time.Millisecond)
	m.RecordUnitAction("restart", nil)
	m.RecordUnitStatus(unit.StatusRunning)
	m.RecordConfigSave("ok")
	m.SetFollowSessions(2)
	m.SetWSClients(1)

	names := gatherNames(t, m)
	assert.True(t, names["cotpanel_http_requests_total"])
	assert.True(t, names["cotpanel_http_request_duration_seconds"])
	assert.True(t, names["cotpanel_unit_actions_total"])
	assert.True(t, names["cotpanel_unit_status"])
	assert.True(t, names["cotpanel_config_saves_total"])
	assert.True(t, names["cotpanel_journal_follow_sessions"])
	assert.True(t, names["cotpanel_websocket_clients"])

	// Runtime collectors come along too.
	assert.True(t, names["go_goroutines"])
}

func TestRecordUnitAction(t *testing.T) {
	m := New()

	m.RecordUnitAction("start", nil)
	m.RecordUnitAction("start", errors.New("boom"))

	families, err := m.Registry().Gather()
	require.NoError(t, err)

	results := make(map[string]float64)
	for _, mf := range families {
		if mf.GetName() != "cotpanel_unit_actions_total" {
			continue
		}
		for _, metric := range mf.GetMetric() {
			var result string
			for _, label := range metric.GetLabel() {
				if label.GetName() == "result" {
					result = label.GetValue()
				}
			}
			results[result] = metric.GetCounter().GetValue()
		}
	}

	assert.Equal(t, 1.0, results["ok"])
	assert.Equal(t, 1.0, results["error"])
}

func TestHandlerServesScrape(t *testing.T) {
	m := New()
	m.RecordUnitStatus(unit.StatusFailed)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	m.Handler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "cotpanel_unit_status 3")
}
