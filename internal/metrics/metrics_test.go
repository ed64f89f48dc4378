package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, r *Recorder, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := r.Gatherer().Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, m := range family.GetMetric() {
			match := true
			for _, l := range m.GetLabel() {
				if want, ok := labels[l.GetName()]; ok && want != l.GetValue() {
					match = false
				}
			}
			if match {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func TestRecorderCounts(t *testing.T) {
	r := New()

	r.TokenAcquired("app", false, nil)
	r.TokenAcquired("app", true, nil)
	r.TokenAcquired("app", true, nil)
	r.TokenAcquired("ambient", false, errors.New("boom"))
	r.RequestCompleted("GET", 200, nil)
	r.RequestCompleted("GET", 503, nil)
	r.RequestCompleted("PATCH", 0, errors.New("reset"))
	r.IssueReconciled("closed")
	r.IssueReconciled("noop")
	r.IssueReconciled("noop")
	r.ReportGenerated("acme/api")

	assert.Equal(t, 2.0, counterValue(t, r, "linksync_token_acquisitions_total",
		map[string]string{"strategy": "app", "cached": "true", "result": "success"}))
	assert.Equal(t, 1.0, counterValue(t, r, "linksync_token_acquisitions_total",
		map[string]string{"strategy": "ambient", "result": "error"}))
	assert.Equal(t, 1.0, counterValue(t, r, "linksync_api_requests_total",
		map[string]string{"method": "GET", "outcome": "5xx"}))
	assert.Equal(t, 1.0, counterValue(t, r, "linksync_api_requests_total",
		map[string]string{"method": "PATCH", "outcome": "error"}))
	assert.Equal(t, 2.0, counterValue(t, r, "linksync_issues_reconciled_total",
		map[string]string{"outcome": "noop"}))
	assert.Equal(t, 1.0, counterValue(t, r, "linksync_reports_generated_total",
		map[string]string{"repository": "acme/api"}))
}

func TestWriteTextfile(t *testing.T) {
	r := New()
	r.IssueReconciled("closed")
	r.SetRateLimitRemaining(4200)

	path := filepath.Join(t.TempDir(), "linksync.prom")
	require.NoError(t, r.WriteTextfile(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `linksync_issues_reconciled_total{outcome="closed"} 1`)
	assert.Contains(t, string(raw), "linksync_rate_limit_remaining 4200")

	assert.Error(t, r.WriteTextfile(""))
}
