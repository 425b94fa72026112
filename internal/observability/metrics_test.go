package observability

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.ObserveAPI("GET", "/api/cases", "200", time.Millisecond)
	m.ObserveAnalysis("ok", time.Second)
	m.IncRFISend("sent")
	m.SetCaseGauges(map[string]int{"PENDING": 1}, nil)
	if err := m.WritePrometheus(&bytes.Buffer{}); err != nil {
		t.Fatalf("WritePrometheus on nil: %v", err)
	}
}

func TestWritePrometheusIsSortedAndLabelled(t *testing.T) {
	m := newMetrics()
	m.ObserveAPI("GET", "/api/cases", "200", 20*time.Millisecond)
	m.ObserveAnalysis("", 3*time.Second)
	m.ObserveAnalysis("AnalysisUnavailable", 40*time.Second)
	m.IncCaseEvent("case.verdict")
	m.SetCaseGauges(map[string]int{"PENDING": 2, "DENIED": 1}, map[string]int{"OVERDUE": 1})

	if got := m.analysisRequests.Value("ok"); got != 1 {
		t.Fatalf("analysis ok count: want=1 got=%v", got)
	}
	if got := m.analysisLatency.Count("AnalysisUnavailable"); got != 1 {
		t.Fatalf("analysis latency count: want=1 got=%d", got)
	}

	var buf bytes.Buffer
	if err := m.WritePrometheus(&buf); err != nil {
		t.Fatalf("WritePrometheus: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"# TYPE prism_api_requests_total counter",
		`prism_api_requests_total{method="GET",route="/api/cases",status="200"} 1`,
		`prism_analysis_duration_seconds_bucket{result="ok",le="5"} 1`,
		`prism_analysis_duration_seconds_bucket{result="AnalysisUnavailable",le="30"} 0`,
		`prism_analysis_duration_seconds_bucket{result="AnalysisUnavailable",le="+Inf"} 1`,
		`prism_case_events_total{type="case.verdict"} 1`,
		`prism_open_cases_by_urgency{urgency="OVERDUE"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
	denied := strings.Index(out, `prism_cases{status="DENIED"}`)
	pending := strings.Index(out, `prism_cases{status="PENDING"}`)
	if denied < 0 || pending < 0 || denied > pending {
		t.Fatalf("gauge series not sorted by label:\n%s", out)
	}
}

func TestLabelEscaping(t *testing.T) {
	got := labelString([]string{"route"}, []string{`a"b\c`})
	if got != `{route="a\"b\\c"}` {
		t.Fatalf("labelString: got=%s", got)
	}
	if withLe("", "1") != `{le="1"}` {
		t.Fatalf("withLe on empty labels")
	}
}
