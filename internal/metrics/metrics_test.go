package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCountersAndHandler(t *testing.T) {
	m := New()
	m.CalendarRenders.WithLabelValues("month").Inc()
	m.Reschedules.WithLabelValues("drop", "moved").Add(2)
	m.StaleDrops.Inc()

	if got := testutil.ToFloat64(m.Reschedules.WithLabelValues("drop", "moved")); got != 2 {
		t.Fatalf("expected 2 reschedules got %v", got)
	}

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))
	body := rr.Body.String()
	for _, want := range []string{
		`brandhub_calendar_renders_total{view="month"} 1`,
		"brandhub_stale_drops_total 1",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in exposition:\n%s", want, body)
		}
	}
}

func TestNewIsolatedRegistries(t *testing.T) {
	a, b := New(), New()
	a.StaleDrops.Inc()
	if testutil.ToFloat64(b.StaleDrops) != 0 {
		t.Fatalf("expected independent registries")
	}
}
