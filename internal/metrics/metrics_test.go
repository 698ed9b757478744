package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func scrape(t *testing.T) string {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(PrometheusMiddleware())
	r.GET("/metrics", Handler())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	return w.Body.String()
}

func TestRecordersAppearInScrape(t *testing.T) {
	RecordScan("url", "MALICIOUS", 20*time.Millisecond)
	RecordCollector("redirect", time.Millisecond, true)
	RecordIntelFallback("virustotal", "no_credential")

	body := scrape(t)
	for _, want := range []string{
		`phishguard_scans_total{classification="MALICIOUS",mode="url"}`,
		`phishguard_collector_degraded_total{collector="redirect"}`,
		`phishguard_intel_fallback_total{cause="no_credential",service="virustotal"}`,
		`phishguard_collector_duration_seconds_bucket{collector="redirect"`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %s", want)
		}
	}
}

func TestMiddlewareLabelsUnmatchedPaths(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(PrometheusMiddleware())
	r.GET("/metrics", Handler())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))

	body := scrape(t)
	if !strings.Contains(body, `path="unmatched"`) {
		t.Errorf("expected unmatched path label in output")
	}
}
