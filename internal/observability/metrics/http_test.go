package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveToolInvocation(t *testing.T) {
	before := testutil.ToFloat64(toolInvocations.WithLabelValues("hedera_delete_topic", "error", "INVALID_INPUT"))
	ObserveToolInvocation("hedera_delete_topic", "error", "INVALID_INPUT", 20*time.Millisecond)
	after := testutil.ToFloat64(toolInvocations.WithLabelValues("hedera_delete_topic", "error", "INVALID_INPUT"))
	if after-before != 1 {
		t.Fatalf("expected counter to grow by 1, got %v", after-before)
	}
}

func TestHandlerExposesHTTPMetrics(t *testing.T) {
	ObserveHTTPRequest("tools.invoke", http.MethodPost, http.StatusBadGateway, 30*time.Millisecond)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	text := string(body)

	for _, want := range []string{
		`hederakit_http_requests_total{code="502",handler="tools.invoke",method="POST"}`,
		`hederakit_http_request_errors_total{handler="tools.invoke",method="POST"}`,
		`hederakit_http_request_duration_seconds_bucket{handler="tools.invoke",method="POST",le="0.05"} `,
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("metrics output missing %s", want)
		}
	}
}
