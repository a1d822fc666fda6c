package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusHandlerServesMetrics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/metrics", prometheusHandler())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestComputeApproximateRequestSize(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/plans", strings.NewReader("hello"))
	req.Header.Set("X-Trace-Id", "abc123")

	size := computeApproximateRequestSize(req)

	// path + method + proto + header + host + body, at minimum
	assert.Greater(t, size, len("/api/v1/plans")+len(http.MethodPost)+5)
}

func TestMillisecondsSince(t *testing.T) {
	start := time.Now().Add(-250 * time.Millisecond)

	elapsed := MillisecondsSince(start)

	assert.GreaterOrEqual(t, elapsed, 250.0)
	assert.Less(t, elapsed, 10000.0)
}
