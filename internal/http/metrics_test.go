package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestHTTPMetrics_MetricsMiddleware(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m := NewHTTPMetrics(mp, nil)

	e := echo.New()
	e.Use(m.MetricsMiddleware())
	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.POST("/api/v1/feedback/:id", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "feedback request not found")
	})

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodGet, "/health", nil),
		httptest.NewRequest(http.MethodPost, "/api/v1/feedback/feedback_1", nil),
		httptest.NewRequest(http.MethodPost, "/api/v1/feedback/feedback_2", nil),
	} {
		e.ServeHTTP(httptest.NewRecorder(), req)
	}

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	counts := map[string]int64{}
	statuses := map[string]int64{}
	foundDuration := false
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			switch md.Name {
			case "nyx.http.requests_total":
				sum, ok := md.Data.(metricdata.Sum[int64])
				require.True(t, ok)
				for _, dp := range sum.DataPoints {
					endpoint, _ := dp.Attributes.Value(attribute.Key("endpoint"))
					status, _ := dp.Attributes.Value(attribute.Key("status"))
					counts[endpoint.AsString()] += dp.Value
					statuses[endpoint.AsString()] = status.AsInt64()
				}
			case "nyx.http.request_duration_seconds":
				foundDuration = true
			}
		}
	}

	assert.Equal(t, int64(1), counts["/health"])
	assert.Equal(t, int64(2), counts["/api/v1/feedback/:id"], "route template keeps ids out of labels")
	assert.Equal(t, int64(http.StatusNotFound), statuses["/api/v1/feedback/:id"])
	assert.True(t, foundDuration)
}

func TestNormalizePath(t *testing.T) {
	assert.Equal(t, "/", normalizePath(""))
	assert.Equal(t, "/api/v1/stats", normalizePath("/api/v1/stats"))
}
