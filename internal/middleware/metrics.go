package middleware

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "chyll",
	Name:      "http_request_duration_seconds",
	Help:      "Time spent processing a route",
	Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
}, []string{"code", "method", "path"})

func init() {
	prometheus.MustRegister(httpRequestDuration)
}

// Metrics records per-route request durations and serves the Prometheus
// scrape endpoint at /metrics.
func Metrics() echo.MiddlewareFunc {
	promHandler := echo.WrapHandler(promhttp.Handler())

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().RequestURI == "/metrics" {
				return promHandler(c)
			}

			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			httpRequestDuration.
				WithLabelValues(strconv.Itoa(c.Response().Status), c.Request().Method, c.Path()).
				Observe(time.Since(start).Seconds())
			return err
		}
	}
}
