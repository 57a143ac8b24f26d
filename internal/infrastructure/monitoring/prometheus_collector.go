package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds the service metrics. A nil *Collector is a valid
// no-op receiver so tests can wire services without touching the
// default prometheus registry.
type Collector struct {
	requestsTotal       *prometheus.CounterVec
	resolveDuration     prometheus.Histogram
	upstreamErrorsTotal *prometheus.CounterVec
	proxyBytesTotal     prometheus.Counter
	proxyActiveStreams  prometheus.Gauge
	credentialValid     prometheus.Gauge
}

func NewCollector() *Collector {
	return &Collector{
		requestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "biligate_http_requests_total",
			Help: "Total number of HTTP requests by route and status",
		}, []string{"route", "status"}),

		resolveDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "biligate_resolve_duration_seconds",
			Help:    "Duration of full resolution chain passes",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}),

		upstreamErrorsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "biligate_upstream_errors_total",
			Help: "Total number of failed calls against the media platform",
		}, []string{"endpoint"}),

		proxyBytesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "biligate_proxy_bytes_total",
			Help: "Total number of bytes relayed through the streaming proxy",
		}),

		proxyActiveStreams: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "biligate_proxy_active_streams",
			Help: "Number of proxy streams currently being relayed",
		}),

		credentialValid: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "biligate_credential_valid",
			Help: "Whether the credential slot currently holds a live session (1) or not (0)",
		}),
	}
}

func (c *Collector) ObserveRequest(route string, status int) {
	if c == nil {
		return
	}
	c.requestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
}

func (c *Collector) ObserveResolveDuration(d time.Duration) {
	if c == nil {
		return
	}
	c.resolveDuration.Observe(d.Seconds())
}

func (c *Collector) IncUpstreamError(endpoint string) {
	if c == nil {
		return
	}
	c.upstreamErrorsTotal.WithLabelValues(endpoint).Inc()
}

func (c *Collector) AddProxyBytes(n int64) {
	if c == nil {
		return
	}
	c.proxyBytesTotal.Add(float64(n))
}

func (c *Collector) ProxyStreamStarted() {
	if c == nil {
		return
	}
	c.proxyActiveStreams.Inc()
}

func (c *Collector) ProxyStreamFinished() {
	if c == nil {
		return
	}
	c.proxyActiveStreams.Dec()
}

func (c *Collector) SetCredentialValid(valid bool) {
	if c == nil {
		return
	}
	if valid {
		c.credentialValid.Set(1)
	} else {
		c.credentialValid.Set(0)
	}
}

// RequestMetricsMiddleware records per-route request counts.
func RequestMetricsMiddleware(c *Collector) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.Next()

		route := ctx.FullPath()
		if route == "" {
			route = "unmatched"
		}
		c.ObserveRequest(route, ctx.Writer.Status())
	}
}
