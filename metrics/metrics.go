package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

const namespace = "shop"

// CloudWatch metric names.
const (
	MetricOrdersCreated     = "OrdersCreated"
	MetricOrdersPaid        = "OrdersPaid"
	MetricOrdersCancelled   = "OrdersCancelled"
	MetricCheckoutFailed    = "CheckoutFailed"
	MetricOrderValue        = "OrderValue"
	MetricInventoryReserved = "InventoryReserved"
	MetricInventoryReleased = "InventoryReleased"
	MetricCacheHits         = "CacheHits"
	MetricCacheMisses       = "CacheMisses"
)

// Recorder is the business metrics surface used by the services.
type Recorder interface {
	CheckoutCompleted(ctx context.Context, total decimal.Decimal, units int)
	CheckoutFailed(ctx context.Context, reason string)
	StockReleased(ctx context.Context, units int)
	OrderTransitioned(ctx context.Context, status string)
	CacheLookup(ctx context.Context, hit bool)
}

// CountRecorder is satisfied by the CloudWatch metrics client.
type CountRecorder interface {
	RecordCount(ctx context.Context, metricName string, dimensions map[string]string) error
	RecordValue(ctx context.Context, metricName string, value float64, dimensions map[string]string) error
	IsEnabled() bool
}

type Nop struct{}

func (Nop) CheckoutCompleted(context.Context, decimal.Decimal, int) {}
func (Nop) CheckoutFailed(context.Context, string)                  {}
func (Nop) StockReleased(context.Context, int)                      {}
func (Nop) OrderTransitioned(context.Context, string)               {}
func (Nop) CacheLookup(context.Context, bool)                       {}

// Business fans business events out to Prometheus and, when enabled, CloudWatch.
type Business struct {
	Checkouts    *prometheus.CounterVec
	StockUnits   *prometheus.CounterVec
	Transitions  *prometheus.CounterVec
	CacheLookups *prometheus.CounterVec
	OrderValue   prometheus.Histogram

	cloudwatch CountRecorder
	service    string
}

func NewBusiness(reg prometheus.Registerer, service string, cw CountRecorder) *Business {
	b := &Business{
		Checkouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkouts_total",
			Help:      "Checkout attempts by result.",
		}, []string{"result"}),
		StockUnits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_units_total",
			Help:      "Stock units reserved or released.",
		}, []string{"direction"}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_transitions_total",
			Help:      "Order status transitions.",
		}, []string{"status"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_cache_lookups_total",
			Help:      "Catalog cache lookups by result.",
		}, []string{"result"}),
		OrderValue: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "order_value",
			Help:      "Order total at checkout.",
			Buckets:   []float64{10, 50, 100, 500, 1000, 5000, 10000, 50000},
		}),
		cloudwatch: cw,
		service:    service,
	}
	reg.MustRegister(b.Checkouts, b.StockUnits, b.Transitions, b.CacheLookups, b.OrderValue)
	return b
}

func (b *Business) CheckoutCompleted(ctx context.Context, total decimal.Decimal, units int) {
	b.Checkouts.WithLabelValues("success").Inc()
	b.StockUnits.WithLabelValues("reserved").Add(float64(units))
	value := total.InexactFloat64()
	b.OrderValue.Observe(value)
	b.Transitions.WithLabelValues("NEW").Inc()

	b.push(func(ctx context.Context, cw CountRecorder, dims map[string]string) {
		_ = cw.RecordCount(ctx, MetricOrdersCreated, dims)
		_ = cw.RecordValue(ctx, MetricOrderValue, value, dims)
		_ = cw.RecordValue(ctx, MetricInventoryReserved, float64(units), dims)
	})
}

func (b *Business) CheckoutFailed(ctx context.Context, reason string) {
	b.Checkouts.WithLabelValues(reason).Inc()
	b.push(func(ctx context.Context, cw CountRecorder, dims map[string]string) {
		dims["Reason"] = reason
		_ = cw.RecordCount(ctx, MetricCheckoutFailed, dims)
	})
}

func (b *Business) StockReleased(ctx context.Context, units int) {
	b.StockUnits.WithLabelValues("released").Add(float64(units))
	b.push(func(ctx context.Context, cw CountRecorder, dims map[string]string) {
		_ = cw.RecordValue(ctx, MetricInventoryReleased, float64(units), dims)
	})
}

func (b *Business) OrderTransitioned(ctx context.Context, status string) {
	b.Transitions.WithLabelValues(status).Inc()
	name := MetricOrdersPaid
	if status == "CANCELLED" {
		name = MetricOrdersCancelled
	}
	b.push(func(ctx context.Context, cw CountRecorder, dims map[string]string) {
		_ = cw.RecordCount(ctx, name, dims)
	})
}

func (b *Business) CacheLookup(ctx context.Context, hit bool) {
	result, name := "miss", MetricCacheMisses
	if hit {
		result, name = "hit", MetricCacheHits
	}
	b.CacheLookups.WithLabelValues(result).Inc()
	b.push(func(ctx context.Context, cw CountRecorder, dims map[string]string) {
		_ = cw.RecordCount(ctx, name, dims)
	})
}

// push records to CloudWatch asynchronously to avoid blocking the request.
func (b *Business) push(fn func(ctx context.Context, cw CountRecorder, dims map[string]string)) {
	if b.cloudwatch == nil || !b.cloudwatch.IsEnabled() {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		fn(ctx, b.cloudwatch, map[string]string{"Service": b.service})
	}()
}

// Server holds the HTTP collectors.
type Server struct {
	Requests  *prometheus.CounterVec
	LatencyMS *prometheus.HistogramVec
}

func NewServer(reg prometheus.Registerer) *Server {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"method", "handler", "status"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_ms",
		Help:      "HTTP request latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"method", "handler"})

	reg.MustRegister(requests, latency)
	return &Server{Requests: requests, LatencyMS: latency}
}

func (s *Server) Observe(method, handler string, status int, d time.Duration) {
	s.Requests.WithLabelValues(method, handler, strconv.Itoa(status)).Inc()
	s.LatencyMS.WithLabelValues(method, handler).Observe(float64(d.Milliseconds()))
}

func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
