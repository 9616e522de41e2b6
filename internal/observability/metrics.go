package observability

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roomloop_http_requests_total",
			Help: "Total number of HTTP requests processed by the roomloop service.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "roomloop_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	grpcServerHandledTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grpc_server_handled_total",
			Help: "Total number of gRPC requests handled by the server.",
		},
		[]string{"grpc_service", "grpc_method", "grpc_code"},
	)
	wsActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "roomloop_ws_active_connections",
			Help: "Number of active websocket connections.",
		},
	)
	wsEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roomloop_ws_events_total",
			Help: "Total number of websocket lifecycle and client frame events.",
		},
		[]string{"event"},
	)
	fanoutDeliveredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roomloop_fanout_delivered_total",
			Help: "Frames queued to websocket connections, by event type.",
		},
		[]string{"type"},
	)
	fanoutDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roomloop_fanout_dropped_total",
			Help: "Frames dropped because a connection queue was full, by event type.",
		},
		[]string{"type"},
	)
	notificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roomloop_notifications_created_total",
			Help: "Notifications persisted, by notification type.",
		},
		[]string{"type"},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "roomloop_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		grpcServerHandledTotal,
		wsActiveConnections,
		wsEventsTotal,
		fanoutDeliveredTotal,
		fanoutDroppedTotal,
		notificationsTotal,
		amqpPublishErrorsTotal,
	)
}

func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()

		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func GRPCServerMetricsUnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		resp, err := handler(ctx, req)
		statusInfo := status.Convert(err)
		service, method := splitFullMethod(info.FullMethod)
		grpcServerHandledTotal.WithLabelValues(service, method, statusInfo.Code().String()).Inc()
		return resp, err
	}
}

func splitFullMethod(fullMethod string) (string, string) {
	parts := strings.Split(fullMethod, "/")
	if len(parts) < 3 {
		return "unknown", "unknown"
	}
	return parts[1], parts[2]
}

func IncWSActive() {
	wsActiveConnections.Inc()
}

func DecWSActive() {
	wsActiveConnections.Dec()
}

func IncWSEvent(event string) {
	wsEventsTotal.WithLabelValues(event).Inc()
}

func IncFanoutDelivered(eventType string) {
	fanoutDeliveredTotal.WithLabelValues(eventType).Inc()
}

func IncFanoutDropped(eventType string) {
	fanoutDroppedTotal.WithLabelValues(eventType).Inc()
}

func IncNotification(notificationType string) {
	notificationsTotal.WithLabelValues(notificationType).Inc()
}

func IncAMQPPublishError() {
	amqpPublishErrorsTotal.Inc()
}
