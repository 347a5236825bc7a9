package interceptors

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

var (
	grpcRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grpc_requests_total",
			Help: "Total number of gRPC requests",
		},
		[]string{"method", "code"},
	)

	grpcRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "grpc_request_duration_seconds",
			Help:    "Histogram of gRPC request durations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	grpcActiveStreams = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "grpc_active_streams",
			Help: "Number of open gRPC server streams",
		},
		[]string{"method"},
	)
)

func MetricsInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (resp any, err error) {
		start := time.Now()

		resp, err = handler(ctx, req)

		grpcRequestDuration.WithLabelValues(info.FullMethod).Observe(time.Since(start).Seconds())
		grpcRequestsTotal.WithLabelValues(info.FullMethod, statusCode(err)).Inc()

		return resp, err
	}
}

// StreamMetricsInterceptor counts streams by result code and tracks how many are open.
func StreamMetricsInterceptor() grpc.StreamServerInterceptor {
	return func(
		srv any,
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		grpcActiveStreams.WithLabelValues(info.FullMethod).Inc()
		defer grpcActiveStreams.WithLabelValues(info.FullMethod).Dec()

		err := handler(srv, ss)
		grpcRequestsTotal.WithLabelValues(info.FullMethod, statusCode(err)).Inc()
		return err
	}
}

func statusCode(err error) string {
	if err == nil {
		return "OK"
	}
	st, _ := status.FromError(err)
	return st.Code().String()
}
