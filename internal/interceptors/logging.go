package interceptors

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const (
	RequestIDKey = "x-request-id"
)

type requestIDContextKey struct{}

// ContextWithRequestID stores a request id for RequestIDFromContext.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDContextKey{}, requestID)
}

// RequestIDFromContext returns the request id assigned by the logging interceptor
// or the HTTP request-id middleware.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDContextKey{}).(string)
	return id
}

func LoggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (resp any, err error) {
		start := time.Now()

		requestID := getOrGenerateRequestID(ctx)
		ctx = ContextWithRequestID(ctx, requestID)
		_ = grpc.SetHeader(ctx, metadata.Pairs(RequestIDKey, requestID))

		logger.Debug("gRPC request started",
			zap.String("method", info.FullMethod),
			zap.String("request_id", requestID),
		)

		resp, err = handler(ctx, req)

		logCompletion(logger, info.FullMethod, requestID, time.Since(start), err)
		return resp, err
	}
}

func StreamLoggingInterceptor(logger *zap.Logger) grpc.StreamServerInterceptor {
	return func(
		srv any,
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		start := time.Now()

		requestID := getOrGenerateRequestID(ss.Context())
		_ = ss.SetHeader(metadata.Pairs(RequestIDKey, requestID))

		logger.Info("gRPC stream started",
			zap.String("method", info.FullMethod),
			zap.String("request_id", requestID),
		)

		err := handler(srv, &wrappedStream{
			ServerStream: ss,
			ctx:          ContextWithRequestID(ss.Context(), requestID),
		})

		logCompletion(logger, info.FullMethod, requestID, time.Since(start), err)
		return err
	}
}

func logCompletion(logger *zap.Logger, method, requestID string, duration time.Duration, err error) {
	if err != nil {
		st, _ := status.FromError(err)
		logger.Warn("gRPC request failed",
			zap.String("method", method),
			zap.String("request_id", requestID),
			zap.Duration("duration", duration),
			zap.String("code", st.Code().String()),
			zap.Error(err),
		)
		return
	}

	logger.Info("gRPC request completed",
		zap.String("method", method),
		zap.String("request_id", requestID),
		zap.Duration("duration", duration),
	)
}

func getOrGenerateRequestID(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return uuid.New().String()
	}

	requestIDs := md.Get(RequestIDKey)
	if len(requestIDs) > 0 && requestIDs[0] != "" {
		return requestIDs[0]
	}

	return uuid.New().String()
}

// wrappedStream overrides the stream context.
type wrappedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (w *wrappedStream) Context() context.Context {
	return w.ctx
}
