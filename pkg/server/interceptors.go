package server

import (
	"context"
	"log/slog"
	"runtime/debug"
	"time"

	f2prpc "file2pcie/pkg/api/f2prpc/v1"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// =============================================================================
// 1. Logging Interceptor
// =============================================================================

// UnaryLoggingInterceptor 记录每个请求的方法、状态码和耗时
func UnaryLoggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	logRPC(ctx, info.FullMethod, time.Since(start), resp, err)
	return resp, err
}

func logRPC(ctx context.Context, method string, duration time.Duration, resp any, err error) {
	st, _ := status.FromError(err)
	code := st.Code()

	level := slog.LevelInfo
	if code != codes.OK {
		if code == codes.Internal || code == codes.Unknown || code == codes.DataLoss {
			level = slog.LevelError
		} else {
			level = slog.LevelWarn
		}
	}

	attrs := []slog.Attr{
		slog.String("method", method),
		slog.String("code", code.String()),
		slog.Duration("dur", duration),
	}
	// 解析失败走的是响应里的结果码，这里一并记下
	if r, ok := resp.(*f2prpc.ResolveResponse); ok && r != nil {
		attrs = append(attrs,
			slog.String("result", r.CodeName),
			slog.Int("controllers", int(r.Count)))
	}
	if err != nil {
		attrs = append(attrs, slog.String("err", err.Error()))
	}
	slog.LogAttrs(ctx, level, "gRPC Request", attrs...)
}

// =============================================================================
// 2. Recovery Interceptor
// =============================================================================

// UnaryRecoveryInterceptor 把 panic 转成 Internal 错误，连接不断开
func UnaryRecoveryInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recoverFromPanic(info.FullMethod, r)
		}
	}()
	return handler(ctx, req)
}

func recoverFromPanic(method string, p any) error {
	slog.Error("🔥 PANIC RECOVERED",
		slog.String("method", method),
		slog.Any("panic", p),
		slog.String("stack", string(debug.Stack())),
	)
	return status.Errorf(codes.Internal, "internal server error: panic recovered")
}
