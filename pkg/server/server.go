// Package server 组装 gRPC 服务端
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"time"

	f2prpc "file2pcie/pkg/api/f2prpc/v1"

	"google.golang.org/grpc"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/reflection"
)

// New 创建注册了 PlacementService 的服务端
// 拦截器顺序：recovery 在最外层，保证 logging 里的 panic 也能被兜住
func New(svc f2prpc.PlacementServiceServer, opts ...grpc.ServerOption) *grpc.Server {
	opts = append([]grpc.ServerOption{
		grpc.ChainUnaryInterceptor(UnaryRecoveryInterceptor, UnaryLoggingInterceptor),
		// 客户端每 10s 发一次 keepalive ping
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             5 * time.Second,
			PermitWithoutStream: true,
		}),
	}, opts...)

	s := grpc.NewServer(opts...)
	f2prpc.RegisterPlacementServiceServer(s, svc)

	// grpcurl 等工具可以列出服务
	reflection.Register(s)
	return s
}

// Serve 在 lis 上服务直到 ctx 结束，然后优雅退出
func Serve(ctx context.Context, s *grpc.Server, lis net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Serve(lis)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		slog.Info("shutting down gRPC server", slog.String("addr", lis.Addr().String()))
		s.GracefulStop()
		// Serve 还没来得及启动就被停掉时会返回 ErrServerStopped
		if err := <-errCh; err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return err
		}
		return nil
	}
}
