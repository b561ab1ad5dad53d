package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"file2pcie/pkg/app"
	"file2pcie/pkg/config"
	"file2pcie/pkg/logging"
	"file2pcie/pkg/server"
	"file2pcie/pkg/service"

	"github.com/spf13/viper"
)

func main() {
	// 1. Load Config
	cfgFile := flag.String("config", "", "config file (default is $HOME/.f2p/config.yaml)")
	addr := flag.String("addr", "", "listen address (overrides server.addr)")
	flag.Parse()

	if err := config.Load(*cfgFile); err != nil {
		log.Fatalf("❌ Config error: %v", err)
	}
	if _, err := logging.Setup(os.Stderr, viper.GetString(config.KeyLogLevel), viper.GetString(config.KeyLogFormat)); err != nil {
		log.Fatalf("❌ Logging error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. Init Core Application
	application, err := app.NewApp(ctx)
	if err != nil {
		log.Fatalf("❌ Failed to initialize app: %v", err)
	}
	defer application.Close()
	slog.Info("f2p core initialized",
		slog.String("sysfs", application.Sysfs.Root()),
		slog.Bool("history", application.History != nil),
		slog.Bool("reports", application.Reports != nil))

	// 3. Setup Network
	listenAddr := viper.GetString(config.KeyServer)
	if *addr != "" {
		listenAddr = *addr
	}
	lis, err := net.Listen("tcp", listenAddr)
	if err != nil {
		log.Fatalf("❌ Failed to listen on %s: %v", listenAddr, err)
	}

	// 4. Setup gRPC Server
	grpcServer := server.New(service.NewPlacementService(application))

	// 5. Serve until SIGINT/SIGTERM
	slog.Info("gRPC server listening", slog.String("addr", lis.Addr().String()))
	if err := server.Serve(ctx, grpcServer, lis); err != nil {
		slog.Error("server stopped with error", slog.Any("err", err))
		application.Close()
		os.Exit(1)
	}
	slog.Info("server stopped")
}
