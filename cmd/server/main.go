package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/light-bringer/storefront-catalog/internal/config"
	"github.com/light-bringer/storefront-catalog/internal/obs"
	"github.com/light-bringer/storefront-catalog/internal/services"
	grpccatalog "github.com/light-bringer/storefront-catalog/internal/transport/grpc/catalog"
	httphandler "github.com/light-bringer/storefront-catalog/internal/transport/http"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Failed to run server: %v", err)
	}
}

func run() error {
	// 1. Configuration (.env, then the environment)
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := obs.NewLogger(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting storefront catalog",
		zap.String("metadata_backend", cfg.MetadataBackend),
		zap.String("asset_backend", cfg.AssetBackend),
		zap.String("http_addr", cfg.HTTPAddr),
		zap.String("grpc_addr", cfg.GRPCAddr),
		zap.Bool("nats_relay", cfg.NATSRelay),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. Dependencies
	svc, err := services.NewServiceOptions(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize service: %w", err)
	}
	defer svc.Close()

	svc.MountViews(ctx)
	defer svc.UnmountViews()

	// 3. gRPC: health and reflection
	grpcServer := grpc.NewServer()
	health := grpccatalog.NewHealthReporter(svc.Ready, grpccatalog.DefaultProbeInterval, logger)
	health.Register(grpcServer)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on gRPC address: %w", err)
	}

	// 4. HTTP
	handler := httphandler.NewHandler(httphandler.Deps{
		SetMetadata:  svc.SetMetadata,
		DeleteAsset:  svc.DeleteAsset,
		UploadAsset:  svc.UploadAsset,
		GetProduct:   svc.GetProduct,
		ListProducts: svc.ListProducts,
		FindOrphans:  svc.FindOrphans,
		CatalogStats: svc.CatalogStats,
		Home:         svc.Home,
		Gallery:      svc.Gallery,
		Admin:        svc.Admin,
		Bus:          svc.Bus,
		Ready:        svc.Ready,
		Metrics:      svc.Metrics.Handler(),
		Log:          logger,
	})
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		health.Run(gctx)
		return nil
	})

	g.Go(func() error {
		logger.Info("gRPC server listening", zap.String("addr", lis.Addr().String()))
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("gRPC server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		logger.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server: %w", err)
		}
		return nil
	})

	// 5. Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down gracefully", zap.Duration("timeout", cfg.ShutdownTimeout))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("HTTP server shutdown error", zap.Error(err))
		}

		stopped := make(chan struct{})
		go func() {
			grpcServer.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-shutdownCtx.Done():
			grpcServer.Stop()
		}
		return nil
	})

	return g.Wait()
}
