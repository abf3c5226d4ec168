package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/danielpatrickdp/narrative-engine/internal/codec"
	"github.com/danielpatrickdp/narrative-engine/internal/content"
	"github.com/danielpatrickdp/narrative-engine/internal/orchestrator"
)

var (
	serveAddr    string
	serveMetrics string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve NarrationService over gRPC with Prometheus metrics",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "gRPC listen address (overrides config)")
	serveCmd.Flags().StringVar(&serveMetrics, "metrics-addr", "", "metrics listen address, empty to use config")
}

func runServe(cmd *cobra.Command, args []string) error {
	if serveAddr != "" {
		cfg.Addr = serveAddr
	}
	if serveMetrics != "" {
		cfg.MetricsAddr = serveMetrics
	}

	c, err := content.Load(cfg, logger)
	if err != nil {
		return err
	}
	rec, err := openRecorder()
	if err != nil {
		return err
	}
	defer rec.Close()

	factory := func(session string, seed uint64) (*orchestrator.Engine, error) {
		return c.NewEngine(seed, rec.options()...), nil
	}
	narration := codec.NewServer(factory, logger)

	lis, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Addr, err)
	}
	srv := grpc.NewServer()
	codec.RegisterNarrationServer(srv, narration)
	hs := health.NewServer()
	hs.SetServingStatus(codec.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(rec.metrics.Registry, promhttp.HandlerOpts{}))
	metricsSrv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("grpc listening", zap.String("addr", lis.Addr().String()))
		return srv.Serve(lis)
	})
	g.Go(func() error {
		logger.Info("metrics listening", zap.String("addr", cfg.MetricsAddr))
		if err := metricsSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down", zap.Int("sessions", narration.Sessions()))
		hs.Shutdown()
		srv.GracefulStop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return metricsSrv.Shutdown(shutdownCtx)
	})

	fmt.Printf("NarrationService ready.\n  gRPC: %s | metrics: %s | DB: %s\n", cfg.Addr, cfg.MetricsAddr, cfg.DB)
	return g.Wait()
}
