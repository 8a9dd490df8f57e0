package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/HerbHall/kioskwatch/internal/clock"
	"github.com/HerbHall/kioskwatch/internal/config"
	"github.com/HerbHall/kioskwatch/internal/event"
	"github.com/HerbHall/kioskwatch/internal/hub"
	"github.com/HerbHall/kioskwatch/internal/kiosk"
	"github.com/HerbHall/kioskwatch/internal/lookup"
	"github.com/HerbHall/kioskwatch/internal/mqttingest"
	"github.com/HerbHall/kioskwatch/internal/registry"
	"github.com/HerbHall/kioskwatch/internal/scanner"
	"github.com/HerbHall/kioskwatch/internal/server"
	"github.com/HerbHall/kioskwatch/internal/store"
	"github.com/HerbHall/kioskwatch/internal/sysmetrics"
	"github.com/HerbHall/kioskwatch/internal/telemetry"
	"github.com/HerbHall/kioskwatch/internal/version"
	"github.com/HerbHall/kioskwatch/pkg/plugin"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Info())
		return
	}

	logger, err := zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(*configPath, logger); err != nil {
		logger.Fatal("kioskwatch failed", zap.Error(err))
	}
}

func run(configPath string, logger *zap.Logger) error {
	logger.Info("KioskWatch starting", zap.String("version", version.Short()))

	v, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	cfg := config.New(v)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Shared core.
	clk := clock.Real()
	bus := event.NewBus(logger.Named("bus"))
	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := telemetry.New(promReg)
	kiosks := kiosk.NewRegistry(clk, bus, logger.Named("registry"))

	var thresholds sysmetrics.Thresholds
	if err := cfg.Sub("thresholds").Unmarshal(&thresholds); err != nil {
		return fmt.Errorf("thresholds: %w", err)
	}
	sampler := sysmetrics.NewSampler(
		sysmetrics.NewCollector(cfg.GetString("modules.metrics.disk_path"), logger.Named("sysmetrics")),
		thresholds, clk, logger.Named("metrics"),
	)

	db, err := store.New(cfg.GetString("lookup.db_path"))
	if err != nil {
		return fmt.Errorf("open lookup database: %w", err)
	}
	defer db.Close()
	records, err := lookup.NewSQLiteProvider(ctx, db)
	if err != nil {
		return err
	}
	if seed := cfg.GetString("lookup.seed_file"); seed != "" {
		n, err := lookup.SeedFile(ctx, records, seed)
		if err != nil {
			return fmt.Errorf("seed lookup records: %w", err)
		}
		logger.Info("lookup records seeded", zap.String("file", seed), zap.Int("records", n))
	}

	// Modules, composed at compile time.
	reg := registry.New(logger.Named("modules"))
	modules := []plugin.Plugin{
		kiosk.New(kiosks, metrics),
		hub.NewModule(kiosks, sampler, clk, metrics),
		scanner.New(records, clk, metrics),
		mqttingest.New(kiosks, metrics),
		sysmetrics.NewModule(sampler),
	}
	for _, m := range modules {
		if err := reg.Register(m); err != nil {
			return fmt.Errorf("register module: %w", err)
		}
	}
	if err := reg.Validate(); err != nil {
		return fmt.Errorf("validate modules: %w", err)
	}

	deps := func(name string) plugin.Dependencies {
		return plugin.Dependencies{
			Config: cfg.Sub("modules." + name),
			Logger: logger.Named(name),
			Bus:    bus,
		}
	}
	if err := reg.InitAll(ctx, deps); err != nil {
		return fmt.Errorf("initialize modules: %w", err)
	}
	if err := reg.StartAll(ctx); err != nil {
		reg.StopAll(context.Background())
		return fmt.Errorf("start modules: %w", err)
	}

	addr := net.JoinHostPort(cfg.GetString("server.host"), cfg.GetString("server.port"))
	srv := server.New(addr, reg, promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}), logger.Named("server"))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		// Modules stop first so WebSocket subscribers are released before
		// the HTTP server waits on its connections.
		reg.StopAll(shutdownCtx)
		bus.Wait()
		return srv.Shutdown(shutdownCtx)
	})

	logger.Info("KioskWatch ready", zap.String("addr", addr))

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("KioskWatch stopped")
	return nil
}
