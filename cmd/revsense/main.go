package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/revsense/internal/catalog"
	"github.com/HerbHall/revsense/internal/config"
	"github.com/HerbHall/revsense/internal/event"
	"github.com/HerbHall/revsense/internal/mqtt"
	"github.com/HerbHall/revsense/internal/server"
	"github.com/HerbHall/revsense/internal/session"
	"github.com/HerbHall/revsense/internal/store"
	"github.com/HerbHall/revsense/internal/ws"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file")
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("revsense " + server.Version)
		os.Exit(0)
	}

	// Load configuration (before logger, so log level/format can be configured).
	viperCfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := config.NewLogger(viperCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("RevSense starting", zap.String("version", server.Version))

	if f := viperCfg.ConfigFileUsed(); f != "" {
		logger.Info("configuration loaded",
			zap.String("component", "config"),
			zap.String("source", f),
		)
	} else {
		logger.Warn("no configuration file found, using defaults",
			zap.String("component", "config"),
		)
	}

	app, err := config.Parse(viperCfg)
	if err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Open the preference database.
	db, err := store.New(app.DataStore.Path)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	defer db.Close()

	prefs, err := store.NewPrefs(ctx, db)
	if err != nil {
		logger.Fatal("failed to migrate preference schema", zap.Error(err))
	}
	logger.Info("database initialized",
		zap.String("component", "database"),
		zap.String("path", app.DataStore.Path),
	)

	// Shared services.
	bus := event.NewBus(logger.Named("event"))
	cat := catalog.Default()
	logger.Info("sensor catalog loaded",
		zap.String("component", "catalog"),
		zap.Int("sensors", cat.Len()),
	)

	// The monitoring session: transport, ingest, analytics, alerting.
	sess, err := session.New(app.Session, cat, bus, prefs, logger.Named("session"))
	if err != nil {
		logger.Fatal("failed to build session", zap.Error(err))
	}
	if err := sess.Start(ctx); err != nil {
		logger.Fatal("failed to start session", zap.Error(err))
	}

	// MQTT notifier for alert and status fan-out.
	notifier := mqtt.New(app.MQTT, bus, logger.Named("mqtt"))
	if err := notifier.Start(ctx); err != nil {
		logger.Fatal("failed to start mqtt notifier", zap.Error(err))
	}

	// WebSocket handler for live snapshot streaming.
	wsHandler := ws.NewHandler(sess, bus, logger.Named("ws"))
	logger.Info("websocket handler initialized", zap.String("component", "ws"))

	readyCheck := server.ReadinessChecker(func(ctx context.Context) error {
		return db.DB().PingContext(ctx)
	})
	srv := server.New(app.Server, sess, cat, logger.Named("server"), readyCheck, wsHandler)

	// Start server in background.
	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	logger.Info("RevSense ready", zap.String("addr", app.Server.Addr()))

	// Wait for shutdown signal.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	// Graceful shutdown.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	sess.Stop()
	if err := notifier.Stop(shutdownCtx); err != nil {
		logger.Error("mqtt shutdown error", zap.Error(err))
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}

	logger.Info("RevSense stopped")
}
