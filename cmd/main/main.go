package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trade-orders/src/config"
	"trade-orders/src/interfaces"
	"trade-orders/src/logger"
	"trade-orders/src/notification"
	"trade-orders/src/server"
	"trade-orders/src/service"
)

const shutdownTimeout = 10 * time.Second

// -----------------------------------------------------------------------------

func main() {

	// Parse command line flags
	configPath := flag.String("config", "", "path to config file (optional, environment overrides it)")
	writeConfig := flag.String("write-config", "", "write the resolved configuration to this path and exit")
	flag.Parse()

	// Load config from YAML file and environment
	conf, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	if *writeConfig != "" {
		if err := conf.Save(*writeConfig); err != nil {
			fmt.Printf("Error writing config: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Setup logger
	appLogger := logger.NewLogger(conf.LogLevel, conf.Name)
	defer appLogger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Order store
	store, err := setupStore(ctx, conf.MConfig)
	if err != nil {
		appLogger.Critical("Failed to open order store: %v", err)
	}
	defer store.Close()

	// 2. Order events (optional)
	publisher, err := setupPublisher(conf.MConfig)
	if err != nil {
		appLogger.Critical("Failed to set up order events: %v", err)
	}
	if publisher != nil {
		defer publisher.Close()
	}

	// 3. Hub, service and transport
	hub := notification.NewHub(logger.NewLogger(conf.LogLevel, "NotificationHub"))
	orders := service.NewOrderService(store, hub, publisher, logger.NewLogger(conf.LogLevel, "OrderService"))
	var srv interfaces.IServer = server.NewHTTPServer(conf.MConfig, orders, hub, logger.NewLogger(conf.LogLevel, "HTTPServer"))

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			appLogger.Error("Server failed: %v", err)
		}
	case <-ctx.Done():
		appLogger.Info("Shutting down...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		appLogger.Error("Graceful shutdown failed: %v", err)
	}
	appLogger.Info("Shutdown complete.")
}
