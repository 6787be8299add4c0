package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"water-delivery-system/internal/app/api"
	"water-delivery-system/internal/app/relay"
	"water-delivery-system/internal/common/logger"
	"water-delivery-system/internal/config"
)

func main() {
	mode := flag.String("mode", "", "api-service | notification-relay")
	port := flag.Int("port", 0, "api-service: http port (overrides HTTP_PORT)")
	flag.Parse()

	lg := logger.New("bootstrap")

	cfg, err := config.Load()
	if err != nil {
		lg.Error("config_load_failed", err, nil)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.HTTPPort = *port
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch *mode {
	case "api-service":
		if err := api.Run(ctx, cfg); err != nil {
			lg.Error("fatal", err, nil)
			os.Exit(1)
		}
	case "notification-relay":
		if err := relay.Run(ctx, cfg); err != nil {
			lg.Error("fatal", err, nil)
			os.Exit(1)
		}
	default:
		fmt.Fprintln(os.Stderr, "--mode is required: api-service | notification-relay")
		os.Exit(2)
	}
}
