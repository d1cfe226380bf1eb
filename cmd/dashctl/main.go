package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"go.uber.org/zap"

	"mockdesk/dashboard/internal/backend"
	"mockdesk/dashboard/internal/config"
	"mockdesk/dashboard/internal/operations"
	"mockdesk/dashboard/internal/report"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Fatalf("dotenv load failed: %v", err)
	}
	cfg := config.Load()

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := backend.New(backend.Options{
		BaseURL:   cfg.BackendBaseURL,
		Timeout:   cfg.BackendTimeout,
		RPS:       cfg.BackendRPS,
		Burst:     cfg.BackendBurst,
		CacheTTL:  cfg.CacheTTL,
		PageLimit: cfg.BackendPageLimit,
		Logger:    logger,
	})

	var logo []byte
	if cfg.TRFLogoURL != "" {
		if logo, err = report.LoadLogo(ctx, cfg.TRFLogoURL, 10*time.Second); err != nil {
			logger.Warn("trf logo unavailable, rendering without it", zap.Error(err))
			logo = nil
		}
	}

	token, err := cliToken(os.Getenv("DASH_TOKEN"), cfg.JWTSecret, cfg.JWTIssuer)
	if err != nil {
		log.Fatalf("token signing failed: %v", err)
	}

	location := cfg.Location()
	cli := commandLine{
		backend: client,
		ops: operations.New(operations.Options{
			Backend:    client,
			Logger:     logger,
			CentreName: cfg.TRFCentreName,
			Logo:       logo,
			Location:   location,
		}),
		token:    token,
		out:      os.Stdout,
		location: location,
		now:      time.Now,
	}
	if err := cli.run(ctx, os.Args); err != nil {
		if err != errHelp {
			color.New(color.FgRed).Fprintf(os.Stderr, "error: %s\n", err)
		}
		os.Exit(1)
	}
}
