package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"mockdesk/dashboard/internal/auth"
	"mockdesk/dashboard/internal/backend"
	"mockdesk/dashboard/internal/config"
	"mockdesk/dashboard/internal/db"
	"mockdesk/dashboard/internal/debounce"
	dashgrpc "mockdesk/dashboard/internal/grpc"
	internalhttp "mockdesk/dashboard/internal/http"
	"mockdesk/dashboard/internal/hydrate"
	"mockdesk/dashboard/internal/jobs"
	"mockdesk/dashboard/internal/mail"
	"mockdesk/dashboard/internal/operations"
	"mockdesk/dashboard/internal/report"
	"mockdesk/dashboard/internal/sentflags"
	"mockdesk/dashboard/internal/workpool"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Fatalf("dotenv load failed: %v", err)
	}
	cfg := config.Load()

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	verifier, err := auth.NewVerifier(cfg.JWTSecret, cfg.JWTPublicKey, cfg.JWTIssuer)
	if err != nil {
		logger.Fatal("jwt verifier init failed", zap.Error(err))
	}

	var flags sentflags.Store = sentflags.NewMemoryStore()
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			cancel()
			logger.Fatal("redis ping failed", zap.Error(err))
		}
		cancel()
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close error", zap.Error(err))
			}
		}()
		flags = sentflags.NewRedisStore(redisClient, 0)
	}

	var dispatches operations.DispatchLog
	if cfg.DatabaseURL != "" {
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("db connection failed", zap.Error(err))
		}
		defer pool.Close()
		store := db.NewStore(pool)
		if err := store.Migrate(ctx); err != nil {
			logger.Fatal("db schema failed", zap.Error(err))
		}
		dispatches = store.Queries
	}

	client := backend.New(backend.Options{
		BaseURL:   cfg.BackendBaseURL,
		Timeout:   cfg.BackendTimeout,
		RPS:       cfg.BackendRPS,
		Burst:     cfg.BackendBurst,
		CacheTTL:  cfg.CacheTTL,
		PageLimit: cfg.BackendPageLimit,
		Logger:    logger,
	})

	var sender mail.Sender = mail.BackendSender{Client: client}
	if cfg.TRFDelivery == mail.ChannelSendgrid {
		if cfg.SendgridAPIKey == "" {
			logger.Fatal("TRF_DELIVERY=sendgrid requires SENDGRID_API_KEY")
		}
		sender = mail.NewSendgridSender(cfg.SendgridAPIKey, cfg.MailFromName, cfg.MailFrom)
	}

	var logo []byte
	if cfg.TRFLogoURL != "" {
		logo, err = report.LoadLogo(ctx, cfg.TRFLogoURL, 10*time.Second)
		if err != nil {
			logger.Warn("trf logo unavailable, rendering without it", zap.Error(err))
			logo = nil
		}
	}

	location := cfg.Location()
	ops := operations.New(operations.Options{
		Backend:    client,
		Flags:      flags,
		Sender:     sender,
		Dispatches: dispatches,
		Logger:     logger,
		CentreName: cfg.TRFCentreName,
		Logo:       logo,
		Location:   location,
	})
	hydrator := hydrate.New(client, flags, workpool.New(cfg.HydrateConcurrency), debounce.New(cfg.HydrateDebounce), logger)

	server, err := internalhttp.NewServer(internalhttp.Options{
		Backend:    client,
		Operations: ops,
		Hydrator:   hydrator,
		Verifier:   verifier,
		Logger:     logger,
		Location:   location,
	})
	if err != nil {
		logger.Fatal("server init failed", zap.Error(err))
	}
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer, health := dashgrpc.NewServer(logger)
	jobs.StartCacheSweepJob(ctx, cfg, client.Cache(), logger)

	go func() {
		logger.Info("dashboard http listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server error", zap.Error(err))
		}
	}()

	go func() {
		listener, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			logger.Fatal("grpc listen error", zap.Error(err))
		}
		logger.Info("dashboard grpc listening", zap.String("addr", cfg.GRPCAddr))
		if err := grpcServer.Serve(listener); err != nil {
			logger.Fatal("grpc server error", zap.Error(err))
		}
	}()
	health.SetServing(true)

	<-ctx.Done()
	health.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", zap.Error(err))
	}
	grpcServer.GracefulStop()
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	if cfg.IsDev() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
