// Package main запускает HTTP-сервер интернет-магазина.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/storefront/internal/audit"
	"github.com/mmeshcher/storefront/internal/cartlock"
	"github.com/mmeshcher/storefront/internal/cipher"
	"github.com/mmeshcher/storefront/internal/config"
	"github.com/mmeshcher/storefront/internal/events"
	"github.com/mmeshcher/storefront/internal/gateway"
	"github.com/mmeshcher/storefront/internal/handler"
	"github.com/mmeshcher/storefront/internal/mailer"
	"github.com/mmeshcher/storefront/internal/middleware"
	"github.com/mmeshcher/storefront/internal/notify"
	"github.com/mmeshcher/storefront/internal/repository"
	"github.com/mmeshcher/storefront/internal/service"
	"github.com/mmeshcher/storefront/internal/settings"
	"github.com/mmeshcher/storefront/internal/tokenize"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}
	defer repo.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := repo.Ping(ctx); err != nil {
		sugar.Fatalw("database ping error", "error", err.Error())
	}

	store := settings.NewStore(repo, logger)
	if err := store.Seed(ctx); err != nil {
		sugar.Fatalw("system config seed error", "error", err.Error())
	}

	var enc *cipher.AESGCM
	if cfg.EncryptionKey != "" {
		enc, err = cipher.New(cfg.EncryptionKey)
	} else {
		sugar.Warn("ENCRYPTION_KEY is not set, using ephemeral key")
		enc, err = cipher.NewRandom()
	}
	if err != nil {
		sugar.Fatalw("cipher initialization error", "error", err.Error())
	}

	var gw service.Gateway = gateway.NewSimulator(cfg.PaymentGatewayDelay)
	if cfg.PaymentGatewayAddress != "" {
		gw = gateway.NewClient(cfg.PaymentGatewayAddress)
	}

	var locker cartlock.Locker = cartlock.NewLocal()
	if cfg.RedisAddress != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddress})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			sugar.Fatalw("redis connection error", "error", err.Error())
		}
		locker = cartlock.NewRedis(rdb)
	}

	var sender mailer.Sender = mailer.NewLog(logger)
	if cfg.SMTPHost != "" {
		sender = mailer.NewSMTP(mailer.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		})
	}

	bus := events.NewBus(events.DefaultBufferSize, logger)
	bus.Subscribe(notify.NewDispatcher(repo, store, logger).Handle)
	bus.Subscribe(audit.NewRecorder(repo, logger).Handle)

	tokenizer := tokenize.NewService(store, logger)

	svc := service.NewService(service.Deps{
		Repo:      repo,
		Settings:  store,
		Tokenizer: tokenizer,
		Gateway:   gw,
		Events:    bus,
		Locker:    locker,
		Encrypter: enc,
		Logger:    logger,
	})

	authMiddleware := middleware.NewAuthMiddleware(cfg.AuthSecret)
	h := handler.NewHandler(svc, logger, authMiddleware,
		handler.WithTokenizer(tokenizer),
		handler.WithConfig(store),
		handler.WithEvents(bus),
		handler.WithAPIKey(cfg.APIKey),
		handler.WithTokenizeLimiter(middleware.NewRateLimiter(cfg.TokenizeRateLimit, cfg.TokenizeRateBurst)),
	)

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           h.SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	// Шина останавливается только после завершения обработки запросов.
	busCtx, stopBus := context.WithCancel(context.Background())
	defer stopBus()

	g.Go(func() error {
		return bus.Run(busCtx)
	})

	g.Go(func() error {
		return notify.NewPoller(repo, sender, logger).Run(ctx, cfg.EmailPollInterval)
	})

	g.Go(func() error {
		sugar.Infow("starting storefront server", "addr", cfg.RunAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		defer stopBus()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
