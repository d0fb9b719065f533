package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	v1 "github.com/vinayj16/PromptPad-sub000/cmd/api/router/v1"
	"github.com/vinayj16/PromptPad-sub000/internal/config"
	cacheAdapter "github.com/vinayj16/PromptPad-sub000/internal/infrastructure/cache/adapter"
	cachePort "github.com/vinayj16/PromptPad-sub000/internal/infrastructure/cache/port"
	queueAdapter "github.com/vinayj16/PromptPad-sub000/internal/infrastructure/queue/adapter"
	"github.com/vinayj16/PromptPad-sub000/internal/infrastructure/realtime"
	"github.com/vinayj16/PromptPad-sub000/internal/infrastructure/telemetry"
	collab "github.com/vinayj16/PromptPad-sub000/internal/pkg/collab/application/domain"
	"github.com/vinayj16/PromptPad-sub000/internal/pkg/collab/application/port"
	"github.com/vinayj16/PromptPad-sub000/internal/pkg/collab/application/session"
	"github.com/vinayj16/PromptPad-sub000/internal/pkg/collab/application/usecase"
	"github.com/vinayj16/PromptPad-sub000/internal/pkg/collab/presentation/controller"
	collabHTTP "github.com/vinayj16/PromptPad-sub000/internal/pkg/collab/presentation/http"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn(".env file not found or could not be loaded", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	metrics, err := telemetry.NewMetrics()
	if err != nil {
		return err
	}

	registry := collab.NewRegistry()
	rooms := realtime.NewRouter(realtime.WithSendErrorHandler(func(p port.Peer, err error) {
		metrics.SendFailed()
		logger.Warn("dropping slow or closed peer", "conn", p.ID(), "error", err)
	}))
	defer rooms.Close()

	opts := []session.Option{session.WithLogger(logger), session.WithMetrics(metrics)}

	var cache cachePort.Cache
	if cfg.RedisURL != "" {
		redisCache, err := cacheAdapter.NewRedisCache(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer redisCache.Close()
		cache = redisCache

		mirror := session.NewPresenceMirror(registry, usecase.NewPublishPresenceUseCase(cache, cfg.PresenceTTL), 0, session.WithLogger(logger))
		go mirror.Run(ctx)
		opts = append(opts, session.WithNotifier(mirror))

		queue, err := queueAdapter.NewAsynqClient(cfg.RedisURL)
		if err != nil {
			return err
		}
		defer queue.Close()
		opts = append(opts, session.WithSaveRequester(usecase.NewRequestSaveUseCase(queue), 5*time.Second))
	} else {
		logger.Warn("REDIS_URL not set: presence mirror and save requests disabled")
	}

	gateway := session.NewGateway(registry, rooms, opts...)
	router := session.NewRouter(gateway, rooms, opts...)
	reaper := session.NewReaper(gateway, cfg.IdleTimeout, cfg.SweepInterval, opts...)
	go reaper.Run(ctx)

	if cfg.LogLevel > slog.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/healthz", func(c *gin.Context) {
		if cache != nil {
			if err := cache.Ping(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "DEGRADED", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{
			"status": "OK",
			"rooms":  registry.Rooms(),
		})
	})
	v1.RegisterRoutes(r, collabHTTP.Dependencies{
		Gateway: gateway,
		Router:  router,
		Logger:  logger,
		Socket: controller.SocketOptions{
			SendBuffer:      cfg.SendBuffer,
			SendTimeout:     cfg.SendTimeout,
			WriteWait:       cfg.WriteWait,
			ReadTimeout:     cfg.ReadTimeout,
			PingPeriod:      cfg.PingPeriod(),
			MaxMessageBytes: cfg.MaxMessageBytes,
		},
	})

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	// Hijacked websocket connections are not tracked by Shutdown; rooms.Close ends them.
	rooms.Close()
	return srv.Shutdown(shutdownCtx)
}
