package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/iamasit07/four-in-a-row/internal/config"
	"github.com/iamasit07/four-in-a-row/internal/repository/postgres"
	redisrepo "github.com/iamasit07/four-in-a-row/internal/repository/redis"
	"github.com/iamasit07/four-in-a-row/internal/service/analytics"
	"github.com/iamasit07/four-in-a-row/internal/service/cleanup"
	"github.com/iamasit07/four-in-a-row/internal/service/game"
	"github.com/iamasit07/four-in-a-row/internal/service/matchmaking"
	transportHttp "github.com/iamasit07/four-in-a-row/internal/transport/http"
	"github.com/iamasit07/four-in-a-row/internal/transport/websocket"
	"github.com/iamasit07/four-in-a-row/pkg/auth"
)

const (
	reconnectTokenTTL = 6 * time.Hour
	cleanupInterval   = time.Minute
	eventStreamMaxLen = 100_000
	shutdownTimeout   = 30 * time.Second
)

var CLI struct {
	Config   string `short:"c" help:"Path to HCL configuration file." type:"path"`
	Port     string `short:"p" help:"Port to listen on (overrides config)."`
	LogLevel string `short:"l" help:"Log level: debug, info, warn, error (overrides config)."`
}

func main() {
	kctx := kong.Parse(&CLI,
		kong.Name("four-in-a-row"),
		kong.Description("Real-time four-in-a-row game server."),
	)

	cfg, err := config.LoadConfig(CLI.Config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		kctx.Exit(1)
	}
	if CLI.Port != "" {
		cfg.Port = CLI.Port
	}
	if CLI.LogLevel != "" {
		cfg.LogLevel = CLI.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		kctx.Exit(1)
	}

	logger := newLogger(cfg)
	if err := run(logger, cfg); err != nil {
		logger.Fatal("server stopped", "err", err)
	}
	logger.Info("server exited gracefully")
}

func newLogger(cfg *config.Config) *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	logger.SetLevel(level)

	switch cfg.LogFormat {
	case "json":
		logger.SetFormatter(log.JSONFormatter)
	case "logfmt":
		logger.SetFormatter(log.LogfmtFormatter)
	default:
		logger.SetFormatter(log.TextFormatter)
	}
	return logger
}

func run(logger *log.Logger, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		results        game.ResultRecorder = game.LogRecorder{Logger: logger.WithPrefix("results")}
		events         game.EventSink      = game.LogSink{Logger: logger.WithPrefix("events")}
		gameStore      transportHttp.LeaderboardStore
		analyticsStore transportHttp.AnalyticsStore
		analyticsRepo  *postgres.AnalyticsRepo
		cache          transportHttp.Cache
		invalidator    analytics.Invalidator
		consumer       *redisrepo.StreamConsumer
	)

	if cfg.DatabaseURL != "" {
		db, err := postgres.Open(ctx, postgres.Options{
			URL:                cfg.DatabaseURL,
			MaxOpenConns:       cfg.DBMaxOpenConns,
			MaxIdleConns:       cfg.DBMaxIdleConns,
			ConnMaxLifetimeMin: cfg.DBConnMaxLifetimeMin,
		})
		if err != nil {
			return err
		}
		defer db.Close()

		logger.Info("running database migrations")
		if err := postgres.RunMigrations(ctx, db.DB); err != nil {
			return err
		}

		gameRepo := postgres.NewGameRepo(db)
		analyticsRepo = postgres.NewAnalyticsRepo(db)
		results, gameStore, analyticsStore = gameRepo, gameRepo, analyticsRepo
	} else {
		logger.Warn("DATABASE_URL not set, results are only logged")
	}

	rdb, err := redisrepo.NewClient(ctx, redisrepo.Options{URL: cfg.RedisURL, Password: cfg.RedisPassword})
	if err != nil {
		logger.Warn("redis unavailable, lifecycle events are only logged", "err", err)
	} else {
		defer rdb.Close()
		events = redisrepo.NewStreamPublisher(rdb, cfg.EventStream, eventStreamMaxLen)

		leaderboardCache := redisrepo.NewCache(rdb, "leaderboard:")
		cache, invalidator = leaderboardCache, leaderboardCache

		hostname, _ := os.Hostname()
		consumer = redisrepo.NewStreamConsumer(rdb, redisrepo.ConsumerOptions{
			Stream:   cfg.EventStream,
			Group:    cfg.EventConsumerGroup,
			Consumer: hostname,
		}, logger)
	}

	clock := quartz.NewReal()
	hub := websocket.NewHub(logger)
	registry := game.NewRegistry(game.Settings{
		MatchmakingTimeout: cfg.Game.MatchmakingTimeout,
		DisconnectGrace:    cfg.Game.DisconnectGrace,
		BotThinkDelay:      cfg.Game.BotThinkDelay,
		BotName:            cfg.Game.BotName,
	}, game.Dependencies{
		Clock:       clock,
		Logger:      logger,
		Broadcaster: hub,
		Events:      events,
		Results:     results,
	})
	matchmaker := matchmaking.New(registry, logger)
	tokens := auth.NewReconnectTokens(cfg.ReconnectSecret, reconnectTokenTTL, clock)
	wsHandler := websocket.NewHandler(hub, registry, matchmaker, tokens, cfg.AllowedOrigins, logger)

	if logger.GetLevel() > log.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}
	router := transportHttp.NewRouter(transportHttp.RouterConfig{
		AllowedOrigins: cfg.AllowedOrigins,
		Stats:          transportHttp.NewStatsHandler(gameStore, analyticsStore, cache, logger.WithPrefix("http")),
		Watch:          transportHttp.NewWatchHandler(registry, matchmaker.Waiting, hub.Count),
		WebSocket:      wsHandler.HandleWebSocket,
		Logger:         logger.WithPrefix("http"),
	})

	srv := &http.Server{
		Addr:              cfg.Address(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return cleanup.NewWorker(registry, clock, cleanupInterval, cfg.Game.FinishedRetention, logger).Run(gctx)
	})

	if consumer != nil && analyticsRepo != nil {
		svc := analytics.NewService(analyticsRepo, invalidator, logger)
		g.Go(func() error {
			return consumer.Run(gctx, svc.Handle)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("server is shutting down")
		registry.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
