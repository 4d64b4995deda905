package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"

	"github.com/careerbridge/chat-service/config"
	"github.com/careerbridge/chat-service/internal/auth"
	"github.com/careerbridge/chat-service/internal/cache"
	"github.com/careerbridge/chat-service/internal/chat"
	"github.com/careerbridge/chat-service/internal/handlers"
	"github.com/careerbridge/chat-service/internal/logger"
	"github.com/careerbridge/chat-service/internal/notify"
	"github.com/careerbridge/chat-service/internal/repository"
	"github.com/careerbridge/chat-service/internal/routes"
	"github.com/careerbridge/chat-service/internal/ws"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config load: %v", err)
	}

	lg, err := logger.New(logger.Config{Development: cfg.Server.Development})
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	ctx := context.Background()

	db, err := repository.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
	if err != nil {
		lg.Fatalw("mongo connect", "err", err)
	}
	defer func() { _ = db.Client().Disconnect(context.Background()) }()

	convRepo, err := repository.NewConversationRepo(ctx, db.Collection("conversations"))
	if err != nil {
		lg.Fatalw("conversation repo init", "err", err)
	}
	msgRepo, err := repository.NewMessageRepo(ctx, db.Collection("messages"))
	if err != nil {
		lg.Fatalw("message repo init", "err", err)
	}
	users := repository.NewUserDirectory(db.Collection("users"))
	jobs := repository.NewJobDirectory(db.Collection("jobs"))

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer func() { _ = rdb.Close() }()
	presence := cache.NewPresenceStore(rdb, cfg.Redis.Prefix, 24*time.Hour)

	var verifier *auth.Verifier
	if cfg.JWT.Algorithm == "RS256" {
		verifier, err = auth.NewVerifierRS256(cfg.JWT.PublicKeyPath)
	} else {
		verifier, err = auth.NewVerifierHS256(cfg.JWT.Secret)
	}
	if err != nil {
		lg.Fatalw("jwt verifier init", "err", err)
	}

	var limiter chat.RateLimiter
	if cfg.Chat.RateLimiterBackend == "redis" {
		limiter = chat.NewRedisLimiter(rdb, cfg.Redis.Prefix, cfg.Chat.RateLimit, cfg.RateWindow)
	} else {
		limiter = chat.NewMemoryLimiter(cfg.Chat.RateLimit, cfg.RateWindow)
	}

	hub := ws.NewHub()

	sinks := notify.MultiSink{notify.NewHubSink(hub)}
	if len(cfg.Kafka.Brokers) > 0 {
		ks := notify.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.NotificationsTopic, lg)
		defer func() { _ = ks.Close() }()
		sinks = append(sinks, ks)
	}

	resolver := chat.NewResolver(convRepo, users, jobs, sinks, lg,
		cfg.Chat.ResolveMaxAttempts, cfg.ResolveBaseDelay)
	svc := chat.NewService(convRepo, msgRepo, limiter, sinks, lg, cfg.Chat.MaxMessageChars)

	wsHandler := ws.NewHandler(svc, verifier, hub, presence, lg,
		cfg.PingInterval, cfg.WriteDeadline, cfg.ReadDeadline, cfg.WS.MaxMessageSize)
	chatHandler := handlers.NewChatHandler(resolver, svc, presence, lg)

	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
	app.Use(recover.New())
	app.Use(fiberlogger.New())
	routes.Register(app, verifier, chatHandler, wsHandler)

	errs := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Server.Port
		lg.Infow("starting chat service", "addr", addr)
		errs <- app.Listen(addr)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case e := <-errs:
		lg.Fatalw("server error", "err", e)
	case s := <-sig:
		lg.Infow("signal received", "signal", s.String())
	}

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		lg.Warnw("fiber shutdown", "err", err)
	}
	lg.Info("shut down")
}
