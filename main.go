package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"food-delivery/api"
	"food-delivery/auth"
	"food-delivery/config"
	"food-delivery/db"
	"food-delivery/notify"
	"food-delivery/payment"
	"food-delivery/queue"
	"food-delivery/services"
	"food-delivery/store"
	"food-delivery/store/memstore"
	"food-delivery/store/mongo"
	"food-delivery/store/postgres"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const usage = `usage: food-delivery [serve | migrate | create-admin <username>]`

func main() {
	logger := zap.Must(zap.NewProduction()).Sugar()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalw("load config", "error", err)
	}

	cmd := "serve"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}
	switch cmd {
	case "serve":
		err = serve(cfg, logger)
	case "migrate":
		err = migrate(cfg)
	case "create-admin":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, usage)
			os.Exit(2)
		}
		err = createAdmin(cfg, logger, os.Args[2])
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		logger.Fatalw(cmd+" failed", "error", err)
	}
}

func migrate(cfg *config.Config) error {
	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DB)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()
	return applyMigrations(ctx, pool, true)
}

func createAdmin(cfg *config.Config, logger *zap.SugaredLogger, username string) error {
	ctx := context.Background()
	st, pool, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close(ctx)
	if pool != nil {
		defer pool.Close()
	}

	svc := services.New(services.Deps{Store: st, Logger: logger})
	password, err := svc.CreateAdmin(ctx, username)
	if err != nil {
		return err
	}
	fmt.Printf("admin %s created\npassword: %s\n", username, password)
	return nil
}

// openStore returns the configured backend. The pool is non-nil only for postgres.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) (store.Store, *pgxpool.Pool, error) {
	switch cfg.Store.Driver {
	case "postgres":
		pool, err := db.Connect(ctx, cfg.DB)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		if v := strings.TrimSpace(os.Getenv("AUTO_MIGRATE")); v == "1" || strings.EqualFold(v, "true") {
			if err := applyMigrations(ctx, pool, false); err != nil {
				pool.Close()
				return nil, nil, fmt.Errorf("migrate: %w", err)
			}
		}
		logger.Info("postgres connected")
		return postgres.New(pool), pool, nil
	case "mongo":
		st, err := mongo.New(mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database, Timeout: cfg.Mongo.Timeout})
		if err != nil {
			return nil, nil, fmt.Errorf("connect mongo: %w", err)
		}
		if err := st.CreateIndexes(ctx); err != nil {
			_ = st.Close(ctx)
			return nil, nil, fmt.Errorf("mongo indexes: %w", err)
		}
		logger.Info("mongo connected")
		return st, nil, nil
	default:
		st := memstore.New()
		if cfg.Store.SeedFile != "" {
			if err := st.LoadSeed(cfg.Store.SeedFile); err != nil {
				return nil, nil, fmt.Errorf("load seed: %w", err)
			}
		}
		logger.Warn("using in-memory store; data is lost on restart")
		return st, nil, nil
	}
}

func serve(cfg *config.Config, logger *zap.SugaredLogger) error {
	ctx := context.Background()
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	st, pool, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}

	var rdb *redis.Client
	if cfg.Redis.Enabled() {
		if rdb, err = db.NewRedisClient(ctx, cfg.Redis); err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		logger.Info("redis connected")
	}

	gwCfg := payment.Config{
		BaseURL:       cfg.Payment.BaseURL,
		AuthURL:       cfg.Payment.AuthURL,
		ClientID:      cfg.Payment.ClientID,
		ClientSecret:  cfg.Payment.ClientSecret,
		ClientVersion: cfg.Payment.ClientVersion,
	}
	gateway := payment.NewClient(gwCfg, nil)
	if rdb != nil {
		// share the gateway token across instances
		tokens := payment.NewTokenSource(payment.NewRedisCache(rdb, "payment:access_token"), gateway.FetchToken, time.Minute)
		gateway = payment.NewClient(gwCfg, tokens)
	}

	var throttle services.LoginThrottle
	switch {
	case rdb != nil:
		throttle = services.NewRedisThrottle(rdb)
	case pool != nil:
		throttle = postgres.NewLoginThrottle(pool)
	}

	var delivery notify.Sender = notify.NewLogSender(logger)
	if cfg.Telegram.Token != "" {
		tg, err := notify.NewTelegramSender(cfg.Telegram.Token, logger)
		if err != nil {
			return fmt.Errorf("telegram: %w", err)
		}
		delivery = tg
	}

	sender := delivery
	var broker queue.Broker
	var worker *notify.Worker
	if cfg.RabbitMQ.URL != "" {
		broker, err = queue.NewRabbitMQBroker(queue.Config{
			URL:           cfg.RabbitMQ.URL,
			MaxRetries:    cfg.RabbitMQ.MaxRetries,
			RetryDelay:    cfg.RabbitMQ.RetryDelay,
			PrefetchCount: cfg.RabbitMQ.PrefetchCount,
		})
		if err != nil {
			return fmt.Errorf("connect rabbitmq: %w", err)
		}
		worker = notify.NewWorker(broker, delivery, logger)
		if err := worker.Start(); err != nil {
			return fmt.Errorf("start notification worker: %w", err)
		}
		sender = notify.NewQueueSender(broker)
		logger.Info("notifications routed through rabbitmq")
	}

	loc, err := time.LoadLocation(cfg.Pricing.TimeZone)
	if err != nil {
		return fmt.Errorf("load time zone %q: %w", cfg.Pricing.TimeZone, err)
	}

	issuer := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	deps := services.Deps{
		Store:       st,
		Gateway:     gateway,
		Sender:      sender,
		Tokens:      issuer,
		Logger:      logger,
		Pricing:     services.PricingFromConfig(cfg.Pricing),
		Location:    loc,
		CallbackURL: cfg.Payment.CallbackURL,
		Throttle:    throttle,
	}
	svc := services.New(deps)

	router, err := api.NewRouter(api.Options{
		Service:         svc,
		Tokens:          issuer,
		Logger:          logger,
		RateLimit:       cfg.HTTP.RateLimit,
		CORSOrigins:     cfg.HTTP.CORSOrigins,
		WebhookUsername: cfg.Payment.WebhookUsername,
		WebhookPassword: cfg.Payment.WebhookPassword,
	})
	if err != nil {
		return fmt.Errorf("build router: %w", err)
	}

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		WriteTimeout: 30 * time.Second,
		ReadTimeout:  10 * time.Second,
		IdleTimeout:  time.Minute,
	}

	shutdown := make(chan error, 1)
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit
		logger.Infow("signal caught", "signal", s.String())

		ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		shutdown <- srv.Shutdown(ctx)
	}()

	logger.Infow("server has started", "addr", cfg.HTTP.Addr, "env", cfg.Env, "store", cfg.Store.Driver)
	err = srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	if err := <-shutdown; err != nil {
		return err
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if worker != nil {
		worker.Stop()
	}
	if broker != nil {
		if err := broker.Close(); err != nil {
			logger.Errorw("error closing rabbitmq", "error", err)
		}
	}
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			logger.Errorw("error closing redis", "error", err)
		}
	}
	if err := st.Close(closeCtx); err != nil {
		logger.Errorw("error closing store", "error", err)
	}
	if pool != nil {
		pool.Close()
	}
	logger.Infow("server has stopped", "addr", cfg.HTTP.Addr)
	return nil
}
