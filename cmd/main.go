package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/redis/go-redis/v9"

	c "github.com/mpsingh12/imageshop/internal/cache"
	"github.com/mpsingh12/imageshop/internal/config"
	h "github.com/mpsingh12/imageshop/internal/http"
	"github.com/mpsingh12/imageshop/internal/logger"
	"github.com/mpsingh12/imageshop/internal/poller"
	"github.com/mpsingh12/imageshop/internal/repository"
	s "github.com/mpsingh12/imageshop/internal/service"
	"github.com/mpsingh12/imageshop/internal/store"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	log := logger.New(os.Stdout, logger.ParseLevel(cfg.LogLevel), "basket-service")
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("basket service stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend, closeBackend, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeBackend()

	var checks []h.HealthCheck
	if cfg.BreakerEnabled {
		settings := store.DefaultBreakerSettings()
		settings.Name = "basket-store-" + cfg.StoreBackend
		breaker := store.WithBreaker(backend, settings, log)
		checks = append(checks, func() (string, string, bool) {
			state, ok := breaker.Healthy()
			return "store_breaker", state, ok
		})
		backend = breaker
	}
	repo := repository.NewBasketRepository(backend)

	var basketCache c.BasketCache
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       0,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis connection failed: %w", err)
		}
		log.Info("redis ping succeeded", "addr", cfg.Redis.Addr)
		basketCache = c.NewRedisCache(redisClient,
			c.WithTTL(cfg.Redis.TTL, cfg.Redis.Jitter),
			c.WithCacheLogger(log),
		)
	}

	service := s.NewBasketService(repo, basketCache,
		s.WithLogger(log),
		s.WithOwnerLocks(cfg.OwnerLockStripes),
		s.WithReadTimeout(cfg.RequestTimeout),
	)

	if len(cfg.Kafka.Brokers) > 0 {
		checkouts := poller.NewPoller(repo, basketCache, log, cfg.Kafka.Topic, cfg.Kafka.GroupID, cfg.Kafka.Brokers...)
		defer checkouts.Close()
		go checkouts.Run(ctx)
		log.Info("checkout consumer started", "topic", cfg.Kafka.Topic, "group_id", cfg.Kafka.GroupID)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      h.NewRouter(service, cfg.RequestTimeout, log, checks...),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("basket service starting", "port", cfg.HTTPPort, "store", cfg.StoreBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Info("server exited")
	return nil
}

// openStore builds the one backend client shared by every request.
func openStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (store.Store, func(), error) {
	switch cfg.StoreBackend {
	case config.BackendMemory:
		log.Warn("using in-memory basket store; data is lost on restart")
		return store.NewMemoryStore(), func() {}, nil

	case config.BackendMongo:
		db, err := store.ConnectMongoDB(ctx, store.MongoOptions{
			URI:         cfg.Mongo.URI,
			Database:    cfg.Mongo.DBName,
			MaxPoolSize: cfg.Mongo.MaxPoolSize,
		})
		if err != nil {
			return nil, nil, err
		}
		mongoStore := store.NewMongoStore(db)
		if err := mongoStore.CreateIndexes(ctx); err != nil {
			return nil, nil, fmt.Errorf("failed to create indexes: %w", err)
		}
		log.Info("connected to MongoDB", "db", cfg.Mongo.DBName)
		return mongoStore, func() {
			disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := db.Client().Disconnect(disconnectCtx); err != nil {
				log.Warn("mongo disconnect", "error", err)
			}
		}, nil

	case config.BackendDynamoDB:
		awsCfg, err := loadAWSConfig(ctx, cfg.Dynamo)
		if err != nil {
			return nil, nil, err
		}
		dynamoStore := store.NewDynamoStore(awsCfg, cfg.Dynamo.Table, cfg.Dynamo.Endpoint, log)
		if err := dynamoStore.Ping(ctx); err != nil {
			log.Error("dynamodb table check failed, continuing", "table", cfg.Dynamo.Table, "error", err)
		}
		return dynamoStore, func() {}, nil

	case config.BackendPostgres:
		pgStore, err := store.OpenPostgres(ctx, store.PostgresOptions{
			Host:          cfg.Postgres.Host,
			Port:          cfg.Postgres.Port,
			User:          cfg.Postgres.User,
			Password:      cfg.Postgres.Password,
			DBName:        cfg.Postgres.Name,
			SSLMode:       cfg.Postgres.SSLMode,
			MigrationsDir: cfg.Postgres.MigrationsPath,
		})
		if err != nil {
			return nil, nil, err
		}
		if err := pgStore.Migrate(); err != nil {
			_ = pgStore.Close()
			return nil, nil, err
		}
		log.Info("connected to Postgres", "host", cfg.Postgres.Host, "db", cfg.Postgres.Name)
		return pgStore, func() {
			if err := pgStore.Close(); err != nil {
				log.Warn("postgres close", "error", err)
			}
		}, nil
	}
	return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}

func loadAWSConfig(ctx context.Context, dc config.DynamoConfig) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(dc.Region)}
	// DynamoDB Local and LocalStack accept any key pair.
	if dc.Endpoint != "" && os.Getenv("AWS_ACCESS_KEY_ID") == "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("local", "local", "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return awsCfg, nil
}
