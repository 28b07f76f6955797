// Package app wires infrastructure, repositories and services shared by the
// API server and the scheduler.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/segyhp/coop-ledger/internal/cache"
	"github.com/segyhp/coop-ledger/internal/config"
	"github.com/segyhp/coop-ledger/internal/event"
	"github.com/segyhp/coop-ledger/internal/repository"
	"github.com/segyhp/coop-ledger/internal/service"
)

const connectTimeout = 10 * time.Second

// App holds the long-lived connections and the services built on them.
type App struct {
	DB     *sqlx.DB
	Redis  *redis.Client
	Rabbit *amqp.Connection

	Loans     *service.LoanService
	Members   *service.MemberService
	Dashboard *service.DashboardService
	YearEnd   *service.YearEndService

	logger *slog.Logger
}

// New connects to postgres, and to redis and rabbitmq when configured.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{logger: logger}

	db, err := initDB(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("initialize database: %w", err)
	}
	a.DB = db
	logger.Info("Database connection established")

	if cfg.Database.AutoMigrate {
		if err := repository.RunMigrations(cfg.Database.URL); err != nil {
			a.Close()
			return nil, err
		}
		logger.Info("Database migrations applied")
	}

	var (
		yearEndCache service.YearEndCache
		snapshots    service.SnapshotStore
	)
	if cfg.Redis.Enabled {
		client, err := initRedis(ctx, cfg)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("initialize redis: %w", err)
		}
		a.Redis = client
		redisCache := cache.NewRedisCache(client, cfg.Redis.PreviewTTL, cfg.Redis.ClearLockTTL, cfg.Scheduler.SnapshotHistory)
		yearEndCache = redisCache
		snapshots = redisCache
		logger.Info("Redis connection established", "addr", cfg.Redis.Addr())
	} else {
		logger.Warn("Redis disabled; previews, snapshots and the clear lock are unavailable")
	}

	var publisher event.Publisher = event.NoopPublisher{}
	if cfg.RabbitMQ.URL != "" {
		conn, err := amqp.Dial(cfg.RabbitMQ.URL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect to RabbitMQ: %w", err)
		}
		a.Rabbit = conn
		go func() {
			closeErr := <-conn.NotifyClose(make(chan *amqp.Error, 1))
			if closeErr != nil {
				logger.Error("RabbitMQ connection closed unexpectedly", slog.Any("error", closeErr))
			}
		}()

		rabbitPublisher, err := event.NewRabbitMQPublisher(conn, cfg.RabbitMQ.Exchange, logger)
		if err != nil {
			a.Close()
			return nil, err
		}
		publisher = rabbitPublisher
	} else {
		logger.Info("RABBITMQ_URL not set; ledger events are not published")
	}

	memberRepo := repository.NewMemberRepository(db)
	contributionRepo := repository.NewContributionRepository(db)
	loanRepo := repository.NewLoanRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)

	a.Loans = service.NewLoanService(loanRepo, paymentRepo, memberRepo, publisher, cfg)
	a.Members = service.NewMemberService(memberRepo, contributionRepo, publisher, cfg)
	a.Dashboard = service.NewDashboardService(memberRepo, loanRepo, paymentRepo, snapshots)
	a.YearEnd = service.NewYearEndService(memberRepo, loanRepo, paymentRepo, ledgerRepo, yearEndCache, publisher, cfg)

	return a, nil
}

// RedisPing returns a readiness probe for redis, or nil when it is disabled.
func (a *App) RedisPing() func(ctx context.Context) error {
	if a.Redis == nil {
		return nil
	}
	return func(ctx context.Context) error {
		return a.Redis.Ping(ctx).Err()
	}
}

// Close releases every open connection.
func (a *App) Close() {
	if a.Rabbit != nil {
		a.logger.Info("Closing RabbitMQ connection...")
		if err := a.Rabbit.Close(); err != nil {
			a.logger.Error("Error closing RabbitMQ connection", slog.Any("error", err))
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.logger.Error("Error closing redis client", slog.Any("error", err))
		}
	}
	if a.DB != nil {
		a.logger.Info("Closing database connection pool...")
		if err := a.DB.Close(); err != nil {
			a.logger.Error("Error closing database", slog.Any("error", err))
		}
	}
}

func initDB(ctx context.Context, cfg *config.Config) (*sqlx.DB, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.Database.URL)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	return db, nil
}

func initRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}
