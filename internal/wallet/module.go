// Package wallet provides the main wallet module orchestrator
package wallet

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/blocpay/walletcore/internal/identities"
	"github.com/blocpay/walletcore/internal/wallet/cache"
	"github.com/blocpay/walletcore/internal/wallet/chains"
	"github.com/blocpay/walletcore/internal/wallet/config"
	"github.com/blocpay/walletcore/internal/wallet/interfaces"
	"github.com/blocpay/walletcore/internal/wallet/provider"
	"github.com/blocpay/walletcore/internal/wallet/repository"
	"github.com/blocpay/walletcore/internal/wallet/services"
	"github.com/blocpay/walletcore/internal/wallet/trigger"
)

// Worker represents a background worker
type Worker interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Name() string
}

// Module wires the wallet core: classifier, provider client, repositories,
// cache, provisioning service and the async trigger.
type Module struct {
	config *config.Config
	log    *zap.Logger

	db    *gorm.DB
	redis redis.Cmdable

	classifier  *chains.Classifier
	cache       cache.Cache
	memoryCache *cache.Memory
	client      interfaces.ProvisioningClient
	addresses   *repository.AddressRepository
	service     *services.ProvisioningService
	trigger     *trigger.Trigger
	identity    *identities.Service

	workers []Worker
}

// ModuleOptions holds module initialization options
type ModuleOptions struct {
	Config   *config.Config
	Logger   *zap.Logger
	Database *gorm.DB
	Redis    redis.Cmdable
}

// NewModule creates a new wallet module instance
func NewModule(opts ModuleOptions) (*Module, error) {
	if err := opts.Config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	m := &Module{
		config: opts.Config,
		log:    opts.Logger,
		db:     opts.Database,
		redis:  opts.Redis,
	}
	if err := m.initializeComponents(); err != nil {
		return nil, fmt.Errorf("failed to initialize components: %w", err)
	}
	return m, nil
}

func (m *Module) initializeComponents() error {
	m.classifier = chains.NewClassifier(m.config.Chains)

	switch m.config.Cache.Backend {
	case "redis":
		if m.redis == nil {
			return fmt.Errorf("redis cache backend selected but no redis client provided")
		}
		m.cache = cache.NewRedis(m.redis, m.log)
	default:
		m.memoryCache = cache.NewMemory(m.config.Cache.SweepInterval, m.log)
		m.cache = m.memoryCache
	}

	m.client = provider.NewClient(
		m.config.Provider.BaseURL,
		m.config.Provider.APIKey,
		m.config.Provider.Timeout,
		m.log,
	)

	m.addresses = repository.NewAddressRepository(m.db, m.cache, m.config.Cache.AddressTTL, m.log)
	m.service = services.NewProvisioningService(m.classifier, m.client, m.addresses, m.log)

	m.trigger = trigger.New(
		m.service,
		m.classifier.Configured(),
		m.config.Trigger.QueueSize,
		m.config.Trigger.RunTimeout,
		m.log,
	)
	m.workers = append(m.workers, m.trigger)

	m.identity = identities.NewService(m.db, m.cache, m.trigger, m.log)
	return nil
}

// Start starts the wallet module
func (m *Module) Start(ctx context.Context) error {
	m.log.Info("starting wallet module")

	if err := m.runMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	for _, worker := range m.workers {
		if err := worker.Start(ctx); err != nil {
			m.log.Error("failed to start worker", zap.String("worker", worker.Name()), zap.Error(err))
			return fmt.Errorf("failed to start worker %s: %w", worker.Name(), err)
		}
		m.log.Info("started worker", zap.String("worker", worker.Name()))
	}

	if err := m.HealthCheck(ctx); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	m.log.Info("wallet module started successfully")
	return nil
}

// Stop stops the wallet module
func (m *Module) Stop(ctx context.Context) error {
	m.log.Info("stopping wallet module")

	for _, worker := range m.workers {
		if err := worker.Stop(ctx); err != nil {
			m.log.Error("failed to stop worker", zap.String("worker", worker.Name()), zap.Error(err))
		} else {
			m.log.Info("stopped worker", zap.String("worker", worker.Name()))
		}
	}

	if m.memoryCache != nil {
		m.memoryCache.Stop()
	}

	if sqlDB, err := m.db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			m.log.Error("failed to close database connection", zap.Error(err))
		}
	}

	m.log.Info("wallet module stopped")
	return nil
}

func (m *Module) runMigrations() error {
	m.log.Info("running database migrations")
	if err := m.db.AutoMigrate(
		&interfaces.User{},
		&interfaces.WalletAddress{},
	); err != nil {
		return fmt.Errorf("failed to run auto-migrations: %w", err)
	}
	m.log.Info("database migrations completed")
	return nil
}

// HealthCheck verifies database and cache connectivity.
func (m *Module) HealthCheck(ctx context.Context) error {
	if sqlDB, err := m.db.DB(); err != nil {
		return fmt.Errorf("failed to get database connection: %w", err)
	} else if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	if err := m.cache.Ping(ctx); err != nil {
		return fmt.Errorf("cache ping failed: %w", err)
	}
	return nil
}

// GetProvisioningService returns the sanctioned entry point into the core.
func (m *Module) GetProvisioningService() interfaces.ProvisioningService {
	return m.service
}

// GetIdentityService returns the identity sync service.
func (m *Module) GetIdentityService() *identities.Service {
	return m.identity
}

// InitializeDatabase initializes database connection from config
func InitializeDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.GetDSN()), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxConnections)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	return db, nil
}

// InitializeRedis initializes Redis connection from config
func InitializeRedis(cfg config.RedisConfig) redis.Cmdable {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.Database,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
}
