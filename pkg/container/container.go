package container

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"restaurant-backoffice/internal/config"
	"restaurant-backoffice/internal/domains/order/lifecycle"
	infraCache "restaurant-backoffice/internal/infrastructure/cache"
	"restaurant-backoffice/internal/infrastructure/database"
	"restaurant-backoffice/pkg/cache"
	pkgdb "restaurant-backoffice/pkg/database"
	"restaurant-backoffice/pkg/jwt"
	"restaurant-backoffice/pkg/logger"

	orderHandler "restaurant-backoffice/internal/domains/order/handler"
	orderRepo "restaurant-backoffice/internal/domains/order/repository"
	orderService "restaurant-backoffice/internal/domains/order/service"

	promotionHandler "restaurant-backoffice/internal/domains/promotion/handler"
	promotionRepo "restaurant-backoffice/internal/domains/promotion/repository"
	promotionService "restaurant-backoffice/internal/domains/promotion/service"
)

const cacheKeyPrefix = "backoffice:"

// ========================================
// CONTAINER STRUCT
// ========================================

// Container is the root of the dependency graph shared by cmd/api and
// cmd/worker.
type Container struct {
	// ========================================
	// INFRASTRUCTURE LAYER
	// ========================================
	Config      *config.Config
	DB          *database.PostgresDB
	Redis       *infraCache.RedisClient
	Cache       cache.Cache
	TxManager   pkgdb.TxManager
	AsynqClient *asynq.Client
	JWTManager  *jwt.Manager
	Location    *time.Location

	// ========================================
	// REPOSITORY LAYER
	// ========================================
	PromotionRepo promotionRepo.PromotionRepository
	OrderRepo     orderRepo.OrderRepository

	// ========================================
	// SERVICE LAYER
	// ========================================
	OrderMachine     *lifecycle.Machine
	PromotionService promotionService.ServiceInterface
	OrderService     orderService.OrderService

	// ========================================
	// HANDLER LAYER
	// ========================================
	AdminProHandler  *promotionHandler.AdminHandler
	PublicProHandler *promotionHandler.PublicHandler
	OrderHandler     *orderHandler.OrderHandler
}

// ========================================
// CONSTRUCTOR: BUILD CONTAINER
// ========================================

// NewContainer builds the graph in dependency order:
// config, infrastructure, repositories, services, handlers.
func NewContainer() (*Container, error) {
	logger.Info("Initializing container", nil)

	c := &Container{}

	// ========================================
	// STEP 1: LOAD CONFIGURATION
	// ========================================
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	c.Config = cfg
	c.Location = cfg.Location()
	logger.Info("Config loaded", map[string]interface{}{
		"environment": cfg.App.Environment,
		"timezone":    c.Location.String(),
	})

	// ========================================
	// STEP 2: INITIALIZE DATABASE
	// ========================================
	dbConfig, err := config.LoadDatabaseConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load database config: %w", err)
	}

	db := database.NewPostgresDB(dbConfig)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.HealthCheck(ctx); err != nil {
		return nil, fmt.Errorf("database health check failed: %w", err)
	}
	c.DB = db
	c.TxManager = pkgdb.NewTxManager(db.Pool)

	// ========================================
	// STEP 3: INITIALIZE CACHE + QUEUE CLIENT
	// ========================================
	c.Redis = infraCache.NewRedisClient(cfg.Redis.Host, cfg.Redis.Password, cfg.Redis.DB)
	if err := c.Redis.Connect(ctx); err != nil {
		// Cache misses fall through to Postgres, so Redis is not fatal here
		logger.Warn("Redis connection failed (non-critical)", map[string]interface{}{"error": err.Error()})
	}
	c.Cache = infraCache.NewRedisCache(c.Redis.Client, cacheKeyPrefix)
	c.AsynqClient = asynq.NewClient(c.RedisConnOpt())

	c.JWTManager = jwt.NewManager(cfg.JWT.Secret, cfg.AccessTokenTTL())

	// ========================================
	// STEP 4-6: REPOSITORIES, SERVICES, HANDLERS
	// ========================================
	c.initRepositories()
	c.initServices()
	c.initHandlers()

	logger.Info("Container initialized", nil)
	return c, nil
}

// RedisConnOpt is shared by the asynq client, server and scheduler
func (c *Container) RedisConnOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     c.Config.Redis.Host,
		Password: c.Config.Redis.Password,
		DB:       c.Config.Redis.DB,
	}
}

// ========================================
// PRIVATE INITIALIZATION METHODS
// ========================================

func (c *Container) initRepositories() {
	pool := c.DB.Pool

	c.PromotionRepo = promotionRepo.NewPostgresRepository(pool, c.Cache)
	c.OrderRepo = orderRepo.NewPostgresOrderRepository(pool)
}

func (c *Container) initServices() {
	var opts []lifecycle.Option
	if c.Config.Order.KitchenStages {
		opts = append(opts, lifecycle.WithKitchenStages())
	}
	c.OrderMachine = lifecycle.NewMachine(opts...)

	c.PromotionService = promotionService.NewPromotionService(
		c.PromotionRepo,
		c.TxManager,
		c.Location,
	)

	c.OrderService = orderService.NewOrderService(
		c.OrderRepo,
		c.OrderMachine,
		c.TxManager,
		c.AsynqClient,
		c.Location,
	)
}

func (c *Container) initHandlers() {
	c.AdminProHandler = promotionHandler.NewAdminHandler(c.PromotionService)
	c.PublicProHandler = promotionHandler.NewPublicHandler(c.PromotionService)
	c.OrderHandler = orderHandler.NewOrderHandler(c.OrderService)
}

// Cleanup releases connections; called on shutdown
func (c *Container) Cleanup() {
	logger.Info("Cleaning up container resources", nil)

	if c.AsynqClient != nil {
		if err := c.AsynqClient.Close(); err != nil {
			logger.Error("Failed to close asynq client", err)
		}
	}

	if c.DB != nil {
		_ = c.DB.Close()
	}

	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			logger.Error("Failed to close Redis", err)
		}
	}
}
