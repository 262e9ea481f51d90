package container

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/garyjia/claims-workflow/internal/application/dispatcher"
	"github.com/garyjia/claims-workflow/internal/application/port"
	"github.com/garyjia/claims-workflow/internal/application/service"
	"github.com/garyjia/claims-workflow/internal/application/workflow"
	"github.com/garyjia/claims-workflow/internal/auth"
	"github.com/garyjia/claims-workflow/internal/infrastructure/persistence/sqlite"
	httpapi "github.com/garyjia/claims-workflow/internal/interfaces/http"
	"github.com/garyjia/claims-workflow/pkg/database"
	"github.com/garyjia/claims-workflow/pkg/utils"
)

// Container manages all application dependencies and lifecycle.
// Components are initialized in dependency order and torn down in reverse.
type Container struct {
	config *Config
	logger *zap.Logger

	// Infrastructure - Data
	rawDB        *database.DB
	db           *sqlite.DB
	repositories *RepositoryBundle

	// Infrastructure - Storage and external systems
	fileStorage port.FileStorage
	external    *ExternalBundle

	// Application
	dispatcher dispatcher.Dispatcher
	engine     workflow.ClaimEngine
	services   *ServiceBundle
	tokens     *auth.JWTManager

	// Lifecycle
	mu     sync.Mutex
	ready  atomic.Bool
	closed atomic.Bool
}

// RepositoryBundle groups all repositories for convenient access.
type RepositoryBundle struct {
	Claims         port.ClaimRepository
	Reviews        port.ReviewRepository
	Payments       port.PaymentRepository
	Attachments    port.AttachmentRepository
	Users          port.UserRepository
	PaymentMethods port.PaymentMethodRepository
	ClaimTypes     port.ClaimTypeRepository
	Transitions    port.TransitionRepository
}

// ServiceBundle groups all application services.
type ServiceBundle struct {
	Identity     service.IdentityService
	Notification service.NotificationService
	Advice       service.AdviceService
	Report       service.ReportService
}

// HealthStatus represents the health of all components.
type HealthStatus struct {
	Overall    bool                       `json:"overall"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents health of a single component.
type ComponentHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// NewContainer creates a new container from configuration.
// It does not initialize components - call Start() to initialize.
func NewContainer(cfg *Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Container{
		config: cfg,
		logger: logger,
	}, nil
}

// Start initializes all components.
// Components are initialized in dependency order:
// 1. Database and repositories
// 2. Storage and external adapters
// 3. Event dispatcher and claim engine
// 4. Application services and token manager
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}
	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	c.logger.Info("Starting container initialization")

	if err := c.initDatabase(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	c.logger.Info("Database initialized")

	if err := c.initAdapters(); err != nil {
		c.closeDatabase()
		return fmt.Errorf("failed to initialize adapters: %w", err)
	}
	c.logger.Info("Storage and external adapters initialized")

	if err := c.initDispatcherAndEngine(); err != nil {
		c.closeDatabase()
		return fmt.Errorf("failed to initialize dispatcher and engine: %w", err)
	}
	c.logger.Info("Dispatcher and claim engine initialized")

	if err := c.initServices(); err != nil {
		_ = c.dispatcher.Close()
		c.closeDatabase()
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	c.logger.Info("Application services initialized")

	c.ready.Store(true)
	c.logger.Info("Container started successfully")
	return nil
}

// Close gracefully shuts down all components in reverse order.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container already closed")
	}

	c.logger.Info("Closing container")

	var errs []error

	// Pending notifications are delivered before the database goes away
	if c.dispatcher != nil {
		if err := c.dispatcher.Close(); err != nil {
			c.logger.Error("Failed to close dispatcher", zap.Error(err))
			errs = append(errs, fmt.Errorf("close dispatcher: %w", err))
		} else {
			c.logger.Info("Dispatcher closed")
		}
	}

	if c.rawDB != nil {
		if err := c.rawDB.Close(); err != nil {
			c.logger.Error("Failed to close database", zap.Error(err))
			errs = append(errs, fmt.Errorf("close database: %w", err))
		} else {
			c.logger.Info("Database closed")
		}
	}

	c.closed.Store(true)
	c.ready.Store(false)

	if len(errs) > 0 {
		c.logger.Error("Container closed with errors", zap.Int("error_count", len(errs)))
		return fmt.Errorf("container closed with %d errors", len(errs))
	}

	c.logger.Info("Container closed successfully")
	return nil
}

// Ready returns true when all components are initialized.
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Health returns health status of all components.
func (c *Container) Health(ctx context.Context) *HealthStatus {
	status := &HealthStatus{
		Overall:    true,
		Components: make(map[string]ComponentHealth),
	}
	mark := func(name string, h ComponentHealth) {
		status.Components[name] = h
		if !h.Healthy {
			status.Overall = false
		}
	}

	switch {
	case c.rawDB == nil:
		mark("database", ComponentHealth{Message: "not initialized"})
	default:
		if err := c.rawDB.PingContext(ctx); err != nil {
			mark("database", ComponentHealth{Message: fmt.Sprintf("ping failed: %v", err)})
		} else {
			mark("database", ComponentHealth{Healthy: true})
		}
	}

	if c.dispatcher != nil {
		mark("dispatcher", ComponentHealth{Healthy: true})
	} else {
		mark("dispatcher", ComponentHealth{Message: "not initialized"})
	}

	if c.engine != nil {
		mark("engine", ComponentHealth{Healthy: true})
	} else {
		mark("engine", ComponentHealth{Message: "not initialized"})
	}

	// The advisor is optional and never affects overall health
	if c.external != nil && c.external.Advisor != nil {
		status.Components["advisor"] = ComponentHealth{Healthy: true}
	} else {
		status.Components["advisor"] = ComponentHealth{Healthy: true, Message: "disabled"}
	}

	return status
}

// initDatabase initializes the database and all repositories using providers.
func (c *Container) initDatabase() error {
	dbBundle, err := ProvideDatabase(&c.config.Database, c.logger)
	if err != nil {
		return err
	}
	c.rawDB = dbBundle.Raw
	c.db = dbBundle.TransactionMgr

	repos, err := ProvideRepositories(c.db, c.logger)
	if err != nil {
		c.closeDatabase()
		return err
	}
	c.repositories = repos
	return nil
}

// initAdapters initializes file storage and the external adapters.
func (c *Container) initAdapters() error {
	files, err := ProvideStorage(&c.config.Storage, c.logger)
	if err != nil {
		return err
	}
	c.fileStorage = files

	external, err := ProvideExternal(c.config, c.logger)
	if err != nil {
		return err
	}
	c.external = external
	return nil
}

// initDispatcherAndEngine initializes the event dispatcher and claim engine.
func (c *Container) initDispatcherAndEngine() error {
	disp, err := ProvideDispatcher(&c.config.Workflow, c.logger)
	if err != nil {
		return err
	}
	c.dispatcher = disp

	engine, err := ProvideEngine(&EngineDeps{
		Repos:      c.repositories,
		TxManager:  c.db,
		Storage:    c.fileStorage,
		Inspector:  c.external.Inspector,
		Dispatcher: c.dispatcher,
		Config:     c.config,
		Logger:     c.logger,
	})
	if err != nil {
		_ = c.dispatcher.Close()
		return err
	}
	c.engine = engine
	return nil
}

// initServices initializes application services and the token manager.
func (c *Container) initServices() error {
	services, err := ProvideServices(&ServiceDeps{
		Repos:      c.repositories,
		Engine:     c.engine,
		External:   c.external,
		Dispatcher: c.dispatcher,
		Logger:     c.logger,
	})
	if err != nil {
		return err
	}
	c.services = services

	tokens, err := ProvideTokenManager(&c.config.Auth)
	if err != nil {
		return err
	}
	c.tokens = tokens
	return nil
}

func (c *Container) closeDatabase() {
	if c.rawDB != nil {
		_ = c.rawDB.Close()
	}
}

// HTTPServer builds the REST server over the started container.
func (c *Container) HTTPServer() (*httpapi.Server, error) {
	if !c.ready.Load() {
		return nil, fmt.Errorf("container is not started")
	}
	cfg := httpapi.ServerConfig{
		Host:            c.config.Server.Host,
		Port:            c.config.Server.Port,
		ReadTimeout:     c.config.Server.ReadTimeout,
		WriteTimeout:    c.config.Server.WriteTimeout,
		ShutdownTimeout: c.config.Server.ShutdownTimeout,
		MaxUploadSize:   c.config.Storage.MaxUploadSize,
	}
	return httpapi.NewServer(cfg, httpapi.Services{
		Engine:   c.engine,
		Identity: c.services.Identity,
		Tokens:   c.tokens,
		Advice:   c.services.Advice,
		Reports:  c.services.Report,
	}, utils.NewKVLogger(c.logger)), nil
}

// Getters for accessing container components

// DB returns the transaction manager.
func (c *Container) DB() port.TransactionManager {
	return c.db
}

// Repositories returns all repositories.
func (c *Container) Repositories() *RepositoryBundle {
	return c.repositories
}

// Engine returns the claim workflow engine.
func (c *Container) Engine() workflow.ClaimEngine {
	return c.engine
}

// Services returns all application services.
func (c *Container) Services() *ServiceBundle {
	return c.services
}

// Dispatcher returns the event dispatcher.
func (c *Container) Dispatcher() dispatcher.Dispatcher {
	return c.dispatcher
}

// Tokens returns the bearer token manager.
func (c *Container) Tokens() *auth.JWTManager {
	return c.tokens
}

// Logger returns the container's logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Config returns the container's configuration.
func (c *Container) Config() *Config {
	return c.config
}
