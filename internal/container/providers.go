package container

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/claims-workflow/internal/application/dispatcher"
	"github.com/garyjia/claims-workflow/internal/application/port"
	"github.com/garyjia/claims-workflow/internal/application/service"
	"github.com/garyjia/claims-workflow/internal/application/workflow"
	"github.com/garyjia/claims-workflow/internal/auth"
	"github.com/garyjia/claims-workflow/internal/infrastructure/document"
	infraLark "github.com/garyjia/claims-workflow/internal/infrastructure/external/lark"
	"github.com/garyjia/claims-workflow/internal/infrastructure/external/openai"
	"github.com/garyjia/claims-workflow/internal/infrastructure/persistence/repository"
	"github.com/garyjia/claims-workflow/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/claims-workflow/internal/infrastructure/report"
	"github.com/garyjia/claims-workflow/internal/infrastructure/storage"
	"github.com/garyjia/claims-workflow/migrations"
	"github.com/garyjia/claims-workflow/pkg/database"
	"github.com/garyjia/claims-workflow/pkg/utils"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	Raw            *database.DB
	TransactionMgr *sqlite.DB
}

// ExternalBundle holds the adapters to systems outside the database.
type ExternalBundle struct {
	Notifier  port.Notifier
	Advisor   port.Advisor
	Inspector port.DocumentInspector
	Reporter  port.PaymentReporter
}

// ProvideDatabase opens the database and runs pending migrations.
// Embedded migrations are used unless a migrations directory is configured.
func ProvideDatabase(cfg *DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	raw, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		BusyTimeout:     cfg.BusyTimeout,
	}, logger)
	if err != nil {
		return nil, err
	}

	migrator := database.NewMigrator(raw, logger)
	if cfg.MigrationsDir != "" {
		err = migrator.RunMigrationsDir(cfg.MigrationsDir)
	} else {
		err = migrator.RunMigrations(migrations.FS)
	}
	if err != nil {
		_ = raw.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DatabaseBundle{
		Raw:            raw,
		TransactionMgr: sqlite.NewDB(raw.DB, logger),
	}, nil
}

// ProvideRepositories creates all repositories on top of the transaction manager.
func ProvideRepositories(db *sqlite.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &RepositoryBundle{
		Claims:         repository.NewClaimRepository(db, logger),
		Reviews:        repository.NewReviewRepository(db, logger),
		Payments:       repository.NewPaymentRepository(db, logger),
		Attachments:    repository.NewAttachmentRepository(db, logger),
		Users:          repository.NewUserRepository(db, logger),
		PaymentMethods: repository.NewPaymentMethodRepository(db, logger),
		ClaimTypes:     repository.NewClaimTypeRepository(db, logger),
		Transitions:    repository.NewTransitionRepository(db, logger),
	}, nil
}

// ProvideStorage creates the attachment file storage.
func ProvideStorage(cfg *StorageConfig, logger *zap.Logger) (port.FileStorage, error) {
	if cfg == nil {
		return nil, fmt.Errorf("storage config is required")
	}
	return storage.NewLocalFileStorage(cfg.AttachmentDir, logger)
}

// ProvideExternal creates the notifier, advisor, document inspector and
// report renderer. Missing credentials select the log-only notifier and
// leave the advisor nil.
func ProvideExternal(cfg *Config, logger *zap.Logger) (*ExternalBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	bundle := &ExternalBundle{
		Inspector: document.NewPDFInspector(cfg.Storage.MaxPDFPages, logger),
		Reporter:  report.NewExcelReporter(logger),
	}

	larkCfg := infraLark.Config{AppID: cfg.Lark.AppID, AppSecret: cfg.Lark.AppSecret}
	if larkCfg.Enabled() {
		bundle.Notifier = infraLark.NewNotifier(infraLark.NewClient(larkCfg, logger), logger)
	} else {
		logger.Info("Lark credentials not configured, notifications will only be logged")
		bundle.Notifier = infraLark.NewLogNotifier(logger)
	}

	if cfg.OpenAI.APIKey == "" {
		logger.Info("OpenAI API key not configured, advisor disabled")
		return bundle, nil
	}

	prompts := openai.DefaultPrompts()
	if cfg.OpenAI.PromptsPath != "" {
		loaded, err := openai.LoadPrompts(cfg.OpenAI.PromptsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load prompts: %w", err)
		}
		prompts = loaded
	}
	bundle.Advisor = openai.NewAdvisor(openai.Config{
		APIKey:  cfg.OpenAI.APIKey,
		BaseURL: cfg.OpenAI.BaseURL,
		Model:   cfg.OpenAI.Model,
		Timeout: cfg.OpenAI.Timeout,
	}, prompts, logger)

	return bundle, nil
}

// ProvideDispatcher creates the event dispatcher.
func ProvideDispatcher(cfg *WorkflowConfig, logger *zap.Logger) (dispatcher.Dispatcher, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	opts := []dispatcher.Option{dispatcher.WithLogger(utils.NewKVLogger(logger))}
	if cfg != nil && cfg.HandlerTimeout > 0 {
		opts = append(opts, dispatcher.WithHandlerTimeout(cfg.HandlerTimeout))
	}
	return dispatcher.NewDispatcher(opts...), nil
}

// EngineDeps holds dependencies required for creating the claim engine.
type EngineDeps struct {
	Repos      *RepositoryBundle
	TxManager  port.TransactionManager
	Storage    port.FileStorage
	Inspector  port.DocumentInspector
	Dispatcher dispatcher.Dispatcher
	Config     *Config
	Logger     *zap.Logger
}

// ProvideEngine creates the claim workflow engine.
func ProvideEngine(deps *EngineDeps) (workflow.ClaimEngine, error) {
	if deps == nil {
		return nil, fmt.Errorf("engine dependencies are required")
	}
	if deps.Repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if deps.TxManager == nil {
		return nil, fmt.Errorf("transaction manager is required")
	}
	if deps.Storage == nil {
		return nil, fmt.Errorf("file storage is required")
	}

	opts := []workflow.EngineOption{
		workflow.WithLogger(utils.NewKVLogger(deps.Logger)),
	}
	if deps.Dispatcher != nil {
		opts = append(opts, workflow.WithDispatcher(deps.Dispatcher))
	}
	if deps.Config != nil {
		opts = append(opts, workflow.WithOperationTimeout(deps.Config.Workflow.OperationTimeout))
		if deps.Config.Storage.MaxUploadSize > 0 {
			opts = append(opts, workflow.WithMaxUploadSize(deps.Config.Storage.MaxUploadSize))
		}
	}

	return workflow.NewEngine(workflow.Dependencies{
		Claims:         deps.Repos.Claims,
		Reviews:        deps.Repos.Reviews,
		Payments:       deps.Repos.Payments,
		Attachments:    deps.Repos.Attachments,
		Users:          deps.Repos.Users,
		PaymentMethods: deps.Repos.PaymentMethods,
		ClaimTypes:     deps.Repos.ClaimTypes,
		Transitions:    deps.Repos.Transitions,
		TxManager:      deps.TxManager,
		Storage:        deps.Storage,
		Inspector:      deps.Inspector,
	}, opts...), nil
}

// ServiceDeps holds dependencies required for creating application services.
type ServiceDeps struct {
	Repos      *RepositoryBundle
	Engine     workflow.ClaimEngine
	External   *ExternalBundle
	Dispatcher dispatcher.Dispatcher
	Logger     *zap.Logger
}

// ProvideServices creates the application services and subscribes the
// notification service to status changes.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil {
		return nil, fmt.Errorf("service dependencies are required")
	}
	if deps.Repos == nil || deps.Engine == nil || deps.External == nil {
		return nil, fmt.Errorf("repositories, engine and external adapters are required")
	}

	serviceLogger := utils.NewKVLogger(deps.Logger)

	notification := service.NewNotificationService(deps.Repos.Users, deps.External.Notifier, serviceLogger)
	if deps.Dispatcher != nil {
		notification.Register(deps.Dispatcher)
	}

	return &ServiceBundle{
		Identity:     service.NewIdentityService(deps.Repos.Users, serviceLogger),
		Notification: notification,
		Advice:       service.NewAdviceService(deps.Engine, deps.Repos.Users, deps.External.Advisor, serviceLogger),
		Report:       service.NewReportService(deps.Engine, deps.External.Reporter, serviceLogger),
	}, nil
}

// ProvideTokenManager creates the bearer token issuer and verifier.
func ProvideTokenManager(cfg *AuthConfig) (*auth.JWTManager, error) {
	if cfg == nil || cfg.JWTSecret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}
	return auth.NewJWTManager(cfg.JWTSecret, cfg.Issuer, cfg.TokenTTL), nil
}
