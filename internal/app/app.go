// -----------------------------------------------------------------------
// App - constructs and wires every service, owns the lifecycle
// -----------------------------------------------------------------------

package app

import (
	"context"
	"fmt"
	"time"

	"github.com/storymill/storymill/internal/common"
	"github.com/storymill/storymill/internal/handlers"
	"github.com/storymill/storymill/internal/interfaces"
	"github.com/storymill/storymill/internal/jobs"
	"github.com/storymill/storymill/internal/models"
	"github.com/storymill/storymill/internal/queue"
	"github.com/storymill/storymill/internal/services/cascade"
	"github.com/storymill/storymill/internal/services/events"
	"github.com/storymill/storymill/internal/services/generation"
	"github.com/storymill/storymill/internal/services/scheduler"
	"github.com/storymill/storymill/internal/services/status"
	"github.com/storymill/storymill/internal/services/storyctx"
	"github.com/storymill/storymill/internal/storage"
	"github.com/storymill/storymill/internal/storage/badger"
	"github.com/storymill/storymill/internal/workers"
	"github.com/ternarybob/arbor"
)

// App holds the wired application.
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	db           *badger.BadgerDB
	Ledger       interfaces.LedgerStorage
	Entities     interfaces.EntityStorage
	QueueStore   interfaces.QueueStorage
	Media        *storage.FilesystemStorage
	EventService interfaces.EventService
	Registry     *queue.Registry
	JobService   interfaces.JobService
	Streams      *status.StreamManager

	pool      *workers.Pool
	scheduler *scheduler.Service

	APIHandler     *handlers.APIHandler
	JobHandler     *handlers.JobHandler
	ProjectHandler *handlers.ProjectHandler
	WSHandler      *handlers.WebSocketHandler
}

// New builds the application from configuration. Construction wires every
// collaborator; nothing re-initializes after startup.
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	a := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := a.initStorage(); err != nil {
		return nil, err
	}
	if err := a.initServices(); err != nil {
		return nil, err
	}
	if err := a.initHandlers(); err != nil {
		return nil, err
	}

	return a, nil
}

func (a *App) initStorage() error {
	db, err := badger.NewBadgerDB(a.Logger, &a.Config.Storage.Badger)
	if err != nil {
		return fmt.Errorf("failed to initialize badger: %w", err)
	}
	a.db = db
	a.Ledger = badger.NewLedgerStorage(db, a.Logger)
	a.Entities = badger.NewEntityStorage(db, a.Logger)
	a.QueueStore = badger.NewQueueStorage(db, a.Logger)

	media, err := storage.NewFilesystemStorage(a.Config.Storage.Filesystem.MediaDir, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize media storage: %w", err)
	}
	a.Media = media

	return nil
}

func (a *App) initServices() error {
	a.EventService = events.NewService(a.Logger)

	retry := models.RetryPolicy{
		MaxAttempts: a.Config.Queue.MaxAttempts,
		BaseDelay:   a.Config.RetryBaseDelay(),
	}
	a.Registry = queue.NewRegistry(a.QueueStore, retry, a.Logger)

	a.JobService = jobs.NewService(a.Ledger, a.Registry, a.Logger)

	bridge := status.NewBridge(a.Ledger, a.EventService, a.Logger)
	bridge.Attach(a.Registry)

	builder := storyctx.NewBuilder(a.Entities, a.Logger)
	resolver := storyctx.NewResolver(a.Entities, a.Logger)

	generator, err := generation.NewGenerationService(a.Config, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize generation service: %w", err)
	}
	prompts, err := generation.LoadPrompts(a.Config.Generation.PromptsFile, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to load prompts: %w", err)
	}

	trigger := cascade.NewTrigger(a.JobService, a.Entities, builder, resolver, a.Logger)
	if err := trigger.Attach(a.EventService); err != nil {
		return fmt.Errorf("failed to attach cascade trigger: %w", err)
	}

	deps := workers.Deps{
		Entities:  a.Entities,
		Media:     a.Media,
		Builder:   builder,
		Resolver:  resolver,
		Generator: generator,
		Prompts:   prompts,
		Logger:    a.Logger,
	}

	a.pool = workers.NewPool(a.Registry, a.Config, a.Logger)
	processors := []workers.Processor{
		workers.NewCharacterWorker(deps),
		workers.NewObjectWorker(deps),
		workers.NewSceneWorker(deps),
		workers.NewFrameWorker(deps),
		workers.NewVideoWorker(deps),
		workers.NewStitchWorker(deps, a.Media.Root()),
		workers.NewScriptWorker(deps),
		workers.NewImageEditWorker(deps),
	}
	for _, proc := range processors {
		if err := a.pool.Register(proc); err != nil {
			return fmt.Errorf("failed to register worker: %w", err)
		}
	}

	pollInterval, err := time.ParseDuration(a.Config.WebSocket.PollInterval)
	if err != nil {
		pollInterval = time.Second
	}
	progressInterval, err := time.ParseDuration(a.Config.WebSocket.ProgressInterval)
	if err != nil {
		progressInterval = 2 * time.Second
	}
	a.Streams = status.NewStreamManager(a.Ledger, a.EventService, pollInterval, progressInterval, a.Logger)

	a.scheduler = scheduler.NewService(a.Ledger, a.EventService, a.Config.Maintenance.Schedule, a.Config.StaleThreshold(), a.Logger)

	return nil
}

func (a *App) initHandlers() error {
	a.APIHandler = handlers.NewAPIHandler(a.Logger)
	a.JobHandler = handlers.NewJobHandler(a.JobService, a.Logger)
	a.ProjectHandler = handlers.NewProjectHandler(a.Entities, a.Logger)

	wsHandler, err := handlers.NewWebSocketHandler(a.EventService, a.Streams, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize websocket handler: %w", err)
	}
	a.WSHandler = wsHandler

	return nil
}

// Start launches the worker pool and the maintenance scheduler.
func (a *App) Start(ctx context.Context) error {
	a.pool.Start(ctx)
	if err := a.scheduler.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	a.Logger.Info().Msg("Application started")
	return nil
}

// Close shuts everything down in reverse dependency order.
func (a *App) Close() error {
	a.scheduler.Stop()
	a.pool.Stop()
	a.Streams.Close()
	if err := a.EventService.Close(); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to close event service")
	}
	if err := a.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	a.Logger.Info().Msg("Application stopped")
	return nil
}
