package internal

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"socialchat/auth"
	"socialchat/domain"
	"socialchat/domain/event"
	"socialchat/infrastructure/api"
	"socialchat/infrastructure/indexer"
	"socialchat/infrastructure/ws"
	"socialchat/moderation"
	"socialchat/observability"
	"socialchat/repositories"
	"socialchat/runtime"
	"socialchat/runtime/workers"
	"socialchat/services"
	"strings"

	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
)

// App is the assembled chat server: storage, runtime and HTTP surface.
type App struct {
	log          *slog.Logger
	config       Config
	db           *badger.DB
	blugeWriter  *bluge.Writer
	repository   *repositories.MessageRepository
	orchestrator *runtime.Orchestrator
	socket       *ws.Handler
	cancel       context.CancelFunc

	Router http.Handler
	Tokens *auth.TokenService
}

// NewApp opens the stores and starts the runtime. Close releases everything,
// including on a partial failure inside NewApp.
func NewApp(ctx context.Context, config Config, log *slog.Logger) (_ *App, err error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	charReplacement, err := CharacterRune(config.CharReplacement)
	if err != nil {
		return nil, err
	}

	app := &App{log: log, config: config}
	defer func() {
		if err != nil {
			err = stderrors.Join(err, app.Close())
		}
	}()

	app.db, err = badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return nil, fmt.Errorf("database opening failed: %w", err)
	}
	app.blugeWriter, err = bluge.OpenWriter(bluge.DefaultConfig(config.BlugeFilepath))
	if err != nil {
		return nil, fmt.Errorf("search index opening failed: %w", err)
	}
	app.repository, err = repositories.NewMessageRepository(app.db, log, config.HistoryLimit, config.MaxContentLength)
	if err != nil {
		return nil, err
	}
	moderator, err := loadModerator(config.CensoredDir, charReplacement, log)
	if err != nil {
		return nil, err
	}
	app.Tokens, err = auth.NewTokenService(config.AuthSecret, config.AuthTokenDuration)
	if err != nil {
		return nil, err
	}

	telemetryChan := make(chan event.Event, config.BufferSize)
	counter := event.NewCounter()
	supervisor := workers.NewSupervisor(log, telemetryChan, config.RestartInterval)
	supervisor.Add(workers.NewTelemetryWorker(log, config.MetricInterval, telemetryChan, counter, []event.Handler{
		event.NewWorkerRestartedAfterPanicHandler(log, counter),
		event.NewDeliveryFailedHandler(log, counter),
		event.NewLatencyHandler(log, counter, config.LatencyThreshold),
		event.NewSessionHandler(log, counter),
		event.NewCensoredHandler(log, counter),
	}))

	registry := runtime.NewRegistry()
	index := indexer.NewMessageIndex(app.blugeWriter, log, config.BufferSize)
	supervisor.Add(index)
	dispatcher := runtime.NewDispatcher(log, registry, supervisor, telemetryChan, config.SinkTimeout, config.BufferSize).
		Add(index)
	app.orchestrator = runtime.NewOrchestrator(log, supervisor, registry, dispatcher, app.repository, moderator, telemetryChan)
	chat := services.NewChatService(app.orchestrator, index)

	origins, invalid := ws.NewOriginPolicy(config.Origins())
	for _, origin := range invalid {
		log.Warn("Ignoring invalid origin in configuration", "origin", origin)
	}

	ctx, app.cancel = context.WithCancel(ctx)
	app.socket = ws.NewHandler(ctx, log, chat, auth.NewTokenAuthenticator(app.Tokens), origins, ws.SessionConfig{
		Room:         domain.DefaultRoom,
		HistoryLimit: config.HistoryLimit,
		BufferSize:   config.ConnectionBufferSize,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
		PingPeriod:   config.PingPeriod,
		RateLimit: ws.RateLimitConfig{
			Burst:          config.RateLimitBurst,
			RefillInterval: config.RateLimitRefill,
		},
	})
	collector := observability.NewCollector(log, registry, app.socket, counter)
	app.Router = api.NewRouter(api.NewAPI(log, chat, collector, domain.DefaultRoom), app.socket)

	app.orchestrator.Start(ctx)
	return app, nil
}

// Close stops sessions first, then the workers, then the stores they write to.
func (a *App) Close() error {
	if a.cancel != nil {
		a.cancel()
	}
	if a.socket != nil && !a.socket.Wait(a.config.ShutdownTimeout) {
		a.log.Warn("Some sessions did not close in time")
	}
	if a.orchestrator != nil {
		a.orchestrator.Stop(a.config.ShutdownTimeout)
	}

	var errs []error
	if a.repository != nil {
		errs = append(errs, a.repository.Close())
	}
	if a.blugeWriter != nil {
		a.log.Info("Closing Bluge index...")
		errs = append(errs, a.blugeWriter.Close())
	}
	if a.db != nil {
		a.log.Info("Closing BadgerDB...")
		errs = append(errs, a.db.Close())
	}
	a.cancel, a.socket, a.orchestrator, a.repository, a.blugeWriter, a.db = nil, nil, nil, nil, nil, nil
	return stderrors.Join(errs...)
}

// loadModerator reads the censored dictionaries, if any are configured.
func loadModerator(dir string, charReplacement rune, log *slog.Logger) (*moderation.Moderator, error) {
	if dir == "" {
		log.Info("No censored words directory configured, moderation disabled")
		return moderation.NewModerator(nil, charReplacement, log)
	}
	data, err := moderation.NewCensoredLoader(os.DirFS(dir)).LoadAll(".")
	if err != nil {
		return nil, fmt.Errorf("censored words loading failed: %w", err)
	}
	log.Info(fmt.Sprintf("%d censored files loaded [%s]", len(data.Languages), strings.Join(data.Languages, ",")))
	log.Info(fmt.Sprintf("%d unique censored words loaded", len(data.Words)))
	return moderation.NewModerator(data.Words, charReplacement, log)
}
