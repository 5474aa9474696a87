package app

import (
	"context"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/samriddhi-1111/GangaGuards/internal/config"
	"github.com/samriddhi-1111/GangaGuards/internal/logger"
	"github.com/samriddhi-1111/GangaGuards/internal/metrics"
	"github.com/samriddhi-1111/GangaGuards/internal/routes"
	"github.com/samriddhi-1111/GangaGuards/internal/services"
	"github.com/samriddhi-1111/GangaGuards/internal/services/ai"
	"github.com/samriddhi-1111/GangaGuards/internal/services/camera"
	"github.com/samriddhi-1111/GangaGuards/internal/services/dispatch"
	"github.com/samriddhi-1111/GangaGuards/internal/services/websocket"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	config     *config.Config
	logger     *logger.Logger
	detector   *ai.DetectorService
	source     services.Source
	hubService *websocket.HubService
	metrics    *metrics.Metrics
	worker     *dispatch.Worker
	manager    *services.Manager
}

// NewApp builds the watcher: logger, detector, camera, dispatcher and session.
func NewApp(cfg *config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log, err := logger.NewLogger(os.Stdout, cfg.LogDirectory, cfg.LogLevel)
	if err != nil {
		return nil, errors.Wrap(err, "init logger")
	}

	detector := ai.NewDetectorService(cfg, log)
	source, err := camera.Open(cfg.CameraIndex, detector, camera.Options{
		ProcessEveryNth: cfg.ProcessingInterval,
		Annotate:        cfg.AnnotateDetections,
	}, log)
	if err != nil {
		detector.Close()
		log.Close()
		return nil, err
	}

	a := newApp(cfg, log, source, detector.Ready())
	a.detector = detector
	return a, nil
}

func newDispatchClient(cfg *config.Config, log *logger.Logger) *dispatch.Client {
	return dispatch.NewClient(dispatch.Options{
		Endpoint: cfg.Endpoint(),
		Timeout:  cfg.DispatchTimeout,
		Gzip:     cfg.DispatchGzip,
		Encoder:  dispatch.Encoder{Quality: cfg.JPEGQuality, MaxWidth: cfg.DispatchMaxWidth},
	}, log)
}

// newApp wires everything downstream of the detection source.
func newApp(cfg *config.Config, log *logger.Logger, source services.Source, detectorReady bool) *App {
	hub := websocket.NewHubService(log)
	m := metrics.New(hub.GetClientCount)

	client := newDispatchClient(cfg, log)

	a := &App{
		config:     cfg,
		logger:     log,
		source:     source,
		hubService: hub,
		metrics:    m,
	}

	var submitter services.Submitter
	if cfg.DispatchAsync {
		a.worker = dispatch.NewWorker(client, log)
		submitter = a.worker
	} else {
		submitter = dispatch.NewInline(client, log)
	}

	a.manager = services.NewManager(services.Options{
		RequiredDuration: cfg.RequiredDuration,
		Cooldown:         cfg.Cooldown,
		Location:         cfg.Location,
		DetectorReady:    detectorReady,
	}, submitter, m, hub, log)

	return a
}

// Run watches until ctx is cancelled or the camera fails, then releases
// everything. A camera failure is returned as a *services.SourceError.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer a.close()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.hubService.Run(ctx)
	}()
	if a.worker != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.worker.Run(ctx)
		}()
	}

	server := a.startStatusServer()

	a.logger.Info("🚀 GangaGuard watcher")
	a.logger.Info("📍 Incidents: %s", a.config.Endpoint())
	a.logger.Info("⏱️  Confirm after %s, cooldown %s", a.config.RequiredDuration, a.config.Cooldown)
	if a.config.Location != nil {
		a.logger.Info("🗺️  Location: %s", a.config.Location.Text)
	}

	err := a.manager.Run(ctx, a.source)
	cancel()

	if server != nil {
		shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := server.Shutdown(shutdownCtx); err != nil {
			a.logger.Warning("Status server shutdown: %v", err)
		}
		done()
	}
	wg.Wait()
	return err
}

func (a *App) startStatusServer() *http.Server {
	if a.config.StatusAddr == "" {
		return nil
	}
	server := &http.Server{
		Addr:              a.config.StatusAddr,
		Handler:           routes.SetupRoutes(a.manager, a.hubService, a.metrics, a.config, a.logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		a.logger.Info("📊 Status server on %s", a.config.StatusAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("Status server stopped: %v", err)
		}
	}()
	return server
}

func (a *App) close() {
	if err := a.source.Close(); err != nil {
		a.logger.Warning("Closing camera: %v", err)
	}
	if a.detector != nil {
		a.detector.Close()
	}
	a.logger.Info("🛑 Watcher stopped")
	a.logger.Close()
}

// Manager exposes the session.
func (a *App) Manager() *services.Manager {
	return a.manager
}
