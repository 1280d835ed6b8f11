package main

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/voxkit/audio"
	"github.com/kbukum/voxkit/auth"
	"github.com/kbukum/voxkit/bootstrap"
	"github.com/kbukum/voxkit/component"
	"github.com/kbukum/voxkit/config"
	"github.com/kbukum/voxkit/logger"
	"github.com/kbukum/voxkit/metrics"
	"github.com/kbukum/voxkit/observability"
	"github.com/kbukum/voxkit/pipeline"
	"github.com/kbukum/voxkit/provider"
	"github.com/kbukum/voxkit/registry"
	"github.com/kbukum/voxkit/secrets"
	"github.com/kbukum/voxkit/server"
	"github.com/kbukum/voxkit/server/api"
	"github.com/kbukum/voxkit/server/endpoint"
	"github.com/kbukum/voxkit/server/middleware"
	"github.com/kbukum/voxkit/sse"
	"github.com/kbukum/voxkit/summarization"
	summaryollama "github.com/kbukum/voxkit/summarization/ollama"
	summaryopenai "github.com/kbukum/voxkit/summarization/openai"
	"github.com/kbukum/voxkit/summarization/script"
	"github.com/kbukum/voxkit/telemetry"
	"github.com/kbukum/voxkit/transcription"
	whisperopenai "github.com/kbukum/voxkit/transcription/openai"
	"github.com/kbukum/voxkit/transcription/whisper"
	"github.com/kbukum/voxkit/transcription/whispercpp"
	"github.com/kbukum/voxkit/util"
)

// selectionDebounce collapses the burst of events an editor save produces.
const selectionDebounce = 250 * time.Millisecond

// core is everything both the server and the one-shot mode need.
type core struct {
	audio        *audio.Service
	registry     *registry.Registry
	tracker      *telemetry.Tracker
	orchestrator *pipeline.Orchestrator
	selection    *config.SelectionStore
}

// transcriberBackend ties a provider type to its constructor and format table row.
type transcriberBackend struct {
	factory func(transcription.Normalizer) provider.Factory[transcription.Transcriber]
	formats func() audio.FormatSpec
}

var transcriberBackends = map[string]transcriberBackend{
	"whispercpp": {whispercpp.Factory, whispercpp.Formats},
	"whisper":    {whisper.Factory, whisper.Formats},
	"openai":     {whisperopenai.Factory, whisperopenai.Formats},
}

var summarizerBackends = map[string]func() provider.Factory[summarization.Summarizer]{
	"openai": summaryopenai.Factory,
	"ollama": summaryollama.Factory,
	"script": script.Factory,
}

func buildCore(ctx context.Context, app *bootstrap.App[*Config], cipher secrets.Cipher) (*core, error) {
	cfg := app.Cfg
	log := app.Logger.WithComponent("wire")

	if err := secrets.Decrypt(cfg.Providers.Transcribers, cipher, cfg.Secrets.KeyEnv); err != nil {
		return nil, err
	}
	if err := secrets.Decrypt(cfg.Providers.Summarizers, cipher, cfg.Secrets.KeyEnv); err != nil {
		return nil, err
	}

	otelMetrics, shutdown, err := observability.Setup(ctx, &cfg.Telemetry)
	if err != nil {
		return nil, err
	}
	app.OnStop(bootstrap.Hook(shutdown))

	svc, err := audio.NewService(cfg.Audio)
	if err != nil {
		return nil, err
	}

	factories := registry.Factories{
		Transcribers: make(map[string]provider.Factory[transcription.Transcriber]),
		Summarizers:  make(map[string]provider.Factory[summarization.Summarizer]),
	}
	for typ, b := range transcriberBackends {
		factories.Transcribers[typ] = b.factory(svc)
	}
	for typ, f := range summarizerBackends {
		factories.Summarizers[typ] = f()
	}
	reg, err := registry.Build(cfg.Providers, factories)
	if err != nil {
		return nil, err
	}
	for _, spec := range cfg.Providers.Transcribers {
		if _, overridden := cfg.Audio.Formats[spec.ID]; overridden {
			continue
		}
		svc.Formats().SetProvider(spec.ID, transcriberBackends[spec.Type].formats())
	}

	selection, err := config.NewSelectionStore(cfg.Selection.File, cfg.Selection.Selection)
	if err != nil {
		return nil, err
	}

	tracker := telemetry.NewTracker(
		telemetry.NewLogSink(logger.WithComponent("telemetry")),
		telemetry.NewOTelSink(otelMetrics),
	)
	orch := pipeline.New(reg, tracker, cfg.Pipeline, pipeline.WithMetrics(otelMetrics))

	sweeper := component.NewLoop("temp-sweeper", component.Description{
		Name:    "Temp Sweeper",
		Type:    "worker",
		Details: fmt.Sprintf("%s every %s, max age %s", svc.Config().TempDir, svc.Config().CleanupInterval, svc.Config().CleanupMaxAge),
	}, func(ctx context.Context) error {
		svc.RunCleanup(ctx)
		return nil
	})
	if err := app.RegisterComponent(sweeper); err != nil {
		return nil, err
	}

	if file := selection.Path(); file != "" {
		if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
			return nil, err
		}
		watcher := component.NewLoop("selection-watcher", component.Description{
			Name:    "Selection Watcher",
			Type:    "watcher",
			Details: file,
		}, func(ctx context.Context) error {
			return config.Watch(ctx, file, selectionDebounce, func() {
				if err := selection.Reload(); err != nil {
					log.Warn("selection reload failed", logger.Fields(logger.FieldPath, file, logger.FieldError, err.Error()))
					return
				}
				sel := selection.Get()
				log.Info("selection reloaded", logger.Fields("transcription", sel.Transcription, "summarization", sel.Summarization))
			})
		})
		if err := app.RegisterComponent(watcher); err != nil {
			return nil, err
		}
	}

	for _, info := range reg.Describe() {
		isDefault := info.ID == cfg.Pipeline.DefaultTranscriber || info.ID == cfg.Pipeline.DefaultSummarizer
		detail := ""
		if info.Kind == provider.KindTranscriber {
			detail = fmt.Sprint(svc.AcceptedFormats(info.ID))
		}
		app.Summary.TrackProvider(info, isDefault, detail)
	}
	sel := selection.Get()
	app.Summary.TrackSetting("selection.transcription", sel.Transcription)
	app.Summary.TrackSetting("selection.summarization", sel.Summarization)
	app.Summary.TrackSize("audio.max_bytes", svc.Config().MaxBytes)

	return &core{audio: svc, registry: reg, tracker: tracker, orchestrator: orch, selection: selection}, nil
}

func buildServer(app *bootstrap.App[*Config], c *core, cipher secrets.Cipher) error {
	cfg := app.Cfg

	hub := api.NewHub(cfg.Server.CORS.AllowedOrigins, c.orchestrator.CurrentSession)
	c.tracker.AddSink(hub)
	events := sse.NewBroker(c.orchestrator.CurrentSession)
	c.tracker.AddSink(events)
	app.OnStop(func(context.Context) error {
		hub.Close()
		events.Close()
		return nil
	})

	prom := metrics.New(metrics.Gauges{
		Providers:     c.registry.Count,
		Subscribers:   func() int { return hub.Subscribers() + events.Clients() },
		SessionActive: func() bool { return c.orchestrator.CurrentSession() != nil },
	})
	c.tracker.AddSink(prom)

	srv := server.New(cfg.Server, app.Logger)
	extra := []gin.HandlerFunc{prom.Middleware()}
	if cfg.Auth.Enabled {
		secret, err := secrets.Reveal(cfg.Auth.Secret, cipher, cfg.Secrets.KeyEnv, "auth.secret")
		if err != nil {
			return err
		}
		authCfg := cfg.Auth
		authCfg.Secret = secret
		tokens, err := auth.NewService(authCfg)
		if err != nil {
			return err
		}
		extra = append(extra, middleware.Auth(tokens, cfg.Auth.SkipPaths))
		app.Summary.TrackSecret("auth.secret", secret)
	}
	if cfg.Server.RateLimit > 0 {
		extra = append(extra, middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerMinute: cfg.Server.RateLimit,
			KeyFunc:           middleware.SubjectKey,
		}))
	}
	srv.ApplyMiddleware(extra...)

	a := api.New(api.Deps{
		Service:      cfg.Name,
		Version:      cfg.Version,
		Orchestrator: c.orchestrator,
		Registry:     c.registry,
		Audio:        c.audio,
		Selection:    c.selection,
		Hub:          hub,
		Events:       events,
	})

	engine := srv.Engine()
	engine.GET("/health", endpoint.Health(a.CheckHealth))
	engine.GET("/alive", endpoint.Liveness(cfg.Name))
	engine.GET("/ready", endpoint.Readiness(cfg.Name, a.Ready))
	engine.GET("/info", endpoint.Info(cfg.Name, time.Now()))
	engine.GET("/metrics", gin.WrapH(prom.Handler()))
	a.Register(engine)

	for _, r := range engine.Routes() {
		app.Summary.TrackRoute(r.Method, r.Path, path.Base(r.Handler))
	}
	if n, err := util.ParseSize(cfg.Server.MaxBodySize); err == nil {
		app.Summary.TrackSize("server.max_body_size", n)
	}
	if cfg.Server.TLS.IsEnabled() {
		app.Summary.TrackSetting("server.tls", cfg.Server.TLS.CertFile)
	}
	return app.RegisterComponent(server.NewComponent(srv))
}
