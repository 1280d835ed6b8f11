package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/voxkit/audio"
	"github.com/kbukum/voxkit/config"
	apperrors "github.com/kbukum/voxkit/errors"
	"github.com/kbukum/voxkit/logger"
	"github.com/kbukum/voxkit/observability"
	"github.com/kbukum/voxkit/pipeline"
	"github.com/kbukum/voxkit/provider"
	"github.com/kbukum/voxkit/registry"
	"github.com/kbukum/voxkit/server"
	"github.com/kbukum/voxkit/server/middleware"
	"github.com/kbukum/voxkit/sse"
	"github.com/kbukum/voxkit/transcription"
)

// Scopes checked on the /v1 routes when tokens carry a scope list.
const (
	ScopeRead       = "read"
	ScopeTranscribe = "transcribe"
	ScopeSummarize  = "summarize"
	ScopePipeline   = "pipeline"
	ScopeAdmin      = "admin"
)

// Deps are the services behind the API.
type Deps struct {
	Service      string
	Version      string
	Orchestrator *pipeline.Orchestrator
	Registry     *registry.Registry
	Audio        *audio.Service
	Selection    *config.SelectionStore
	Hub          *Hub
	Events       *sse.Broker
}

// API serves the /v1 routes.
type API struct {
	deps Deps
	log  *logger.Logger
}

// New creates the API. Audio, Selection, Hub and Events are optional; their
// routes answer CONFIG_MISSING when absent.
func New(deps Deps) *API {
	return &API{deps: deps, log: logger.WithComponent("api")}
}

// Register mounts the /v1 routes on r.
func (a *API) Register(r gin.IRouter) {
	v1 := r.Group("/v1")

	v1.GET("/providers", middleware.RequireScope(ScopeRead), a.listProviders)
	v1.GET("/providers/:id/health", middleware.RequireScope(ScopeRead), a.providerHealth)

	v1.POST("/transcribe", middleware.RequireScope(ScopeTranscribe), a.transcribe)
	v1.POST("/summarize", middleware.RequireScope(ScopeSummarize), a.summarize)
	v1.POST("/pipeline", middleware.RequireScope(ScopePipeline), a.pipeline)

	v1.GET("/sessions/current", middleware.RequireScope(ScopeRead), a.currentSession)
	v1.GET("/sessions/stream", middleware.RequireScope(ScopeRead), a.stream)
	v1.GET("/sessions/events", middleware.RequireScope(ScopeRead), a.events)

	v1.GET("/selection", middleware.RequireScope(ScopeRead), a.getSelection)
	v1.PUT("/selection", middleware.RequireScope(ScopeAdmin), a.putSelection)

	v1.POST("/audio/cleanup", middleware.RequireScope(ScopeAdmin), a.cleanup)
}

// CheckHealth probes every provider concurrently. Each probe is bounded by
// the orchestrator's probe timeout.
func (a *API) CheckHealth(ctx context.Context) *observability.ServiceHealth {
	infos := a.deps.Registry.Describe()
	results := make([]observability.Health, len(infos))

	var wg sync.WaitGroup
	for i, info := range infos {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h, err := a.deps.Orchestrator.CheckHealth(ctx, info.ID)
			if err != nil {
				h = provider.UnhealthyFrom(err)
			}
			results[i] = observability.ProviderHealth(info, h)
		}()
	}
	wg.Wait()

	sh := observability.NewServiceHealth(a.deps.Service, a.deps.Version)
	for _, r := range results {
		sh.AddComponent(r)
	}
	return sh
}

// Ready reports whether both capabilities have at least one provider.
func (a *API) Ready(context.Context) error {
	if len(a.deps.Registry.ListAll(provider.KindTranscriber)) == 0 {
		return errors.New("no transcriber registered")
	}
	if len(a.deps.Registry.ListAll(provider.KindSummarizer)) == 0 {
		return errors.New("no summarizer registered")
	}
	return nil
}

// readUpload reads the multipart file field into an audio input. The
// client's content type wins over the file extension.
func readUpload(c *gin.Context, field string) (transcription.AudioInput, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		if tooLarge(err) {
			return transcription.AudioInput{}, apperrors.New(apperrors.ErrCodeFileTooLarge, "upload exceeds the size limit")
		}
		return transcription.AudioInput{}, apperrors.FileInvalid(fmt.Sprintf("multipart field %q is required", field))
	}
	f, err := fh.Open()
	if err != nil {
		return transcription.AudioInput{}, apperrors.FileInvalid(err.Error()).WithCause(err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return transcription.AudioInput{}, apperrors.FileInvalid(err.Error()).WithCause(err)
	}

	mimeType := fh.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		if format := audio.FormatForExtension(filepath.Ext(fh.Filename)); format != "" {
			mimeType = audio.MIMEForFormat(format)
		}
	}
	return transcription.FromBuffer(data, mimeType), nil
}

func tooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}

// parseDuration reads an optional duration query parameter.
func parseDuration(c *gin.Context, key string, def time.Duration) (time.Duration, error) {
	v := c.Query(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return 0, apperrors.ConfigInvalid(key, fmt.Sprintf("invalid duration %q", v))
	}
	return d, nil
}

func respondError(c *gin.Context, err error) {
	server.RespondWithError(c, err)
}
