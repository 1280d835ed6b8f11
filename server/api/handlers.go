package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/voxkit/config"
	apperrors "github.com/kbukum/voxkit/errors"
	"github.com/kbukum/voxkit/logger"
	"github.com/kbukum/voxkit/pipeline"
	"github.com/kbukum/voxkit/provider"
	"github.com/kbukum/voxkit/server"
	"github.com/kbukum/voxkit/summarization"
	"github.com/kbukum/voxkit/transcription"
	"github.com/kbukum/voxkit/validation"
)

// ProviderView is a registered provider with the audio formats it accepts.
type ProviderView struct {
	provider.Info
	Formats []string `json:"formats,omitempty"`
}

func (a *API) listProviders(c *gin.Context) {
	infos := a.deps.Registry.Describe()
	views := make([]ProviderView, 0, len(infos))
	for _, info := range infos {
		v := ProviderView{Info: info}
		if a.deps.Audio != nil && info.Kind == provider.KindTranscriber {
			v.Formats = a.deps.Audio.AcceptedFormats(info.ID)
		}
		views = append(views, v)
	}
	server.RespondOK(c, views)
}

func (a *API) providerHealth(c *gin.Context) {
	h, err := a.deps.Orchestrator.CheckHealth(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	server.RespondOK(c, h)
}

func (a *API) transcribe(c *gin.Context) {
	in, err := readUpload(c, "file")
	if err != nil {
		respondError(c, err)
		return
	}
	id := c.PostForm("provider")
	if id == "" {
		id = a.selection().Transcription
	}
	if id == "" {
		respondError(c, apperrors.ConfigMissing("selection.transcription"))
		return
	}
	opts := &transcription.Options{
		Language: c.PostForm("language"),
		Model:    c.PostForm("model"),
		Prompt:   c.PostForm("prompt"),
	}
	res, err := a.deps.Orchestrator.Transcribe(c.Request.Context(), id, in, opts)
	if err != nil {
		respondError(c, err)
		return
	}
	server.RespondOK(c, res)
}

// SummarizeRequest is the body of POST /v1/summarize.
type SummarizeRequest struct {
	Provider string                 `json:"provider"`
	Text     string                 `json:"text" validate:"required"`
	Options  *summarization.Options `json:"options"`
}

func (a *API) summarize(c *gin.Context) {
	var req SummarizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if tooLarge(err) {
			respondError(c, apperrors.New(apperrors.ErrCodeFileTooLarge, "request body exceeds the size limit"))
			return
		}
		respondError(c, apperrors.ConfigInvalid("body", err.Error()))
		return
	}
	if err := validation.Validate(&req); err != nil {
		respondError(c, err)
		return
	}
	id := req.Provider
	if id == "" {
		id = a.selection().Summarization
	}
	if id == "" {
		respondError(c, apperrors.ConfigMissing("selection.summarization"))
		return
	}
	res, err := a.deps.Orchestrator.Summarize(c.Request.Context(), id, req.Text, req.Options)
	if err != nil {
		respondError(c, err)
		return
	}
	server.RespondOK(c, res)
}

// FallbackView reports one provider switch made during a pipeline run.
type FallbackView struct {
	Stage  string `json:"stage"`
	From   string `json:"from"`
	To     string `json:"to"`
	Reason string `json:"reason,omitempty"`
}

// PipelineResponse is returned by POST /v1/pipeline. A failed run keeps
// the partial result next to the error.
type PipelineResponse struct {
	Data      *pipeline.RunResult  `json:"data,omitempty"`
	Fallbacks []FallbackView       `json:"fallbacks,omitempty"`
	Error     *apperrors.ErrorBody `json:"error,omitempty"`
}

func (a *API) pipeline(c *gin.Context) {
	in, err := readUpload(c, "file")
	if err != nil {
		respondError(c, err)
		return
	}
	sel := a.selection()

	rc := pipeline.RunConfig{
		Audio:                 in,
		RecordingProvider:     c.DefaultPostForm("recording_provider", sel.Recording),
		TranscriptionProvider: c.DefaultPostForm("transcription_provider", sel.Transcription),
		SummarizationProvider: c.DefaultPostForm("summarization_provider", sel.Summarization),
		TranscriptionOptions:  &transcription.Options{Language: c.PostForm("language")},
	}
	summary := summarization.SummaryPreset()
	if style := c.PostForm("style"); style != "" {
		summary.Style = summarization.Style(style)
	}
	summary.Language = c.PostForm("summary_language")
	rc.SummaryOptions = &summary
	if rc.Topic, err = formBool(c, "topic"); err != nil {
		respondError(c, err)
		return
	}
	if rc.SkipProbe, err = formBool(c, "skip_probe"); err != nil {
		respondError(c, err)
		return
	}

	var fallbacks []FallbackView
	rc.OnFallback = func(ev pipeline.FallbackEvent) {
		fv := FallbackView{Stage: ev.Stage, From: ev.From, To: ev.To}
		if ev.Reason != nil {
			fv.Reason = ev.Reason.Error()
		}
		fallbacks = append(fallbacks, fv)
	}

	res, err := a.deps.Orchestrator.Run(c.Request.Context(), rc)
	if err == nil {
		c.JSON(http.StatusOK, PipelineResponse{Data: res, Fallbacks: fallbacks})
		return
	}

	appErr := apperrors.From(err, "")
	_ = c.Error(appErr)
	body := appErr.ToResponse().Error
	c.JSON(apperrors.HTTPStatusFor(appErr.Code), PipelineResponse{Data: res, Fallbacks: fallbacks, Error: &body})
}

func formBool(c *gin.Context, key string) (bool, error) {
	v := c.PostForm(key)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, apperrors.ConfigInvalid(key, "expected a boolean, got "+strconv.Quote(v))
	}
	return b, nil
}

func (a *API) currentSession(c *gin.Context) {
	s := a.deps.Orchestrator.CurrentSession()
	if s == nil {
		c.Status(http.StatusNoContent)
		return
	}
	server.RespondOK(c, s)
}

func (a *API) stream(c *gin.Context) {
	if a.deps.Hub == nil {
		respondError(c, apperrors.ConfigMissing("server.session_stream"))
		return
	}
	a.deps.Hub.Serve(c)
}

func (a *API) events(c *gin.Context) {
	if a.deps.Events == nil {
		respondError(c, apperrors.ConfigMissing("server.session_events"))
		return
	}
	a.deps.Events.ServeHTTP(c.Writer, c.Request)
}

func (a *API) selection() config.Selection {
	if a.deps.Selection == nil {
		return config.Selection{}
	}
	return a.deps.Selection.Get()
}

func (a *API) getSelection(c *gin.Context) {
	server.RespondOK(c, a.selection())
}

func (a *API) putSelection(c *gin.Context) {
	if a.deps.Selection == nil {
		respondError(c, apperrors.ConfigMissing("selection.file"))
		return
	}
	var sel config.Selection
	if err := c.ShouldBindJSON(&sel); err != nil {
		respondError(c, apperrors.ConfigInvalid("body", err.Error()))
		return
	}

	v := validation.New()
	a.checkKind(v, "transcription", sel.Transcription, provider.KindTranscriber)
	a.checkKind(v, "summarization", sel.Summarization, provider.KindSummarizer)
	if err := v.Validate(); err != nil {
		respondError(c, err)
		return
	}
	if err := a.deps.Selection.Set(sel); err != nil {
		respondError(c, err)
		return
	}
	a.log.Info("provider selection changed", logger.Fields(
		"transcription", sel.Transcription, "summarization", sel.Summarization))
	server.RespondOK(c, a.deps.Selection.Get())
}

// checkKind requires id, when set, to name a provider registered as kind.
func (a *API) checkKind(v *validation.Validator, field, id string, kind provider.Kind) {
	if id == "" {
		return
	}
	_, got, ok := a.deps.Registry.Lookup(id)
	switch {
	case !ok:
		v.AddError(field, "unknown provider "+strconv.Quote(id))
	case got != kind:
		v.AddError(field, strconv.Quote(id)+" is a "+string(got)+", not a "+string(kind))
	}
}

func (a *API) cleanup(c *gin.Context) {
	if a.deps.Audio == nil {
		respondError(c, apperrors.ConfigMissing("audio"))
		return
	}
	olderThan, err := parseDuration(c, "older_than", a.deps.Audio.Config().CleanupMaxAge)
	if err != nil {
		respondError(c, err)
		return
	}
	report, err := a.deps.Audio.Cleanup(c.Request.Context(), olderThan)
	if err != nil {
		respondError(c, err)
		return
	}
	server.RespondOK(c, report)
}
