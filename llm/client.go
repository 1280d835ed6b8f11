package llm

import (
	"context"
	"net/http"
	"time"

	apperrors "github.com/kbukum/voxkit/errors"
	"github.com/kbukum/voxkit/httpclient"
	"github.com/kbukum/voxkit/provider"
	"github.com/kbukum/voxkit/security"
)

const defaultTimeout = 120 * time.Second

// Config configures a chat client for one provider.
type Config struct {
	// ProviderID tags every error the client returns.
	ProviderID string
	// BaseURL is the API root, e.g. "https://api.openai.com/v1" or "http://localhost:11434".
	BaseURL string
	// Model is the default model.
	Model string
	// Temperature is the default sampling temperature.
	Temperature float64
	// Timeout for one HTTP attempt. Defaults to 120s.
	Timeout time.Duration
	// Auth is nil for servers without authentication.
	Auth       *httpclient.AuthConfig
	Headers    map[string]string
	Resilience provider.ResilienceConfig
	TLS        *security.TLSConfig
}

// Client sends chat completions through a Dialect.
type Client struct {
	http    *httpclient.Client
	dialect Dialect
	cfg     Config
}

// New creates a client for the given dialect.
func New(d Dialect, cfg Config) (*Client, error) {
	if d == nil {
		return nil, apperrors.ConfigMissing("dialect").WithProvider(cfg.ProviderID)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	hc, err := httpclient.New(httpclient.Config{
		ProviderID: cfg.ProviderID,
		BaseURL:    cfg.BaseURL,
		Timeout:    cfg.Timeout,
		Auth:       cfg.Auth,
		Headers:    cfg.Headers,
		Resilience: cfg.Resilience,
		TLS:        cfg.TLS,
	})
	if err != nil {
		return nil, err
	}
	return &Client{http: hc, dialect: d, cfg: cfg}, nil
}

// Dialect returns the dialect used by this client.
func (c *Client) Dialect() Dialect { return c.dialect }

// Model returns the default model.
func (c *Client) Model() string { return c.cfg.Model }

// Execute sends a completion request and returns the full response.
func (c *Client) Execute(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if req.Model == "" {
		req.Model = c.cfg.Model
	}
	if req.Temperature == 0 {
		req.Temperature = c.cfg.Temperature
	}
	resp, err := c.http.Do(ctx, httpclient.Request{
		Method: http.MethodPost,
		Path:   c.dialect.ChatPath(),
		Body:   c.dialect.BuildRequest(req),
	})
	if err != nil {
		return nil, err
	}
	out, err := c.dialect.ParseResponse(resp.Body)
	if err != nil {
		return nil, apperrors.ProcessingFailed(c.cfg.ProviderID, err)
	}
	if out.Model == "" {
		out.Model = req.Model
	}
	return out, nil
}

// Models lists the models the server reports.
func (c *Client) Models(ctx context.Context) ([]string, error) {
	resp, err := c.http.Do(ctx, httpclient.Request{Method: http.MethodGet, Path: c.dialect.ModelsPath()})
	if err != nil {
		return nil, err
	}
	models, err := c.dialect.ParseModels(resp.Body)
	if err != nil {
		return nil, apperrors.ProcessingFailed(c.cfg.ProviderID, err)
	}
	return models, nil
}
