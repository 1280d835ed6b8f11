package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	apperrors "github.com/kbukum/voxkit/errors"
	"github.com/kbukum/voxkit/provider"
)

// Client is the HTTP client of one network provider. Every error it returns
// is an *errors.AppError tagged with the provider id.
type Client struct {
	httpClient *http.Client
	config     Config
	state      *provider.ResilienceState
}

// New creates a new HTTP client with the given configuration.
func New(cfg Config) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, apperrors.ConfigInvalid("base_url", err.Error()).WithProvider(cfg.ProviderID)
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	tlsCfg, err := cfg.TLS.ClientConfig()
	if err != nil {
		return nil, apperrors.From(err, cfg.ProviderID)
	}
	if tlsCfg != nil {
		transport.TLSClientConfig = tlsCfg
	}
	return &Client{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		config: cfg,
		state:  provider.BuildResilience(cfg.ProviderID, cfg.Resilience),
	}, nil
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// Do executes a request through the provider's resilience chain.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	auth := c.config.Auth
	if req.Auth != nil {
		auth = req.Auth
	}
	if auth.Missing() {
		return nil, apperrors.AuthMissing(c.config.ProviderID)
	}
	body, contentType, err := encodeBody(req.Body)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("encode body: %w", err)).WithProvider(c.config.ProviderID)
	}
	return provider.ExecuteWithResilience(ctx, c.state, func() (*Response, error) {
		return c.execute(ctx, req, auth, body, contentType)
	})
}

// DoJSON executes req and decodes a successful JSON response into T.
func DoJSON[T any](ctx context.Context, c *Client, req Request) (T, error) {
	var out T
	resp, err := c.Do(ctx, req)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return out, apperrors.ProcessingFailed(c.config.ProviderID, fmt.Errorf("decode response: %w", err))
	}
	return out, nil
}

func (c *Client) execute(ctx context.Context, req Request, auth *AuthConfig, body []byte, contentType string) (*Response, error) {
	id := c.config.ProviderID
	httpReq, err := c.buildRequest(ctx, req, auth, body, contentType)
	if err != nil {
		return nil, apperrors.ConfigInvalid("base_url", err.Error()).WithProvider(id)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, ClassifyTransport(ctx, id, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ClassifyTransport(ctx, id, fmt.Errorf("read response body: %w", err))
	}

	result := &Response{
		StatusCode: resp.StatusCode,
		Headers:    flattenHeaders(resp.Header),
		Body:       data,
	}
	if classErr := ClassifyStatus(id, resp.StatusCode, data); classErr != nil {
		return result, classErr
	}
	return result, nil
}

func (c *Client) buildRequest(ctx context.Context, req Request, auth *AuthConfig, body []byte, contentType string) (*http.Request, error) {
	url := req.Path
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = strings.TrimRight(c.config.BaseURL, "/") + "/" + strings.TrimLeft(req.Path, "/")
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, url, reader)
	if err != nil {
		return nil, err
	}

	if len(req.Query) > 0 {
		q := httpReq.URL.Query()
		for k, v := range req.Query {
			q.Set(k, v)
		}
		httpReq.URL.RawQuery = q.Encode()
	}
	for k, v := range c.config.Headers {
		httpReq.Header.Set(k, v)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if body != nil && httpReq.Header.Get("Content-Type") == "" && contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	auth.apply(httpReq)
	return httpReq, nil
}

// encodeBody buffers the body so that retries can resend it.
func encodeBody(body any) ([]byte, string, error) {
	switch v := body.(type) {
	case nil:
		return nil, "", nil
	case *MultipartBody:
		return v.encode()
	case []byte:
		return v, "", nil
	case string:
		return []byte(v), "text/plain", nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, "", err
		}
		return data, "application/json", nil
	}
}

func flattenHeaders(h http.Header) map[string]string {
	result := make(map[string]string, len(h))
	for k, v := range h {
		if len(v) > 0 {
			result[k] = v[0]
		}
	}
	return result
}
