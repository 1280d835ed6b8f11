// Package httpclient is the HTTP transport shared by network providers
// (OpenAI-compatible APIs, the faster-whisper sidecar, Ollama).
//
// Responses are classified into the voxkit error taxonomy: 401/403 become
// AUTH_INVALID, 429 RATE_LIMITED (or QUOTA_EXCEEDED), 5xx
// PROVIDER_UNAVAILABLE, dial failures CONNECTION_FAILED and deadlines
// CONNECTION_TIMEOUT.
//
//	client, err := httpclient.New(httpclient.Config{
//	    ProviderID: "openai-whisper",
//	    BaseURL:    "https://api.openai.com/v1",
//	    Auth:       httpclient.BearerAuth(key),
//	})
//	models, err := httpclient.DoJSON[modelList](ctx, client, httpclient.Request{Method: http.MethodGet, Path: "/models"})
package httpclient
