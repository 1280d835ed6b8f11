// Package server runs the voxd HTTP API: a Gin engine mounted on a ServeMux
// and served over HTTP/1.1 and h2c, or over TLS when Config.TLS holds a key
// pair.
//
// ApplyMiddleware installs the standard chain from server/middleware
// (recovery, request id, CORS, body limit, request logging) ahead of any
// caller supplied handlers such as auth and rate limiting. Operational
// routes live in server/endpoint and the /v1 API in server/api.
//
// Handlers answer with DataResponse on success and errors.ErrorResponse on
// failure, the HTTP status taken from the error code.
package server
