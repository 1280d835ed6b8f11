// Package registry is the catalog of transcription and summarization
// providers.
//
// The kind of a provider is given at registration instead of being inferred,
// so a backend that implements both capabilities is still filed in exactly
// one partition. Registration normally happens once at startup through
// Build; steady-state calls only read.
package registry
