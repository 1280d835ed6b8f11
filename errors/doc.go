// Package errors defines the closed error taxonomy shared by every voxkit
// component. Each code carries retry semantics, an HTTP status and a default
// remediation hint so callers can render failures without extra lookups.
package errors
