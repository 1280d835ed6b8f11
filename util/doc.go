// Package util holds small helpers shared by voxkit packages: byte-size
// parsing for upload limits, secret masking for startup output and Coalesce.
package util
