// Package version reports the build identity of voxd.
//
//	go build -ldflags "-X github.com/kbukum/voxkit/version.Version=1.0.0" ./cmd/voxd
package version
