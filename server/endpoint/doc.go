// Package endpoint holds the operational handlers of voxd: aggregated
// provider health, liveness, readiness and build info.
package endpoint
