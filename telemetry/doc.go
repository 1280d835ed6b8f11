// Package telemetry tracks one end-to-end session as an ordered list of
// stages and fans the events out to sinks.
//
// Only one session is open per Tracker. Starting a new one closes the
// previous session as abandoned. Tracking never fails the caller: calls
// without an open session do nothing and sink errors are only logged.
package telemetry
