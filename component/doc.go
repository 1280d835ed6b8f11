// Package component manages the lifecycle of the long-lived parts of a
// voxkit process.
//
// Components start in registration order and stop in reverse. Loop adapts
// a blocking function, such as the temp-file sweeper or the selection
// watcher, into a Component.
package component
