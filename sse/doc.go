// Package sse streams pipeline session events to HTTP clients as
// Server-Sent Events, for consumers that cannot open a WebSocket (curl,
// EventSource in a browser extension, shell scripts).
//
// A Broker is a telemetry.Sink. Register it on the tracker and mount it on
// a GET route:
//
//	events := sse.NewBroker(orch.CurrentSession)
//	tracker.AddSink(events)
//	router.GET("/v1/sessions/events", gin.WrapH(events))
//
// Each connection first receives a "connected" event, then the open session
// (if any) as "session_started", then every tracker event named by its type.
// Comment lines keep idle connections alive through proxies.
package sse
