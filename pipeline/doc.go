// Package pipeline drives one record, transcribe and summarize operation
// across the registered providers.
//
// The Orchestrator resolves the selected providers, optionally probes their
// health, invokes them under a per-stage timeout and applies the fallback
// rule: a failed stage is retried once against the default provider of its
// kind unless the failure is a configuration error. Every stage is recorded
// in a telemetry session and traced with OpenTelemetry.
//
//	orch := pipeline.New(reg, tracker, cfg)
//	res, err := orch.Run(ctx, pipeline.RunConfig{
//	    Audio: transcription.FromBuffer(data, "audio/webm"),
//	    Topic: true,
//	})
package pipeline
