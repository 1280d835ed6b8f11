// Package bootstrap runs the lifecycle of a voxkit process.
//
// An App owns the typed config, the logger and a component registry. Run
// starts every component, runs the configure callbacks and hooks, prints a
// startup summary and blocks until SIGINT, SIGTERM or context cancellation,
// then shuts down in reverse order within the graceful timeout. RunTask does
// the same around a finite task, for one-shot CLI modes.
//
//	app, err := bootstrap.NewApp(&cfg)
//	app.RegisterComponent(server.NewComponent(srv))
//	app.OnStop(func(context.Context) error { hub.Close(); return nil })
//	err = app.Run(ctx)
package bootstrap
