// Package bootstrap runs a finite task inside a uniform infrastructure
// lifecycle.
//
// An App validates the typed config, initializes logging, starts the
// registered components in order, runs configure callbacks and hooks,
// executes the task and stops the components in reverse order. SIGINT and
// SIGTERM cancel the task's context so a walk ends cleanly.
//
//	app, err := bootstrap.NewApp(&cfg)
//	if err != nil {
//	    return err
//	}
//	_ = app.RegisterComponent(storage.NewComponent(cfg.Export, app.Logger))
//	return app.RunTask(ctx, run)
package bootstrap
