// Archivus - Scheduled Backup Coordinator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivus

/*
Package supervisor provides process supervision for Archivus using suture v4.

The supervisor tree manages the two long-running parts of the daemon and
restarts them independently when they crash:

	RootSupervisor ("archivus")
	├── SchedulerSupervisor ("scheduler-layer")
	│   └── coordinator.Scheduler
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

The layering matters for one concrete failure mode: if the backup loop
panics, the HTTP layer keeps serving so /healthz can report the daemon
unhealthy instead of going dark. The scheduler implements suture.Service
directly (Serve plus String); the HTTP server is wrapped by
services.HTTPServerService to translate ListenAndServe into the
context-aware suture lifecycle.

Crashed services restart with exponential backoff. The failure threshold,
decay, and backoff come from TreeConfig; DefaultTreeConfig matches
suture's own defaults. Supervisor lifecycle events are logged through
sutureslog, bridged onto the global zerolog logger by
logging.NewSlogLogger.

Typical wiring:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddSchedulerService(scheduler)
	tree.AddAPIService(services.NewHTTPServerService(httpServer, 10*time.Second))

	errCh := tree.ServeBackground(ctx)
*/
package supervisor
