/*
Package httpserver implements the operator-facing HTTP API of the
provisioning service.

It exposes endpoints to trigger a provisioning run, inspect its
progress, and reset the local device identity, plus the usual health
and diagnostics surface.

# Run Semantics

Provisioning runs are single-flight. A run holds the mailbox and the
device identity document exclusively, so a POST /api/provision while a
run is in progress returns 409 instead of queueing. The run itself is
detached from the triggering request: it continues after the client
disconnects and is bounded by the handler's run timeout.

Run results, including the extracted session token, are held in memory
only and reported by the status endpoint until the next run replaces
them.

# API Endpoints

  - POST /api/provision - Start a provisioning run in the background
  - GET /api/status - State, stage, and result of the most recent run
  - POST /api/reset-identity - Rewrite the device identity document
  - GET /livez - Liveness check
  - GET /readyz - Readiness check
  - GET /drain - Gracefully mark server as not ready
  - GET /undrain - Mark server as ready

# Usage Example

	handler := httpserver.NewHandler(runner, log)
	srv, err := httpserver.New(&httpserver.HTTPServerConfig{
		ListenAddr:  ":8080",
		MetricsAddr: ":9090",
		Log:         log,
	}, handler)
	if err != nil {
		log.Error("Failed to create server", "err", err)
		return
	}
	srv.RunInBackground()
	// ...
	srv.Shutdown()
*/
package httpserver
