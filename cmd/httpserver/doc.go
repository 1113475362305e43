// Package main (cmd/httpserver) implements the provisioning service daemon.
//
// The daemon exposes the operator API over HTTP: triggering provisioning
// runs, reporting run status, and resetting the local device identity.
// Runs execute in the background and are single-flight; the API rejects a
// new trigger while one is in progress.
//
// Configuration is split between the YAML file (mailbox credentials,
// service endpoints, account domains, document paths) and command-line
// flags (listen addresses, logging, performance tuning).
//
// The server implements graceful shutdown on receiving termination
// signals (SIGINT/SIGTERM) and supports health checks, metrics
// collection, and optional profiling endpoints.
//
// Example usage:
//
//	reseat-server --config=/etc/reseat/config.yaml \
//	    --listen-addr=0.0.0.0:8080 \
//	    --metrics-addr=0.0.0.0:8090 \
//	    --log-json
package main
