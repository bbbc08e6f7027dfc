/*
Package server assembles the run surface: it builds the engine, its outbound
client and metrics from configuration and mounts the handlers on a gin router.

# Routes

	GET  /          service banner
	GET  /health    liveness and outbound breaker states
	POST /v1/run    execute one script
	GET  /metrics   Prometheus exposition of the server's own registry

# Usage

	srv, err := server.NewServer(cfg, logger, version)
	if err != nil {
		return err
	}
	go srv.Run()
	...
	srv.Shutdown(ctx)
*/
package server
