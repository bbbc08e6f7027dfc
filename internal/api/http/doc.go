// Package http provides the HTTP handlers of the run surface.
//
// Endpoints:
//   - Health: / and /health
//   - Run: POST /v1/run executes one script and returns its report
//
// A run request carries the invocation metadata, including the connection
// secret, and the script source:
//
//	{
//	  "metadata": {"connection_id": "c1", "provider_config_key": "github",
//	               "secret_key": "...", "sync_name": "issues"},
//	  "name": "issues",
//	  "script": "export default async function (nango) { ... }"
//	}
//
// Failed scripts are not HTTP errors: the response is 200 with
// result.success set to false. Only malformed requests get a 400.
//
// Example Usage:
//
//	handlers := http.NewHandlers(engine, client, "1.0.0")
//	router.POST("/v1/run", handlers.Run)
package http
