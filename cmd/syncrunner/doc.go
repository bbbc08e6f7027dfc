/*
Command syncrunner executes sync and action scripts.

	syncrunner run ./issues.ts --metadata ./connection.yaml
	syncrunner run ./create-issue.ts --connection-id c1 --provider-config-key github \
		--secret-key sk --action-name create-issue --input '{"title":"Bug"}'
	syncrunner serve
	syncrunner submit ./issues.ts --server http://localhost:8000 --metadata ./connection.yaml
	syncrunner version

run prints the invocation report as JSON and exits with status 1 when the
script failed. submit does the same through a running server. serve exposes the engine over HTTP; see package
internal/infrastructure/server. Both read their settings from the
environment (RUNNER_TIMEOUT, NANGO_API_URL, LOG_LEVEL, ...).
*/
package main
