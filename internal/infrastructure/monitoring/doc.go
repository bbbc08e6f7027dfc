/*
Package monitoring provides Prometheus metrics for the runner.

# Overview

Metrics cover script invocations (count by kind and result, duration,
in-flight gauge), outbound HTTP calls made on behalf of scripts, and the
HTTP surface.

Collectors are registered on an explicit prometheus.Registerer so several
engines can coexist in one process. A nil *Metrics is valid and records
nothing.

# Usage

	reg := prometheus.NewRegistry()
	metrics := monitoring.NewMetrics(reg)

	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	timer := monitoring.NewTimer(metrics, "action")
	// ... run the script ...
	timer.Stop("failure")
*/
package monitoring
