/*
Package tracing correlates the work done for one request: the HTTP request
that asked for an invocation, the invocation itself and the outbound calls
its script makes.

Trace context travels in X-Trace-ID and X-Span-ID headers. The HTTP
middleware continues an incoming trace or starts one, the engine opens a
span per invocation, and the outbound client forwards the headers so the
Nango proxy can join the trace. Finished spans are written to the log at
debug level by a background collector.

# Usage

	tracer := tracing.New("syncrunner", logger)
	defer tracer.Close()

	router.Use(tracing.HTTPMiddleware(tracer))

	span, ctx := tracer.StartSpan(ctx, "invocation")
	defer func() {
		span.Finish()
		tracer.Submit(span)
	}()
	span.SetTag("kind", "sync")
*/
package tracing
