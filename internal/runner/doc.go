/*
Package runner executes sync and action scripts.

# Overview

A script is TypeScript or JavaScript source whose default export is an
async function taking the host API:

	export default async function (nango) {
		const res = await nango.get({ endpoint: "/issues" });
		return res.data;
	}

Compile turns the source into a reusable Script: esbuild lowers it to a
CommonJS module and goja compiles the result. Engine.Execute then runs the
entry point in a fresh goja runtime driven by an event loop that settles host
promises and fires timers, races it against the invocation deadline and
returns a Result. No error ever escapes Execute; every failure is normalized
into Result.Error.

# Usage

	engine := runner.New(
		runner.WithTimeout(time.Minute),
		runner.WithLogger(logger),
	)
	result := engine.Run(ctx, ic, "fetch-issues", source)
*/
package runner
