// Package nango implements the host API handed to scripts as their only
// argument.
//
// Surface is the Go capability struct: it is built per invocation, bound to
// that invocation's context and credentials, and performs outbound calls
// through a shared outbound.Client. Bind exposes a Surface to a goja runtime
// as the JavaScript "nango" object, together with the ActionError
// constructor scripts throw to report business failures.
package nango
