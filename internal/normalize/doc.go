// Package normalize turns the outcome of a script invocation into the
// error envelope reported to callers.
//
// Classification is an ordered chain; the first matching rule wins:
//  1. business failures raised by the script (BusinessError)
//  2. outbound HTTP failures (TransportError)
//  3. native errors carrying a message
//  4. anything else
//
// Every payload is redacted and then bounded before it leaves the package.
package normalize
