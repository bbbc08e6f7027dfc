package normalize

import (
	"time"

	"github.com/GriffinCanCode/syncrunner/internal/payload"
)

// ErrorKind categorizes a failed invocation.
type ErrorKind string

const (
	KindScriptInternal ErrorKind = "script_internal_error"
	KindActionRuntime  ErrorKind = "action_script_runtime_error"
	KindScriptHTTP     ErrorKind = "script_http_error"
)

// Status is reported for every error kind.
const Status = 500

// ErrorEnvelope is the error half of an invocation result.
type ErrorEnvelope struct {
	Type    ErrorKind    `json:"type"`
	Status  int          `json:"status"`
	Payload *payload.Map `json:"payload"`
}

// Outcome is the raw result of running a script. It is one of Returned,
// Thrown or TimedOut.
type Outcome interface {
	outcome()
}

// Returned carries the value produced by a script that completed.
type Returned struct {
	Value any
}

// Thrown carries whatever the script threw or rejected with.
type Thrown struct {
	Value any
}

// TimedOut reports that the deadline elapsed before the script finished.
type TimedOut struct {
	After time.Duration
}

func (Returned) outcome() {}
func (Thrown) outcome()   {}
func (TimedOut) outcome() {}

// BusinessError is implemented by failures a script raises deliberately to
// report a domain error to its caller.
type BusinessError interface {
	error
	ActionPayload() *payload.Map
}

// TransportError is implemented by failures of outbound HTTP calls.
type TransportError interface {
	error
	FailurePayload() *payload.Map
}

// NamedError is implemented by errors that carry a JavaScript error name.
type NamedError interface {
	error
	ErrorName() string
}

// ScriptError is a native error thrown inside the script runtime.
type ScriptError struct {
	Name    string
	Message string
	Stack   string
}

func (e *ScriptError) Error() string {
	if e.Message == "" {
		return e.ErrorName()
	}
	return e.ErrorName() + ": " + e.Message
}

// ErrorName returns the JavaScript error name, defaulting to "Error".
func (e *ScriptError) ErrorName() string {
	if e.Name == "" {
		return "Error"
	}
	return e.Name
}
