package nango

import (
	"fmt"

	"github.com/GriffinCanCode/syncrunner/internal/payload"
)

// ActionErrorName is the name of errors built by the ActionError constructor.
const ActionErrorName = "ActionError"

// ActionError is a failure a script raises on purpose.
type ActionError struct {
	payload *payload.Map
}

// NewActionError builds the effective payload of a business failure: a
// mapping is used as is, any other value is placed under "message", and no
// value gives an empty mapping.
func NewActionError(v any) *ActionError {
	switch t := payload.FromGo(v).(type) {
	case *payload.Map:
		return &ActionError{payload: t}
	case nil:
		return &ActionError{payload: payload.NewMap()}
	default:
		return &ActionError{payload: payload.MapOf("message", t)}
	}
}

func (e *ActionError) Error() string {
	if msg, ok := e.payload.Get("message"); ok {
		if s, ok := msg.(string); ok {
			return s
		}
	}
	return ActionErrorName
}

// ErrorName returns "ActionError".
func (e *ActionError) ErrorName() string {
	return ActionErrorName
}

// ActionPayload returns the effective payload.
func (e *ActionError) ActionPayload() *payload.Map {
	return e.payload
}

// Message renders the payload's message for the JavaScript error object.
func (e *ActionError) Message() string {
	msg, ok := e.payload.Get("message")
	if !ok {
		return ""
	}
	if s, ok := msg.(string); ok {
		return s
	}
	b, err := payload.Marshal(msg)
	if err != nil {
		return fmt.Sprint(msg)
	}
	return string(b)
}
