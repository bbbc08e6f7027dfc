package normalize

import (
	"errors"
	"fmt"

	"github.com/GriffinCanCode/syncrunner/internal/payload"
)

// Normalizer classifies outcomes and sanitizes their payloads.
type Normalizer struct {
	redactor *payload.Redactor
	bounder  *payload.Bounder
}

// New creates a normalizer. Nil arguments select the package defaults.
func New(redactor *payload.Redactor, bounder *payload.Bounder) *Normalizer {
	if redactor == nil {
		redactor = payload.NewRedactor()
	}
	if bounder == nil {
		bounder = payload.NewBounder(payload.DefaultMaxFieldBytes)
	}
	return &Normalizer{redactor: redactor, bounder: bounder}
}

// Classify returns the error envelope for o, or nil when the script returned.
func (n *Normalizer) Classify(o Outcome) *ErrorEnvelope {
	switch t := o.(type) {
	case Returned:
		return nil
	case TimedOut:
		return n.envelope(KindScriptInternal, payload.MapOf(
			"message", fmt.Sprintf("The script exceeded the maximum execution time of %s", t.After),
			"name", "Timeout",
		))
	case Thrown:
		kind, p := classifyThrown(t.Value)
		return n.envelope(kind, p)
	default:
		return n.envelope(KindScriptInternal, payload.MapOf("name", "Error"))
	}
}

// Sanitize redacts and then bounds p.
func (n *Normalizer) Sanitize(p any) any {
	return n.bounder.Bound(n.redactor.Redact(p))
}

func (n *Normalizer) envelope(kind ErrorKind, p *payload.Map) *ErrorEnvelope {
	sanitized, ok := n.Sanitize(p).(*payload.Map)
	if !ok {
		sanitized = payload.NewMap()
	}
	return &ErrorEnvelope{Type: kind, Status: Status, Payload: sanitized}
}

func classifyThrown(v any) (ErrorKind, *payload.Map) {
	if err, ok := v.(error); ok && err != nil {
		var business BusinessError
		if errors.As(err, &business) {
			return KindActionRuntime, orEmpty(business.ActionPayload())
		}
		var transport TransportError
		if errors.As(err, &transport) {
			return KindScriptHTTP, orEmpty(transport.FailurePayload())
		}
		name := "Error"
		var named NamedError
		if errors.As(err, &named) {
			name = named.ErrorName()
		}
		msg := err.Error()
		var script *ScriptError
		if errors.As(err, &script) {
			msg = script.Message
		}
		return KindScriptInternal, payload.MapOf("message", msg, "name", name)
	}

	if m, ok := payload.FromGo(v).(*payload.Map); ok {
		if raw, ok := m.Get("message"); ok {
			if msg, ok := raw.(string); ok {
				name := "Error"
				if n, ok := m.Get("name"); ok {
					if s, ok := n.(string); ok && s != "" {
						name = s
					}
				}
				return KindScriptInternal, payload.MapOf("message", msg, "name", name)
			}
		}
	}

	return KindScriptInternal, payload.MapOf("name", "Error")
}

func orEmpty(m *payload.Map) *payload.Map {
	if m == nil {
		return payload.NewMap()
	}
	return m
}
