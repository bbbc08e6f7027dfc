package payload

import "strings"

// Marker replaces the value of every redacted field.
const Marker = "[Redacted]"

// DefaultRedactedKeys is the denylist used when none is configured.
var DefaultRedactedKeys = []string{"Authorization", "Proxy-Authorization"}

// Redactor replaces the values of denylisted keys, matched case-insensitively
// at any depth, with Marker.
type Redactor struct {
	keys map[string]struct{}
}

// NewRedactor creates a redactor for keys. With no keys it uses
// DefaultRedactedKeys.
func NewRedactor(keys ...string) *Redactor {
	if len(keys) == 0 {
		keys = DefaultRedactedKeys
	}
	r := &Redactor{keys: make(map[string]struct{}, len(keys))}
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		r.keys[strings.ToLower(k)] = struct{}{}
	}
	return r
}

// Matches reports whether key is on the denylist.
func (r *Redactor) Matches(key string) bool {
	_, ok := r.keys[strings.ToLower(key)]
	return ok
}

// Redact returns a copy of v with every denylisted field replaced.
// The structure and key order of v are preserved.
func (r *Redactor) Redact(v any) any {
	switch t := v.(type) {
	case *Map:
		out := NewMap()
		t.Range(func(k string, child any) bool {
			if r.Matches(k) {
				out.Set(k, Marker)
			} else {
				out.Set(k, r.Redact(child))
			}
			return true
		})
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = r.Redact(e)
		}
		return out
	case map[string]any, map[string]string, []string:
		return r.Redact(FromGo(t))
	default:
		return v
	}
}
