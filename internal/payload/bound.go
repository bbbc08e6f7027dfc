package payload

import "github.com/bytedance/sonic"

// DefaultMaxFieldBytes is the ceiling used when none is configured.
const DefaultMaxFieldBytes = 400_000

// Bounder removes fields whose compact JSON size exceeds a ceiling.
type Bounder struct {
	max int
}

// NewBounder creates a bounder with the given ceiling in bytes. A
// non-positive ceiling selects DefaultMaxFieldBytes.
func NewBounder(maxFieldBytes int) *Bounder {
	if maxFieldBytes <= 0 {
		maxFieldBytes = DefaultMaxFieldBytes
	}
	return &Bounder{max: maxFieldBytes}
}

// Max returns the ceiling in bytes.
func (b *Bounder) Max() int {
	return b.max
}

// Bound returns a copy of v in which every mapping entry and sequence element
// whose serialized size exceeds the ceiling has been removed. Children are
// pruned before their parent is measured. The root itself is always kept.
func (b *Bounder) Bound(v any) any {
	out, _ := b.prune(v)
	return out
}

func (b *Bounder) prune(v any) (any, int) {
	switch t := v.(type) {
	case *Map:
		out := NewMap()
		size := 2
		t.Range(func(k string, child any) bool {
			pruned, n := b.prune(child)
			if n > b.max {
				return true
			}
			if out.Len() > 0 {
				size++
			}
			size += keySize(k) + 1 + n
			out.Set(k, pruned)
			return true
		})
		return out, size
	case []any:
		out := make([]any, 0, len(t))
		size := 2
		for _, e := range t {
			pruned, n := b.prune(e)
			if n > b.max {
				continue
			}
			if len(out) > 0 {
				size++
			}
			size += n
			out = append(out, pruned)
		}
		return out, size
	case map[string]any, map[string]string, []string:
		return b.prune(FromGo(t))
	default:
		return v, scalarSize(v)
	}
}

func keySize(k string) int {
	b, err := sonic.Marshal(k)
	if err != nil {
		return len(k) + 2
	}
	return len(b)
}

func scalarSize(v any) int {
	b, err := sonic.Marshal(v)
	if err != nil {
		return len("null")
	}
	return len(b)
}
