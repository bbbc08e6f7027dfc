package payload

import (
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/bytedance/sonic/ast"
)

// ErrInvalidJSON is returned by Decode for malformed input.
var ErrInvalidJSON = errors.New("payload: invalid JSON")

// Decode parses JSON into a payload tree, keeping object keys in document
// order. Numbers decode as float64.
func Decode(data []byte) (any, error) {
	if !sonic.Valid(data) {
		return nil, ErrInvalidJSON
	}
	root, err := sonic.Get(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	return fromNode(&root)
}

func fromNode(n *ast.Node) (any, error) {
	switch n.Type() {
	case ast.V_NULL:
		return nil, nil
	case ast.V_TRUE:
		return true, nil
	case ast.V_FALSE:
		return false, nil
	case ast.V_STRING:
		return n.String()
	case ast.V_NUMBER:
		return n.Float64()
	case ast.V_ARRAY:
		out := []any{}
		var ferr error
		err := n.ForEach(func(_ ast.Sequence, child *ast.Node) bool {
			v, err := fromNode(child)
			if err != nil {
				ferr = err
				return false
			}
			out = append(out, v)
			return true
		})
		if err == nil {
			err = ferr
		}
		return out, err
	case ast.V_OBJECT:
		m := NewMap()
		var ferr error
		err := n.ForEach(func(path ast.Sequence, child *ast.Node) bool {
			v, err := fromNode(child)
			if err != nil {
				ferr = err
				return false
			}
			m.Set(*path.Key, v)
			return true
		})
		if err == nil {
			err = ferr
		}
		return m, err
	default:
		return nil, fmt.Errorf("%w: unexpected node type %d", ErrInvalidJSON, n.Type())
	}
}
