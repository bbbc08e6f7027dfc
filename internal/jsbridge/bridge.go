// Package jsbridge converts values between the goja runtime and payload
// trees.
//
// Export follows JSON.stringify: functions, symbols and undefined properties
// are dropped (undefined array slots become null), toJSON is honoured and
// non-finite numbers become null. Unlike JSON.stringify it never fails: a
// reference cycle is replaced by Circular, and Error objects keep their
// name and message.
package jsbridge

import (
	"fmt"
	"math"
	"math/big"
	"strconv"

	"github.com/dop251/goja"

	"github.com/GriffinCanCode/syncrunner/internal/payload"
)

// Circular replaces a value that refers back to one of its ancestors.
const Circular = "[Circular]"

// Hook lets the caller export host-created objects itself. It returns false
// for objects it does not own.
type Hook func(obj *goja.Object) (any, bool)

type exporter struct {
	hook Hook
	seen map[*goja.Object]struct{}
}

// Export converts v into a payload tree. Undefined exports as nil. A getter
// that throws aborts the export with an error.
func Export(v goja.Value, hook Hook) (out any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("export value: %v", r)
		}
	}()

	e := &exporter{hook: hook, seen: make(map[*goja.Object]struct{})}
	out, _ = e.value(v)
	return out, nil
}

// value returns false when v has no JSON representation and should be skipped.
func (e *exporter) value(v goja.Value) (any, bool) {
	if v == nil || goja.IsUndefined(v) {
		return nil, false
	}
	if goja.IsNull(v) {
		return nil, true
	}
	if _, ok := v.(*goja.Symbol); ok {
		return nil, false
	}

	obj, ok := v.(*goja.Object)
	if !ok {
		return primitive(v), true
	}

	if e.hook != nil {
		if out, ok := e.hook(obj); ok {
			return out, true
		}
	}
	if _, ok := goja.AssertFunction(obj); ok {
		return nil, false
	}
	if _, ok := e.seen[obj]; ok {
		return Circular, true
	}
	e.seen[obj] = struct{}{}
	defer delete(e.seen, obj)

	if toJSON, ok := goja.AssertFunction(obj.Get("toJSON")); ok {
		res, err := toJSON(obj)
		if err != nil {
			panic(err)
		}
		if res != goja.Value(obj) {
			return e.value(res)
		}
	}

	switch obj.ClassName() {
	case "Array":
		return e.array(obj), true
	case "Error":
		m := payload.MapOf(
			"name", ToString(obj.Get("name")),
			"message", ToString(obj.Get("message")),
		)
		e.properties(obj, m)
		return m, true
	default:
		m := payload.NewMap()
		e.properties(obj, m)
		return m, true
	}
}

func (e *exporter) array(obj *goja.Object) []any {
	n := obj.Get("length").ToInteger()
	out := make([]any, 0, n)
	for i := int64(0); i < n; i++ {
		v, ok := e.value(obj.Get(strconv.FormatInt(i, 10)))
		if !ok {
			v = nil
		}
		out = append(out, v)
	}
	return out
}

func (e *exporter) properties(obj *goja.Object, into *payload.Map) {
	for _, k := range obj.Keys() {
		if into.Has(k) {
			continue
		}
		if v, ok := e.value(obj.Get(k)); ok {
			into.Set(k, v)
		}
	}
}

func primitive(v goja.Value) any {
	switch t := v.Export().(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return nil
		}
		return t
	case *big.Int:
		return t.String()
	default:
		return t
	}
}

// Import converts a payload tree into a goja value owned by vm.
func Import(vm *goja.Runtime, v any) goja.Value {
	switch t := v.(type) {
	case nil:
		return goja.Null()
	case goja.Value:
		return t
	case *payload.Map:
		obj := vm.NewObject()
		t.Range(func(k string, child any) bool {
			_ = obj.Set(k, Import(vm, child))
			return true
		})
		return obj
	case []any:
		items := make([]any, len(t))
		for i, e := range t {
			items[i] = Import(vm, e)
		}
		return vm.NewArray(items...)
	case map[string]any, map[string]string, []string:
		return Import(vm, payload.FromGo(t))
	default:
		return vm.ToValue(t)
	}
}

// ToString converts v to a string, mapping nil and undefined to "".
func ToString(v goja.Value) string {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return ""
	}
	return v.String()
}

// IsError reports whether v is an Error instance.
func IsError(v goja.Value) (*goja.Object, bool) {
	obj, ok := v.(*goja.Object)
	if !ok || obj.ClassName() != "Error" {
		return nil, false
	}
	return obj, true
}
