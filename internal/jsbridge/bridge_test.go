package jsbridge

import (
	"testing"

	"github.com/dop251/goja"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/syncrunner/internal/payload"
)

func exportJS(t *testing.T, src string) any {
	t.Helper()
	vm := goja.New()
	v, err := vm.RunString(src)
	require.NoError(t, err)
	out, err := Export(v, nil)
	require.NoError(t, err)
	return out
}

func TestExportPrimitives(t *testing.T) {
	assert.Equal(t, int64(42), exportJS(t, `42`))
	assert.Equal(t, 1.5, exportJS(t, `1.5`))
	assert.Equal(t, "s", exportJS(t, `"s"`))
	assert.Equal(t, true, exportJS(t, `true`))
	assert.Nil(t, exportJS(t, `null`))
	assert.Nil(t, exportJS(t, `undefined`))
	assert.Nil(t, exportJS(t, `NaN`))
	assert.Nil(t, exportJS(t, `Infinity`))
}

func TestExportObjectKeepsOrder(t *testing.T) {
	out := exportJS(t, `({zeta: 1, alpha: {y: "a", x: [1, "b"]}, fn: function() {}, u: undefined, n: null})`)

	m, ok := out.(*payload.Map)
	require.True(t, ok)
	assert.Equal(t, []string{"zeta", "alpha", "n"}, m.Keys())
	alpha, _ := m.Get("alpha")
	assert.Equal(t, []string{"y", "x"}, alpha.(*payload.Map).Keys())

	b, err := payload.Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, `{"zeta":1,"alpha":{"y":"a","x":[1,"b"]},"n":null}`, string(b))
}

func TestExportArraySlots(t *testing.T) {
	out := exportJS(t, `[1, undefined, function() {}, , "x"]`)
	assert.Equal(t, []any{int64(1), nil, nil, nil, "x"}, out)
}

func TestExportHonoursToJSON(t *testing.T) {
	out := exportJS(t, `({when: new Date(0), custom: {toJSON() { return "custom" }}})`)
	assert.Equal(t, map[string]any{
		"when":   "1970-01-01T00:00:00.000Z",
		"custom": "custom",
	}, out.(*payload.Map).ToStd())
}

func TestExportCycles(t *testing.T) {
	out := exportJS(t, `const a = {name: "a"}; a.self = a; a.list = [a]; a`)
	assert.Equal(t, map[string]any{
		"name": "a",
		"self": Circular,
		"list": []any{Circular},
	}, out.(*payload.Map).ToStd())
}

func TestExportSharedReferenceIsNotCircular(t *testing.T) {
	out := exportJS(t, `const s = {v: 1}; ({a: s, b: s})`)
	assert.Equal(t, map[string]any{
		"a": map[string]any{"v": int64(1)},
		"b": map[string]any{"v": int64(1)},
	}, out.(*payload.Map).ToStd())
}

func TestExportErrors(t *testing.T) {
	out := exportJS(t, `const e = new TypeError("bad"); e.code = "E1"; e`)
	m := out.(*payload.Map)
	assert.Equal(t, []string{"name", "message", "code"}, m.Keys())
	assert.Equal(t, map[string]any{"name": "TypeError", "message": "bad", "code": "E1"}, m.ToStd())
}

func TestExportHook(t *testing.T) {
	vm := goja.New()
	special := vm.NewObject()
	_ = vm.Set("special", special)
	v, err := vm.RunString(`({inner: special, other: {}})`)
	require.NoError(t, err)

	out, err := Export(v, func(obj *goja.Object) (any, bool) {
		if obj == special {
			return "host", true
		}
		return nil, false
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"inner": "host", "other": map[string]any{}}, out.(*payload.Map).ToStd())
}

func TestExportThrowingGetter(t *testing.T) {
	vm := goja.New()
	v, err := vm.RunString(`({get boom() { throw new Error("no") }})`)
	require.NoError(t, err)

	_, err = Export(v, nil)
	assert.Error(t, err)
}

func TestImport(t *testing.T) {
	vm := goja.New()
	in := payload.MapOf("b", 1, "a", []any{"x", payload.MapOf("k", nil)}, "c", map[string]any{"z": true})
	require.NoError(t, vm.Set("input", Import(vm, in)))

	v, err := vm.RunString(`JSON.stringify(input)`)
	require.NoError(t, err)
	assert.Equal(t, `{"b":1,"a":["x",{"k":null}],"c":{"z":true}}`, v.String())

	back, err := Export(vm.Get("input"), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a", "c"}, back.(*payload.Map).Keys())
}

func TestIsError(t *testing.T) {
	vm := goja.New()
	v, _ := vm.RunString(`new RangeError("r")`)
	obj, ok := IsError(v)
	require.True(t, ok)
	assert.Equal(t, "RangeError", ToString(obj.Get("name")))

	plain, _ := vm.RunString(`({message: "m"})`)
	_, ok = IsError(plain)
	assert.False(t, ok)
	assert.Equal(t, "", ToString(nil))
}
