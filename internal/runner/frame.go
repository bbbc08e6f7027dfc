package runner

import (
	"context"
	"errors"
	"fmt"

	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/syncrunner/internal/invocation"
	"github.com/GriffinCanCode/syncrunner/internal/jsbridge"
	"github.com/GriffinCanCode/syncrunner/internal/nango"
	"github.com/GriffinCanCode/syncrunner/internal/normalize"
)

// frame is the execution environment of one invocation: a runtime, its
// loop and the host binding.
type frame struct {
	vm      *goja.Runtime
	loop    *loop
	binding *nango.Binding
	ic      *invocation.Context
	script  *Script
	logger  *zap.Logger
}

func (e *Engine) newFrame(ctx context.Context, ic *invocation.Context, script *Script) (*frame, error) {
	vm := goja.New()
	if e.maxCallStackSize > 0 {
		vm.SetMaxCallStackSize(e.maxCallStackSize)
	}

	l := newLoop(ctx, vm)
	surface := nango.NewSurface(ic, e.client, e.nango, e.logger.Script())
	binding, err := nango.Bind(vm, surface, l)
	if err != nil {
		return nil, fmt.Errorf("bind host api: %w", err)
	}

	f := &frame{
		vm:      vm,
		loop:    l,
		binding: binding,
		ic:      ic,
		script:  script,
		logger:  e.logger.Script(),
	}
	if err := f.install(surface); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *frame) install(surface *nango.Surface) error {
	if err := f.loop.install(); err != nil {
		return err
	}

	console := f.vm.NewObject()
	for _, level := range []string{"log", "info", "warn", "error", "debug"} {
		lvl := level
		if lvl == "log" {
			lvl = "info"
		}
		if err := console.Set(level, func(call goja.FunctionCall) goja.Value {
			surface.Log(lvl, f.binding.Format(call.Arguments))
			return goja.Undefined()
		}); err != nil {
			return err
		}
	}

	globals := map[string]any{
		"console":     console,
		"ActionError": f.binding.ActionErrorConstructor(),
	}
	for name, v := range globals {
		if err := f.vm.Set(name, v); err != nil {
			return err
		}
	}
	return nil
}

func (f *frame) require(call goja.FunctionCall) goja.Value {
	name := call.Argument(0).String()
	if name == "nango" {
		return f.binding.Module()
	}
	exc, err := f.vm.New(f.vm.Get("Error"), f.vm.ToValue(fmt.Sprintf("Cannot find module '%s'", name)))
	if err != nil {
		panic(f.vm.NewTypeError(err.Error()))
	}
	_ = exc.Set("code", "MODULE_NOT_FOUND")
	panic(exc)
}

// run evaluates the module, calls its default export and waits for the
// result. It must be called on the goroutine that owns the frame.
func (f *frame) run() (outcome normalize.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			f.logger.Error("Script runtime panicked", zap.Any("panic", r))
			outcome = normalize.Thrown{Value: &normalize.ScriptError{Name: "Error", Message: fmt.Sprint(r)}}
		}
	}()
	defer f.loop.stopTimers()

	entry, err := f.entry()
	if err != nil {
		return f.thrown(err)
	}

	args := []goja.Value{f.binding.Object()}
	meta := f.ic.Metadata()
	if f.ic.Kind() == invocation.KindAction && meta.Input != nil {
		args = append(args, jsbridge.Import(f.vm, meta.Input))
	}

	ret, err := entry(goja.Undefined(), args...)
	if err != nil {
		return f.thrown(err)
	}
	if f.loop.faulted {
		return normalize.Thrown{Value: f.describe(f.loop.fault)}
	}

	p, ok := ret.Export().(*goja.Promise)
	if !ok {
		return f.returned(ret)
	}
	if !f.loop.await(p) {
		if f.loop.isStopped() {
			return normalize.Thrown{Value: context.Canceled}
		}
		return normalize.Thrown{Value: &normalize.ScriptError{
			Name:    "Error",
			Message: "script finished without settling the promise returned by its entry point",
		}}
	}
	if f.loop.faulted {
		return normalize.Thrown{Value: f.describe(f.loop.fault)}
	}

	switch p.State() {
	case goja.PromiseStateFulfilled:
		return f.returned(p.Result())
	default:
		return normalize.Thrown{Value: f.describe(p.Result())}
	}
}

// entry evaluates the module and returns its default export.
func (f *frame) entry() (goja.Callable, error) {
	wrapper, err := f.vm.RunProgram(f.script.program)
	if err != nil {
		return nil, err
	}
	init, ok := goja.AssertFunction(wrapper)
	if !ok {
		return nil, errors.New("module wrapper is not a function")
	}

	exports := f.vm.NewObject()
	module := f.vm.NewObject()
	if err := module.Set("exports", exports); err != nil {
		return nil, err
	}
	if _, err := init(goja.Undefined(), module, exports, f.vm.ToValue(f.require)); err != nil {
		return nil, err
	}

	exported := module.Get("exports")
	if fn, ok := goja.AssertFunction(exported); ok {
		return fn, nil
	}
	if obj, ok := exported.(*goja.Object); ok {
		if fn, ok := goja.AssertFunction(obj.Get("default")); ok {
			return fn, nil
		}
	}
	return nil, &normalize.ScriptError{
		Name:    "TypeError",
		Message: "There is no default export that is a function for " + f.script.name,
	}
}

func (f *frame) returned(v goja.Value) normalize.Outcome {
	out, err := f.binding.Export(v)
	if err != nil {
		return normalize.Thrown{Value: &normalize.ScriptError{Name: "TypeError", Message: err.Error()}}
	}
	return normalize.Returned{Value: out}
}

// thrown converts an error returned by goja into an outcome.
func (f *frame) thrown(err error) normalize.Outcome {
	var ex *goja.Exception
	if errors.As(err, &ex) {
		return normalize.Thrown{Value: f.describe(ex.Value())}
	}
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		return normalize.Thrown{Value: context.Canceled}
	}
	return normalize.Thrown{Value: err}
}

// describe maps a thrown JavaScript value to what the normalizer classifies:
// host errors become their Go error, native errors a ScriptError, anything
// else its exported value.
func (f *frame) describe(v goja.Value) any {
	if origin, ok := f.binding.Origin(v); ok {
		return origin
	}
	if obj, ok := jsbridge.IsError(v); ok {
		return &normalize.ScriptError{
			Name:    jsbridge.ToString(obj.Get("name")),
			Message: jsbridge.ToString(obj.Get("message")),
			Stack:   jsbridge.ToString(obj.Get("stack")),
		}
	}
	out, err := f.binding.Export(v)
	if err != nil {
		return nil
	}
	return out
}
