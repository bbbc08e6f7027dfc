package nango

import (
	"context"
	"errors"
	"strings"

	"github.com/dop251/goja"

	"github.com/GriffinCanCode/syncrunner/internal/invocation"
	"github.com/GriffinCanCode/syncrunner/internal/jsbridge"
	"github.com/GriffinCanCode/syncrunner/internal/outbound"
	"github.com/GriffinCanCode/syncrunner/internal/payload"
)

// Settle completes an asynchronous host call on the script goroutine. It
// returns the value to resolve with, or the value to reject with and true.
type Settle func() (value goja.Value, rejected bool)

// Scheduler runs blocking host work off the script goroutine. Async returns
// a promise that is settled by the Settle work returns. ctx is cancelled
// when the invocation ends.
type Scheduler interface {
	Async(work func(ctx context.Context) Settle) goja.Value
}

const actionErrorSource = `(function (register) {
	function effectivePayload(payload) {
		if (payload === undefined || payload === null) {
			return {};
		}
		if (Array.isArray(payload) || typeof payload !== 'object') {
			return { message: payload };
		}
		return payload;
	}
	class ActionError extends Error {
		constructor(payload) {
			const effective = effectivePayload(payload);
			super(typeof effective.message === 'string' ? effective.message : '');
			this.name = 'ActionError';
			this.type = 'action_script_runtime_error';
			this.payload = effective;
			register(this);
		}
	}
	return ActionError;
})`

var actionErrorProgram = goja.MustCompile("nango:action-error", actionErrorSource, true)

// Binding is a Surface exposed to one goja runtime. All methods must be
// called from the runtime's goroutine.
type Binding struct {
	vm          *goja.Runtime
	surface     *Surface
	sched       Scheduler
	object      *goja.Object
	actionError goja.Value
	actions     map[*goja.Object]struct{}
	failures    map[*goja.Object]*outbound.HTTPFailure
}

// Bind builds the "nango" object for vm.
func Bind(vm *goja.Runtime, s *Surface, sched Scheduler) (*Binding, error) {
	b := &Binding{
		vm:       vm,
		surface:  s,
		sched:    sched,
		actions:  make(map[*goja.Object]struct{}),
		failures: make(map[*goja.Object]*outbound.HTTPFailure),
	}

	factory, err := vm.RunProgram(actionErrorProgram)
	if err != nil {
		return nil, err
	}
	build, ok := goja.AssertFunction(factory)
	if !ok {
		return nil, errors.New("action error factory is not a function")
	}
	b.actionError, err = build(goja.Undefined(), vm.ToValue(func(call goja.FunctionCall) goja.Value {
		if obj, ok := call.Argument(0).(*goja.Object); ok {
			b.actions[obj] = struct{}{}
		}
		return goja.Undefined()
	}))
	if err != nil {
		return nil, err
	}

	b.object = vm.NewObject()
	if err := b.install(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Binding) install() error {
	meta := b.surface.Context().Metadata()
	props := []struct {
		name  string
		value any
	}{
		{"connectionId", meta.ConnectionID},
		{"providerConfigKey", meta.ProviderConfigKey},
		{"provider", meta.Provider},
		{"activityLogId", meta.ActivityLogID},
		{"syncId", meta.SyncID},
		{"syncName", meta.SyncName},
		{"actionName", meta.ActionName},
		{"dryRun", meta.DryRun},
		{"ActionError", b.actionError},
		{"proxy", b.request("")},
		{"get", b.request("GET")},
		{"post", b.request("POST")},
		{"put", b.request("PUT")},
		{"patch", b.request("PATCH")},
		{"delete", b.request("DELETE")},
		{"getConnection", b.getConnection},
		{"getMetadata", b.getMetadata},
		{"log", b.log},
		{"batchSave", b.batch(invocation.OpSave)},
		{"batchUpdate", b.batch(invocation.OpUpdate)},
		{"batchDelete", b.batch(invocation.OpDelete)},
	}
	for _, p := range props {
		if err := b.object.Set(p.name, p.value); err != nil {
			return err
		}
	}
	return nil
}

// Object returns the "nango" object passed to the entry point.
func (b *Binding) Object() *goja.Object {
	return b.object
}

// Module returns the value of require("nango").
func (b *Binding) Module() *goja.Object {
	m := b.vm.NewObject()
	_ = m.Set("ActionError", b.actionError)
	return m
}

// ActionErrorConstructor returns the ActionError class.
func (b *Binding) ActionErrorConstructor() goja.Value {
	return b.actionError
}

// Origin returns the Go error behind a value created by the host: an
// *ActionError for ActionError instances, an *outbound.HTTPFailure for
// rejected outbound calls.
func (b *Binding) Origin(v goja.Value) (error, bool) {
	obj, ok := v.(*goja.Object)
	if !ok {
		return nil, false
	}
	if f, ok := b.failures[obj]; ok {
		return f, true
	}
	if _, ok := b.actions[obj]; ok {
		p, err := b.Export(obj.Get("payload"))
		if err != nil {
			p = nil
		}
		return NewActionError(p), true
	}
	return nil, false
}

// ExportHook exports outbound failure objects as their failure payload.
func (b *Binding) ExportHook(obj *goja.Object) (any, bool) {
	if f, ok := b.failures[obj]; ok {
		return f.FailurePayload(), true
	}
	return nil, false
}

// Export converts v to a payload tree, resolving host objects.
func (b *Binding) Export(v goja.Value) (any, error) {
	return jsbridge.Export(v, b.ExportHook)
}

// Format renders log arguments the way console.log does: strings verbatim,
// errors by name and message, everything else as JSON.
func (b *Binding) Format(args []goja.Value) string {
	parts := make([]string, 0, len(args))
	for _, arg := range args {
		parts = append(parts, b.format(arg))
	}
	return strings.Join(parts, " ")
}

func (b *Binding) format(v goja.Value) string {
	if v == nil || goja.IsUndefined(v) {
		return "undefined"
	}
	if obj, ok := jsbridge.IsError(v); ok {
		if _, isFailure := b.failures[obj]; !isFailure {
			name, msg := jsbridge.ToString(obj.Get("name")), jsbridge.ToString(obj.Get("message"))
			if msg == "" {
				return name
			}
			return name + ": " + msg
		}
	}
	if _, ok := v.(*goja.Object); !ok {
		return v.String()
	}
	exported, err := b.Export(v)
	if err != nil {
		return v.String()
	}
	out, err := payload.Marshal(exported)
	if err != nil {
		return v.String()
	}
	return string(out)
}

// errorValue converts a Go error into the value a promise rejects with.
func (b *Binding) errorValue(err error) goja.Value {
	var failure *outbound.HTTPFailure
	if errors.As(err, &failure) {
		return b.failureValue(failure)
	}
	if errors.Is(err, ErrMissingEndpoint) {
		return b.vm.NewTypeError(err.Error())
	}
	return b.vm.NewGoError(err)
}

func (b *Binding) failureValue(f *outbound.HTTPFailure) goja.Value {
	obj, err := b.vm.New(b.vm.Get("Error"), b.vm.ToValue(f.Message))
	if err != nil {
		obj = b.vm.NewObject()
	}
	f.FailurePayload().Range(func(k string, v any) bool {
		_ = obj.Set(k, jsbridge.Import(b.vm, v))
		return true
	})
	b.failures[obj] = f
	return obj
}

func (b *Binding) resolved(v goja.Value) goja.Value {
	p, resolve, _ := b.vm.NewPromise()
	resolve(v)
	return b.vm.ToValue(p)
}

func (b *Binding) rejected(v goja.Value) goja.Value {
	p, _, reject := b.vm.NewPromise()
	reject(v)
	return b.vm.ToValue(p)
}

func (b *Binding) request(method string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		exported, err := b.Export(call.Argument(0))
		if err != nil {
			return b.rejected(b.vm.NewTypeError(err.Error()))
		}
		pc, err := ParseProxyConfig(exported, method)
		if err != nil {
			return b.rejected(b.vm.NewTypeError(err.Error()))
		}

		return b.sched.Async(func(ctx context.Context) Settle {
			resp, err := b.surface.Proxy(ctx, pc)
			return func() (goja.Value, bool) {
				if err != nil {
					return b.errorValue(err), true
				}
				return jsbridge.Import(b.vm, resp.Payload()), false
			}
		})
	}
}

func (b *Binding) getConnection(call goja.FunctionCall) goja.Value {
	return b.sched.Async(func(ctx context.Context) Settle {
		conn, err := b.surface.GetConnection(ctx)
		return b.settleWith(conn, err)
	})
}

func (b *Binding) getMetadata(call goja.FunctionCall) goja.Value {
	return b.sched.Async(func(ctx context.Context) Settle {
		md, err := b.surface.GetMetadata(ctx)
		return b.settleWith(md, err)
	})
}

func (b *Binding) settleWith(v any, err error) Settle {
	return func() (goja.Value, bool) {
		if err != nil {
			return b.errorValue(err), true
		}
		return jsbridge.Import(b.vm, v), false
	}
}

func (b *Binding) log(call goja.FunctionCall) goja.Value {
	args := call.Arguments
	level := "info"
	if n := len(args); n > 1 {
		if opts, ok := args[n-1].(*goja.Object); ok && opts.ClassName() == "Object" {
			keys := opts.Keys()
			if len(keys) == 1 && keys[0] == "level" {
				level = jsbridge.ToString(opts.Get("level"))
				args = args[:n-1]
			}
		}
	}
	b.surface.Log(level, b.Format(args))
	return goja.Undefined()
}

func (b *Binding) batch(op invocation.RecordOp) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		records, ok := call.Argument(0).(*goja.Object)
		if !ok || records.ClassName() != "Array" {
			b.surface.Log("warn", "batch operation expects an array of records")
			return b.resolved(b.vm.ToValue(true))
		}
		b.surface.Record(op, int(records.Get("length").ToInteger()))
		return b.resolved(b.vm.ToValue(true))
	}
}
