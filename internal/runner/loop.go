package runner

import (
	"context"
	"sync"
	"time"

	"github.com/dop251/goja"

	"github.com/GriffinCanCode/syncrunner/internal/nango"
)

const minInterval = 10 * time.Millisecond

type timer struct {
	id       int64
	callback goja.Callable
	args     []goja.Value
	interval time.Duration
	t        *time.Timer
}

// loop drives one runtime. Only the goroutine calling run touches the
// runtime; other goroutines hand work to it through post.
type loop struct {
	vm     *goja.Runtime
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	queue   []func()
	stopped bool
	wake    chan struct{}

	// Owned by the loop goroutine.
	inflight int
	timers   map[int64]*timer
	nextID   int64
	fault    goja.Value
	faulted  bool
}

func newLoop(ctx context.Context, vm *goja.Runtime) *loop {
	ctx, cancel := context.WithCancel(ctx)
	return &loop{
		vm:     vm,
		ctx:    ctx,
		cancel: cancel,
		wake:   make(chan struct{}, 1),
		timers: make(map[int64]*timer),
	}
}

// post queues job for the loop goroutine. It reports false once the loop
// has stopped; the job is then dropped.
func (l *loop) post(job func()) bool {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, job)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// stop refuses further work, cancels outstanding host calls and timers.
// Safe to call from any goroutine, more than once.
func (l *loop) stop() {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	l.stopped = true
	l.queue = nil
	l.mu.Unlock()
	l.cancel()
}

func (l *loop) isStopped() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stopped
}

// Async implements nango.Scheduler.
func (l *loop) Async(work func(ctx context.Context) nango.Settle) goja.Value {
	p, resolve, reject := l.vm.NewPromise()
	l.inflight++

	go func() {
		settle := work(l.ctx)
		l.post(func() {
			l.inflight--
			v, rejected := settle()
			if rejected {
				reject(v)
			} else {
				resolve(v)
			}
		})
	}()

	return l.vm.ToValue(p)
}

// await runs queued jobs until p settles. It returns false when the loop was
// stopped or ran out of work before p settled.
func (l *loop) await(p *goja.Promise) bool {
	for {
		if p.State() != goja.PromiseStatePending || l.faulted {
			return true
		}
		if l.isStopped() {
			return false
		}

		l.mu.Lock()
		jobs := l.queue
		l.queue = nil
		l.mu.Unlock()

		if len(jobs) == 0 {
			if l.inflight == 0 && len(l.timers) == 0 {
				return false
			}
			select {
			case <-l.wake:
			case <-l.ctx.Done():
				return false
			}
			continue
		}

		for _, job := range jobs {
			if l.isStopped() {
				return false
			}
			job()
			if l.faulted {
				return true
			}
		}
	}
}

func (l *loop) setTimer(call goja.FunctionCall, repeat bool) goja.Value {
	callback, ok := goja.AssertFunction(call.Argument(0))
	if !ok {
		panic(l.vm.NewTypeError("callback must be a function"))
	}
	delay := time.Duration(call.Argument(1).ToInteger()) * time.Millisecond
	if delay < 0 {
		delay = 0
	}
	if repeat && delay < minInterval {
		delay = minInterval
	}
	var args []goja.Value
	if len(call.Arguments) > 2 {
		args = append(args, call.Arguments[2:]...)
	}

	l.nextID++
	t := &timer{id: l.nextID, callback: callback, args: args}
	if repeat {
		t.interval = delay
	}
	l.timers[t.id] = t
	l.arm(t, delay)
	return l.vm.ToValue(t.id)
}

func (l *loop) arm(t *timer, delay time.Duration) {
	t.t = time.AfterFunc(delay, func() {
		l.post(func() { l.fire(t.id) })
	})
}

func (l *loop) fire(id int64) {
	t, ok := l.timers[id]
	if !ok {
		return
	}
	if t.interval > 0 {
		l.arm(t, t.interval)
	} else {
		delete(l.timers, id)
	}

	if _, err := t.callback(goja.Undefined(), t.args...); err != nil {
		l.fail(err)
	}
}

func (l *loop) clearTimer(call goja.FunctionCall) goja.Value {
	id := call.Argument(0).ToInteger()
	if t, ok := l.timers[id]; ok {
		t.t.Stop()
		delete(l.timers, id)
	}
	return goja.Undefined()
}

// fail records an exception no script code can catch, such as one thrown by
// a timer callback. The first one ends the invocation.
func (l *loop) fail(err error) {
	if l.faulted {
		return
	}
	l.faulted = true
	if ex, ok := err.(*goja.Exception); ok {
		l.fault = ex.Value()
		return
	}
	l.fault = l.vm.NewGoError(err)
}

func (l *loop) stopTimers() {
	for id, t := range l.timers {
		t.t.Stop()
		delete(l.timers, id)
	}
}

func (l *loop) install() error {
	globals := map[string]any{
		"setTimeout":    func(call goja.FunctionCall) goja.Value { return l.setTimer(call, false) },
		"setInterval":   func(call goja.FunctionCall) goja.Value { return l.setTimer(call, true) },
		"clearTimeout":  l.clearTimer,
		"clearInterval": l.clearTimer,
	}
	for name, fn := range globals {
		if err := l.vm.Set(name, fn); err != nil {
			return err
		}
	}
	return nil
}
