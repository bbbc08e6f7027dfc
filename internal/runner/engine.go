package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/syncrunner/internal/infrastructure/config"
	"github.com/GriffinCanCode/syncrunner/internal/infrastructure/logging"
	"github.com/GriffinCanCode/syncrunner/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/syncrunner/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/syncrunner/internal/invocation"
	"github.com/GriffinCanCode/syncrunner/internal/nango"
	"github.com/GriffinCanCode/syncrunner/internal/normalize"
	"github.com/GriffinCanCode/syncrunner/internal/outbound"
	"github.com/GriffinCanCode/syncrunner/internal/payload"
)

// DefaultTimeout bounds an invocation when no timeout is configured.
const DefaultTimeout = 5 * time.Minute

// Result is the outcome of one invocation as reported to the caller.
// Success is true exactly when Error is nil.
type Result struct {
	Success bool                     `json:"success"`
	Error   *normalize.ErrorEnvelope `json:"error"`
	Value   any                      `json:"value,omitempty"`
}

// Engine executes scripts. It is safe for concurrent use; every invocation
// runs in its own runtime.
type Engine struct {
	client           *outbound.Client
	normalizer       *normalize.Normalizer
	nango            nango.Config
	timeout          time.Duration
	maxCallStackSize int
	logger           *logging.Logger
	metrics          *monitoring.Metrics
	tracer           *tracing.Tracer

	redactedKeys  []string
	maxFieldBytes int
}

// Option configures an Engine.
type Option func(*Engine)

// WithTimeout sets the deadline of every invocation.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

// WithClient sets the client outbound calls go through.
func WithClient(c *outbound.Client) Option {
	return func(e *Engine) { e.client = c }
}

// WithNangoConfig sets the Nango API addresses.
func WithNangoConfig(cfg nango.Config) Option {
	return func(e *Engine) { e.nango = cfg }
}

// WithRedactedKeys replaces the keys whose values are redacted from error
// payloads.
func WithRedactedKeys(keys ...string) Option {
	return func(e *Engine) { e.redactedKeys = keys }
}

// WithMaxFieldBytes sets the size above which error payload fields are removed.
func WithMaxFieldBytes(n int) Option {
	return func(e *Engine) { e.maxFieldBytes = n }
}

// WithNormalizer replaces the normalizer. It takes precedence over
// WithRedactedKeys and WithMaxFieldBytes.
func WithNormalizer(n *normalize.Normalizer) Option {
	return func(e *Engine) { e.normalizer = n }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithMetrics records invocations on m.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithTracer submits a span for every invocation to t.
func WithTracer(t *tracing.Tracer) Option {
	return func(e *Engine) { e.tracer = t }
}

// WithMaxCallStackSize limits the script call stack depth. Zero means no limit.
func WithMaxCallStackSize(n int) Option {
	return func(e *Engine) { e.maxCallStackSize = n }
}

// FromConfig translates cfg into engine options.
func FromConfig(cfg *config.Config) []Option {
	return []Option{
		WithTimeout(cfg.Runner.Timeout),
		WithRedactedKeys(cfg.Runner.RedactedKeys...),
		WithMaxFieldBytes(cfg.Runner.MaxFieldBytes),
		WithMaxCallStackSize(cfg.Runner.MaxCallStackSize),
		WithNangoConfig(nango.Config{
			APIURL:   cfg.Nango.APIURL,
			ProxyURL: cfg.Nango.ProxyBaseURL(),
		}),
	}
}

// New creates an engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		nango:   nango.DefaultConfig(),
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.logger == nil {
		e.logger = logging.NewNop()
	}
	if e.client == nil {
		e.client = outbound.NewClient(outbound.DefaultConfig(),
			outbound.WithMetrics(e.metrics),
			outbound.WithLogger(e.logger.Logger),
		)
	}
	if e.normalizer == nil {
		var redactor *payload.Redactor
		if len(e.redactedKeys) > 0 {
			redactor = payload.NewRedactor(e.redactedKeys...)
		}
		var bounder *payload.Bounder
		if e.maxFieldBytes > 0 {
			bounder = payload.NewBounder(e.maxFieldBytes)
		}
		e.normalizer = normalize.New(redactor, bounder)
	}
	if e.timeout <= 0 {
		e.timeout = DefaultTimeout
	}
	return e
}

// Timeout returns the deadline applied to every invocation.
func (e *Engine) Timeout() time.Duration {
	return e.timeout
}

// Run compiles source and executes it. Compilation failures are reported as
// script_internal_error results.
func (e *Engine) Run(ctx context.Context, ic *invocation.Context, name, source string) *Result {
	script, err := Compile(name, source)
	if err != nil {
		span, _ := e.startSpan(ctx, ic, name)
		timer := monitoring.NewTimer(e.metrics, string(ic.Kind()))
		return e.finish(ic, span, timer, normalize.Thrown{Value: err})
	}
	return e.Execute(ctx, ic, script)
}

// Execute runs script against ic. It never panics and never returns an
// error: every failure is described by the result.
func (e *Engine) Execute(ctx context.Context, ic *invocation.Context, script *Script) *Result {
	span, ctx := e.startSpan(ctx, ic, script.Name())
	span.SetTag("script_digest", script.Digest())
	timer := monitoring.NewTimer(e.metrics, string(ic.Kind()))

	f, err := e.newFrame(ctx, ic, script)
	if err != nil {
		return e.finish(ic, span, timer, normalize.Thrown{Value: err})
	}

	done := make(chan normalize.Outcome, 1)
	go func() {
		done <- f.run()
	}()

	deadline := time.NewTimer(e.timeout)
	defer deadline.Stop()

	var outcome normalize.Outcome
	select {
	case outcome = <-done:
		if ctx.Err() != nil {
			outcome = cancelled(ctx, ic)
		}
	case <-deadline.C:
		f.abort()
		outcome = normalize.TimedOut{After: e.timeout}
	case <-ctx.Done():
		f.abort()
		outcome = cancelled(ctx, ic)
	}

	return e.finish(ic, span, timer, outcome)
}

func (e *Engine) startSpan(ctx context.Context, ic *invocation.Context, name string) (*tracing.Span, context.Context) {
	span, ctx := e.tracer.StartSpan(ctx, "invocation "+name)
	span.SetTag("invocation_id", ic.ID().String())
	span.SetTag("kind", string(ic.Kind()))
	return span, ctx
}

func cancelled(ctx context.Context, ic *invocation.Context) normalize.Outcome {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return normalize.TimedOut{After: time.Since(ic.StartedAt()).Round(time.Millisecond)}
	}
	return normalize.Thrown{Value: &normalize.ScriptError{
		Name:    "AbortError",
		Message: "The invocation was cancelled",
	}}
}

// abort stops the frame from any goroutine. The frame goroutine exits once
// the runtime notices the interrupt.
func (f *frame) abort() {
	f.loop.stop()
	f.vm.Interrupt("invocation aborted")
}

func (e *Engine) finish(ic *invocation.Context, span *tracing.Span, timer *monitoring.Timer, outcome normalize.Outcome) *Result {
	res := &Result{Success: true}
	if envelope := e.normalizer.Classify(outcome); envelope != nil {
		res.Success = false
		res.Error = envelope
	} else if r, ok := outcome.(normalize.Returned); ok {
		res.Value = r.Value
	}

	errorType := ""
	if res.Error != nil {
		errorType = string(res.Error.Type)
	}
	duration := timer.Stop(errorType)

	if res.Error != nil {
		span.SetTag("error_type", errorType)
		span.SetError(errors.New(errorType))
	}
	span.Finish()
	e.tracer.Submit(span)

	meta := ic.Metadata()
	fields := []zap.Field{
		zap.String("invocation_id", ic.ID().String()),
		zap.String("trace_id", string(span.TraceID)),
		zap.String("connection_id", meta.ConnectionID),
		zap.String("provider_config_key", meta.ProviderConfigKey),
		zap.String("kind", string(ic.Kind())),
		zap.Bool("success", res.Success),
		zap.Duration("duration", duration),
	}
	if res.Error != nil {
		fields = append(fields,
			zap.String("error_type", errorType),
			zap.String("error", describePayload(res.Error.Payload)),
		)
		e.logger.Warn("Invocation failed", fields...)
	} else {
		e.logger.Info("Invocation completed", fields...)
	}
	return res
}

func describePayload(p *payload.Map) string {
	if p == nil {
		return ""
	}
	data, err := payload.Marshal(p)
	if err != nil {
		return fmt.Sprintf("<%v>", err)
	}
	return string(data)
}
