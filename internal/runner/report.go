package runner

import (
	"context"
	"time"

	"github.com/GriffinCanCode/syncrunner/internal/invocation"
	"github.com/GriffinCanCode/syncrunner/internal/shared/id"
)

// Report is a Result together with what the script reported while running.
type Report struct {
	InvocationID id.InvocationID     `json:"invocation_id"`
	ScriptDigest string              `json:"script_digest"`
	Result       *Result             `json:"result"`
	Progress     invocation.Snapshot `json:"progress"`
	DurationMS   int64               `json:"duration_ms"`
}

// Invoke runs source like Run and collects the invocation's progress.
func (e *Engine) Invoke(ctx context.Context, ic *invocation.Context, name, source string) *Report {
	start := time.Now()
	res := e.Run(ctx, ic, name, source)
	return &Report{
		InvocationID: ic.ID(),
		ScriptDigest: Digest(source),
		Result:       res,
		Progress:     ic.Progress().Snapshot(),
		DurationMS:   time.Since(start).Milliseconds(),
	}
}
