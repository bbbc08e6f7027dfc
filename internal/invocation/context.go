package invocation

import (
	"time"

	"github.com/GriffinCanCode/syncrunner/internal/payload"
	"github.com/GriffinCanCode/syncrunner/internal/shared/id"
)

// Context is everything one invocation knows about itself. The metadata is
// fixed at construction; only the ProgressLog changes while the script runs.
type Context struct {
	id        id.InvocationID
	meta      Metadata
	startedAt time.Time
	progress  *ProgressLog
}

// NewContext validates meta and builds a context for a new invocation.
// A missing activity log ID is generated.
func NewContext(meta Metadata) (*Context, error) {
	if err := meta.Validate(); err != nil {
		return nil, err
	}
	if meta.ActivityLogID == "" {
		meta.ActivityLogID = id.NewActivityLogID()
	}
	meta.Input = payload.FromGo(meta.Input)

	return &Context{
		id:        id.NewInvocationID(),
		meta:      meta,
		startedAt: time.Now(),
		progress:  NewProgressLog(),
	}, nil
}

// ID returns the invocation ID.
func (c *Context) ID() id.InvocationID { return c.id }

// Metadata returns a copy of the invocation metadata.
func (c *Context) Metadata() Metadata { return c.meta }

// Kind reports whether this is a sync or an action.
func (c *Context) Kind() Kind { return c.meta.Kind() }

// StartedAt returns the construction time.
func (c *Context) StartedAt() time.Time { return c.startedAt }

// Progress returns the invocation's progress log.
func (c *Context) Progress() *ProgressLog { return c.progress }
