package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/syncrunner/internal/invocation"
	"github.com/GriffinCanCode/syncrunner/internal/outbound"
	"github.com/GriffinCanCode/syncrunner/internal/runner"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	engine  *runner.Engine
	client  *outbound.Client
	version string
	started time.Time
}

// NewHandlers creates a new handler set. client may be nil.
func NewHandlers(engine *runner.Engine, client *outbound.Client, version string) *Handlers {
	return &Handlers{
		engine:  engine,
		client:  client,
		version: version,
		started: time.Now(),
	}
}

// MaxRunRequestBytes bounds the body of POST /v1/run.
const MaxRunRequestBytes = 8 << 20

// RunRequest is the body of POST /v1/run.
type RunRequest struct {
	Metadata invocation.Metadata `json:"metadata"`
	Script   string              `json:"script" binding:"required"`
	Name     string              `json:"name"`
}

// Root handles the service banner.
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "syncrunner",
		"version": h.version,
	})
}

// Health reports liveness and the state of outbound circuit breakers.
func (h *Handlers) Health(c *gin.Context) {
	breakers := gin.H{}
	if h.client != nil {
		for host, state := range h.client.BreakerStates() {
			breakers[host] = state.String()
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":         "healthy",
		"version":        h.version,
		"uptime_seconds": int64(time.Since(h.started).Seconds()),
		"timeout":        h.engine.Timeout().String(),
		"breakers":       breakers,
	})
}

// Run executes one script and responds with its report.
func (h *Handlers) Run(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxRunRequestBytes)

	var req RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	ic, err := invocation.NewContext(req.Metadata)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, invocation.ErrInvalidMetadata) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	name := req.Name
	if name == "" {
		name = req.Metadata.ScriptName()
	}

	report := h.engine.Invoke(c.Request.Context(), ic, name, req.Script)
	c.JSON(http.StatusOK, report)
}
