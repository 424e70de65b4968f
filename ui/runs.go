package ui

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"reelforge/app"
	"reelforge/internal/errors"
	"reelforge/models"
	"reelforge/ports"
)

// runRequest is the POST /runs body.
type runRequest struct {
	ProductURL        string `json:"productUrl" binding:"required"`
	ReferenceVideoURL string `json:"referenceVideoUrl"`
}

// run tracks one orchestration from creation to its terminal state.
type run struct {
	ID      string
	orc     *app.Orchestrator
	started time.Time

	mu       sync.RWMutex
	dialogue []models.DialogueEvent
	result   *app.Result
	err      error
	done     bool
}

func (r *run) appendDialogue(event models.DialogueEvent) {
	r.mu.Lock()
	r.dialogue = append(r.dialogue, event)
	r.mu.Unlock()
}

func (r *run) finish(result *app.Result, err error) {
	r.mu.Lock()
	r.result = result
	r.err = err
	r.done = true
	r.mu.Unlock()
}

// RunManager owns the run registry and exposes the run lifecycle handlers.
type RunManager struct {
	backend ports.GenerativeBackend
	hub     *Hub
	log     *logrus.Logger

	mu   sync.RWMutex
	runs map[string]*run
}

// NewRunManager creates the registry backing the /runs routes.
func NewRunManager(backend ports.GenerativeBackend, hub *Hub, log *logrus.Logger) *RunManager {
	return &RunManager{
		backend: backend,
		hub:     hub,
		log:     log,
		runs:    make(map[string]*run),
	}
}

// HandleCreate starts a new run and returns its ID immediately. The
// pipeline executes in the background; clients follow it over the event
// stream and collect the artifact once the state reaches finished.
func (m *RunManager) HandleCreate(c *gin.Context) {
	var req runRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "productUrl is required"})
		return
	}

	r := &run{
		ID:      uuid.NewString(),
		orc:     app.NewOrchestrator(m.backend, m.log),
		started: time.Now(),
	}
	m.mu.Lock()
	m.runs[r.ID] = r
	m.mu.Unlock()

	obs := ports.Observer{
		OnDialogue: func(event models.DialogueEvent) {
			r.appendDialogue(event)
			m.hub.Broadcast(StreamEvent{
				RunID:     r.ID,
				EventType: "dialogue",
				Dialogue:  &event,
				Timestamp: event.Timestamp,
			})
		},
		OnProgress: func(status string) {
			m.hub.Broadcast(StreamEvent{
				RunID:     r.ID,
				EventType: "progress",
				Status:    status,
				Timestamp: time.Now(),
			})
		},
	}

	go func() {
		result, err := r.orc.Run(context.Background(), req.ProductURL, req.ReferenceVideoURL, obs)
		if err != nil {
			m.log.WithError(err).WithField("run_id", r.ID).Error("[Runs] run terminated")
		}
		r.finish(result, err)
	}()

	c.JSON(http.StatusAccepted, gin.H{"id": r.ID, "state": string(r.orc.State())})
}

// HandleGet reports a run's state and, once terminal, its result.
func (m *RunManager) HandleGet(c *gin.Context) {
	r, ok := m.lookup(c)
	if !ok {
		return
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	resp := gin.H{"id": r.ID, "state": string(r.orc.State()), "started": r.started}
	if r.done {
		resp["result"] = r.result
		if r.err != nil {
			resp["error"] = gin.H{"code": errors.GetCode(r.err), "message": r.err.Error()}
		}
	}
	c.JSON(http.StatusOK, resp)
}

// HandleApprove releases a run's approval gate.
func (m *RunManager) HandleApprove(c *gin.Context) {
	r, ok := m.lookup(c)
	if !ok {
		return
	}
	if r.orc.State() != app.StateAwaitingApproval {
		c.JSON(http.StatusConflict, gin.H{"error": "run is not awaiting approval", "state": string(r.orc.State())})
		return
	}
	r.orc.Approve()
	c.JSON(http.StatusOK, gin.H{"id": r.ID, "state": string(app.StateAnchoring)})
}

// HandleCancel requests a cooperative abort.
func (m *RunManager) HandleCancel(c *gin.Context) {
	r, ok := m.lookup(c)
	if !ok {
		return
	}
	r.orc.Cancel()
	c.JSON(http.StatusOK, gin.H{"id": r.ID, "state": string(r.orc.State())})
}

func (m *RunManager) lookup(c *gin.Context) (*run, bool) {
	m.mu.RLock()
	r, ok := m.runs[c.Param("id")]
	m.mu.RUnlock()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return nil, false
	}
	return r, true
}
