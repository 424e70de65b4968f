package ui

import (
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"reelforge/models"
)

// StreamEvent is one record on a run's event stream: either an agent
// dialogue event or a coarse progress transition.
type StreamEvent struct {
	RunID     string                `json:"run_id"`
	EventType string                `json:"event_type"`
	Status    string                `json:"status,omitempty"`
	Dialogue  *models.DialogueEvent `json:"dialogue,omitempty"`
	Timestamp time.Time             `json:"timestamp"`
}

type hubClient struct {
	runID   string
	channel chan StreamEvent
}

// Hub fans run events out to connected SSE clients. Slow clients are
// skipped rather than blocking the pipeline; the stream is best-effort by
// contract.
type Hub struct {
	clients    map[string]map[chan StreamEvent]bool
	clientsMu  sync.RWMutex
	register   chan hubClient
	unregister chan hubClient
	broadcast  chan StreamEvent
	log        *logrus.Logger
}

// NewHub creates the hub and starts its dispatch loop.
func NewHub(log *logrus.Logger) *Hub {
	h := &Hub{
		clients:    make(map[string]map[chan StreamEvent]bool),
		register:   make(chan hubClient, 10),
		unregister: make(chan hubClient, 10),
		broadcast:  make(chan StreamEvent, 256),
		log:        log,
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case client := <-h.register:
			h.clientsMu.Lock()
			if h.clients[client.runID] == nil {
				h.clients[client.runID] = make(map[chan StreamEvent]bool)
			}
			h.clients[client.runID][client.channel] = true
			h.clientsMu.Unlock()

		case client := <-h.unregister:
			h.clientsMu.Lock()
			if clients, exists := h.clients[client.runID]; exists {
				delete(clients, client.channel)
				close(client.channel)
				if len(clients) == 0 {
					delete(h.clients, client.runID)
				}
			}
			h.clientsMu.Unlock()

		case event := <-h.broadcast:
			h.clientsMu.RLock()
			for clientChan := range h.clients[event.RunID] {
				select {
				case clientChan <- event:
				default:
					h.log.WithField("run_id", event.RunID).Debug("[SSE] client channel full, skipping event")
				}
			}
			h.clientsMu.RUnlock()
		}
	}
}

// Broadcast queues an event for every client watching the run.
func (h *Hub) Broadcast(event StreamEvent) {
	select {
	case h.broadcast <- event:
	default:
		h.log.WithField("event_type", event.EventType).Warn("[SSE] broadcast channel full, dropping event")
	}
}

// HandleSSE streams a run's events to one client until it disconnects.
func (h *Hub) HandleSSE(c *gin.Context) {
	runID := c.Param("id")

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("Access-Control-Allow-Origin", "*")

	clientChan := make(chan StreamEvent, 32)
	select {
	case h.register <- hubClient{runID: runID, channel: clientChan}:
	default:
		c.JSON(500, gin.H{"error": "event hub registration failed"})
		return
	}
	defer func() {
		select {
		case h.unregister <- hubClient{runID: runID, channel: clientChan}:
		default:
		}
	}()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case event := <-clientChan:
			payload, err := json.Marshal(event)
			if err != nil {
				h.log.WithError(err).Warn("[SSE] failed to marshal event")
				return true
			}
			c.SSEvent(event.EventType, string(payload))
			return true

		case <-time.After(30 * time.Second):
			c.SSEvent("ping", `{"status": "alive"}`)
			return true

		case <-ctx.Done():
			return false
		}
	})
}
