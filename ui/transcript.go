package ui

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"reelforge/models"
)

// HandleTranscript renders a run's boardroom dialogue as an HTML page.
// The markdown source is also available with ?format=md for download.
func (m *RunManager) HandleTranscript(c *gin.Context) {
	r, ok := m.lookup(c)
	if !ok {
		return
	}

	r.mu.RLock()
	events := make([]models.DialogueEvent, len(r.dialogue))
	copy(events, r.dialogue)
	r.mu.RUnlock()

	md := transcriptMarkdown(r.ID, events)
	if c.Query("format") == "md" {
		c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(md))
		return
	}

	p := parser.NewWithExtensions(parser.CommonExtensions)
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags})
	page := markdown.ToHTML([]byte(md), p, renderer)
	c.Data(http.StatusOK, "text/html; charset=utf-8", page)
}

// transcriptMarkdown lays the dialogue out as a meeting transcript, grouped
// by speaker turn.
func transcriptMarkdown(runID string, events []models.DialogueEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Production Transcript\n\nRun `%s` — %d events\n\n", runID, len(events))
	for _, e := range events {
		switch e.Type {
		case models.DialogueDebate:
			fmt.Fprintf(&b, "> **%s** (%s): %s\n\n", e.Agent, e.Role, e.Message)
		case models.DialoguePrompt:
			fmt.Fprintf(&b, "- *%s*: `%s`\n\n", e.Agent, e.Message)
		default:
			fmt.Fprintf(&b, "**%s** (%s) — %s\n\n%s\n\n", e.Agent, e.Role, e.Timestamp.Format("15:04:05"), e.Message)
		}
	}
	return b.String()
}
