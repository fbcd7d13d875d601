package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"a11y-server/internal/audit"
	"a11y-server/internal/fetch"
)

const liveWriteTimeout = 10 * time.Second

var liveUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Same policy as the JSON API: any origin may audit
	CheckOrigin: func(r *http.Request) bool { return true },
}

// LiveMessage is one frame of the /ws/check stream.
// Type is "check" per rule, then a single "report" or "error".
type LiveMessage struct {
	Type   string              `json:"type"`
	Check  string              `json:"check,omitempty"`
	Kind   audit.Kind          `json:"kind,omitempty"`
	Issues []audit.Issue       `json:"issues,omitempty"`
	Passed []audit.PassedCheck `json:"passed,omitempty"`
	Report *audit.Report       `json:"report,omitempty"`
	Error  string              `json:"error,omitempty"`
}

// liveCheckHandler audits ?url= and streams each rule's outcome as it runs.
// Live audits bypass the report cache.
func liveCheckHandler(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("url"))
	if raw == "" {
		http.Error(w, ErrURLRequired.Error(), http.StatusBadRequest)
		return
	}
	if !allowRequest(w, r) {
		return
	}
	target := fetch.NormalizeURL(raw)

	conn, err := liveUpgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error
		LoggerFromContext(r.Context()).Debug("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	liveConnectionsOpen.Add(1)
	defer liveConnectionsOpen.Add(-1)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// The client sends nothing; reading only detects a close
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	logger := LoggerFromContext(r.Context())
	send := func(msg LiveMessage) bool {
		conn.SetWriteDeadline(time.Now().Add(liveWriteTimeout))
		if err := conn.WriteJSON(msg); err != nil {
			logger.Debug("live audit write failed", "error", err)
			cancel()
			return false
		}
		return true
	}

	report, err := auditor.AuditLive(ctx, target, func(c audit.Check, o audit.Outcome) {
		if ctx.Err() != nil {
			return
		}
		send(LiveMessage{
			Type:   "check",
			Check:  c.Name,
			Kind:   c.Kind,
			Issues: o.Issues,
			Passed: o.Passed,
		})
	})
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		_, msg := auditErrorMessage(err)
		send(LiveMessage{Type: "error", Error: msg})
	} else {
		send(LiveMessage{Type: "report", Report: &report})
	}

	conn.SetWriteDeadline(time.Now().Add(liveWriteTimeout))
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
