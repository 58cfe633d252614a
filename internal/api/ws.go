package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/zoravur/scorecast/internal/live"
	"github.com/zoravur/scorecast/pkg/metrics"
)

const writeWait = 5 * time.Second

// Close reasons sent with a policy-violation status during handshake.
const (
	reasonMissingSessionID = "Missing sessionId"
	reasonMissingJudgeName = "Missing judgeName"
	reasonDuplicateJudge   = "Judge name already connected"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSHandler admits judge connections into the registry and tears them down
// on disconnect.
type WSHandler struct {
	Registry *live.Registry
}

// HandleWS upgrades the connection, validates the sessionId/judgeName query
// params, and registers the connection for outbound delivery. Inbound frames
// are drained and ignored; the read loop exists only to observe the close.
func (h *WSHandler) HandleWS(w http.ResponseWriter, r *http.Request) {
	log := L(r.Context())

	sessionID := r.URL.Query().Get("sessionId")
	judgeName := r.URL.Query().Get("judgeName")

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("ws upgrade failed", zap.Error(err))
		return
	}

	if sessionID == "" {
		closePolicy(conn, reasonMissingSessionID)
		return
	}
	if judgeName == "" {
		closePolicy(conn, reasonMissingJudgeName)
		return
	}

	// gorilla allows one concurrent writer; broadcasts arrive from other
	// goroutines, so every write goes through this mutex.
	var wmu sync.Mutex
	send := func(payload []byte) error {
		wmu.Lock()
		defer wmu.Unlock()
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteMessage(websocket.TextMessage, payload)
	}

	c, err := h.Registry.Register(sessionID, judgeName, send, conn.Close)
	if err != nil {
		closePolicy(conn, reasonDuplicateJudge)
		return
	}

	metrics.ConnOpened()
	log.Info("judge connected",
		zap.String("session_id", sessionID),
		zap.String("judge_name", judgeName),
	)

	defer func() {
		h.Registry.Unregister(c)
		metrics.ConnClosed()
		_ = conn.Close()
		log.Info("judge disconnected",
			zap.String("session_id", sessionID),
			zap.String("judge_name", judgeName),
		)
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func closePolicy(conn *websocket.Conn, reason string) {
	msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	_ = conn.Close()
}
