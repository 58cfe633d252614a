package live

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/zoravur/scorecast/internal/protocol"
	"github.com/zoravur/scorecast/pkg/metrics"
)

// Router delivers messages to a session's live connections. Delivery is
// fire-and-forget: a connection whose transport errors is skipped, never
// retried or queued. Counts are returned so callers and tests can assert
// delivery deterministically.
type Router struct {
	reg *Registry
	log *zap.Logger
}

func NewRouter(reg *Registry, log *zap.Logger) *Router {
	if log == nil {
		log = zap.L()
	}
	return &Router{reg: reg, log: log}
}

// BroadcastToSession serializes msg once and writes it to every live
// connection in the session.
func (rt *Router) BroadcastToSession(sessionID string, msg any) (delivered, skipped int) {
	return rt.deliver(sessionID, msg, func(*Conn) bool { return true })
}

// TellHost is BroadcastToSession restricted to connections whose judge name
// is the host convention.
func (rt *Router) TellHost(sessionID string, msg any) (delivered, skipped int) {
	return rt.deliver(sessionID, msg, func(c *Conn) bool { return protocol.IsHost(c.JudgeName) })
}

func (rt *Router) deliver(sessionID string, msg any, want func(*Conn) bool) (delivered, skipped int) {
	payload, err := json.Marshal(msg)
	if err != nil {
		rt.log.Error("broadcast marshal failed", zap.String("session_id", sessionID), zap.Error(err))
		return 0, 0
	}

	for _, c := range rt.reg.Connections(sessionID) {
		if !want(c) {
			continue
		}
		if err := c.Send(payload); err != nil {
			skipped++
			rt.log.Debug("broadcast send skipped",
				zap.String("session_id", sessionID),
				zap.String("judge_name", c.JudgeName),
				zap.Error(err),
			)
			continue
		}
		delivered++
	}

	metrics.RecordBroadcast(messageType(payload), delivered, skipped)
	rt.log.Debug("broadcast complete",
		zap.String("session_id", sessionID),
		zap.Int("delivered", delivered),
		zap.Int("skipped", skipped),
	)
	return delivered, skipped
}

func messageType(payload []byte) string {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(payload, &env); err != nil || env.Type == "" {
		return "unknown"
	}
	return env.Type
}
