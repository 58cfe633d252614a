package live

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

// ErrDuplicateJudge is returned by Register when the (session, judge name)
// pair already has a live connection.
var ErrDuplicateJudge = errors.New("judge name already connected")

// Conn is one live connection. The registry owns the per-session lists; a
// Conn carries only its identity plus transport closures, so teardown is a
// removal keyed by ID rather than pointer equality.
type Conn struct {
	ID        string
	SessionID string
	JudgeName string

	send  func(payload []byte) error
	close func() error
}

// Send writes a pre-serialized payload to the transport.
func (c *Conn) Send(payload []byte) error {
	return c.send(payload)
}

// Close tears down the underlying transport. The read loop owning the
// connection observes the close and unregisters as usual.
func (c *Conn) Close() error {
	if c.close == nil {
		return nil
	}
	return c.close()
}

// Registry maps session IDs to their live connections, in insertion order.
// It is the single authority for "who is currently connected"; lifetime is
// process lifetime (reconnects re-register after a restart).
type Registry struct {
	mu   sync.Mutex
	data map[string][]*Conn
}

func NewRegistry() *Registry {
	return &Registry{data: make(map[string][]*Conn)}
}

// Register admits a connection for (sessionID, judgeName), creating the
// per-session list on first use. It fails with ErrDuplicateJudge when the
// name is already live in that session; the caller must close the new
// transport instead of admitting it.
func (r *Registry) Register(sessionID, judgeName string, send func([]byte) error, closeFn func() error) (*Conn, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range r.data[sessionID] {
		if c.JudgeName == judgeName {
			return nil, ErrDuplicateJudge
		}
	}

	c := &Conn{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		JudgeName: judgeName,
		send:      send,
		close:     closeFn,
	}
	r.data[sessionID] = append(r.data[sessionID], c)
	return c, nil
}

// Unregister removes the specific connection instance. Removing by identity
// rather than by name keeps two sequential connections from the same judge
// from racing during close. No-op when the connection is already gone.
func (r *Registry) Unregister(c *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conns := r.data[c.SessionID]
	for i, cur := range conns {
		if cur.ID == c.ID {
			r.data[c.SessionID] = append(conns[:i], conns[i+1:]...)
			break
		}
	}
	if len(r.data[c.SessionID]) == 0 {
		delete(r.data, c.SessionID)
	}
}

// Connections returns an insertion-ordered snapshot of a session's live
// connections. Mutations after the snapshot do not affect the caller.
func (r *Registry) Connections(sessionID string) []*Conn {
	r.mu.Lock()
	defer r.mu.Unlock()

	conns := r.data[sessionID]
	out := make([]*Conn, len(conns))
	copy(out, conns)
	return out
}

// Drain empties the registry and returns every connection it held, for
// server shutdown to close them.
func (r *Registry) Drain() []*Conn {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*Conn
	for _, conns := range r.data {
		out = append(out, conns...)
	}
	r.data = make(map[string][]*Conn)
	return out
}
