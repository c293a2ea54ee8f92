package ws

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"onionchat/internal/content"
	"onionchat/internal/history"
	"onionchat/internal/models"
	"onionchat/internal/registry"
)

// sendBuffer is the per-connection outbound queue depth. Delivery is
// best-effort: a client that cannot drain its queue loses frames rather
// than stalling the broadcast.
const sendBuffer = 100

type client struct {
	connID string
	ch     chan models.ServerEvent
}

// Hub is the presence and broadcast engine. It owns the user registry and
// the message log, applies inbound events to them, and fans the results out
// to every connected client. All state lives for the process lifetime and
// is guarded by the stores' own locks plus the hub's connection map lock.
type Hub struct {
	registry *registry.Registry
	history  *history.Log

	// Map of username -> connected client. At most one live connection
	// per username; a second join under the same name is rejected.
	connected map[string]*client

	mu  sync.RWMutex
	log *zap.Logger
}

func NewHub(reg *registry.Registry, hist *history.Log, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		registry:  reg,
		history:   hist,
		connected: make(map[string]*client),
		log:       logger,
	}
}

// Register validates the username and reserves it in the registry with
// Online=true. This is the REST login path; the websocket join binds the
// connection afterwards. Names are never released, so a name that was ever
// registered fails with models.ErrNameTaken forever.
func (h *Hub) Register(username string) (models.User, error) {
	if err := content.ValidateUsername(username); err != nil {
		return models.User{}, err
	}

	user, err := h.registry.Register(username)
	if err != nil {
		h.log.Info("registration rejected, name reserved", zap.String("username", username))
		return models.User{}, err
	}

	h.log.Info("user registered", zap.String("username", username))
	return user, nil
}

// Join binds a connection to username and returns the channel its outbound
// events arrive on. Unknown names are registered first; a name registered
// via REST but not yet bound is attached as the second step of that flow.
// Names that are offline (logged out) or already bound to a live connection
// fail with models.ErrNameTaken. On success every connected client,
// including the joiner, receives a fresh roster snapshot.
func (h *Hub) Join(username string) (chan models.ServerEvent, models.User, error) {
	if err := content.ValidateUsername(username); err != nil {
		return nil, models.User{}, err
	}

	h.mu.Lock()

	user, connID, known := h.registry.Get(username)
	switch {
	case !known:
		var err error
		user, err = h.registry.Register(username)
		if err != nil {
			// Lost a race with a concurrent registration.
			h.mu.Unlock()
			return nil, models.User{}, err
		}
	case !user.Online || connID != "":
		// Logged-out names stay reserved; live names are not displaced.
		h.mu.Unlock()
		h.log.Info("join rejected", zap.String("username", username),
			zap.Bool("online", user.Online))
		return nil, models.User{}, models.ErrNameTaken
	}

	c := &client{
		connID: uuid.NewString(),
		ch:     make(chan models.ServerEvent, sendBuffer),
	}
	h.registry.MarkOnline(username, c.connID)
	h.connected[username] = c
	user, _, _ = h.registry.Get(username)

	h.mu.Unlock()

	h.log.Info("user joined", zap.String("username", username), zap.String("connId", c.connID))
	h.broadcastUsers()

	return c.ch, user, nil
}

// Leave detaches the connection bound to username, marks the user offline
// and tells everyone still connected. The username stays in the registry
// and remains reserved. Safe to call for names that never joined.
func (h *Hub) Leave(username string) {
	h.mu.Lock()

	c, ok := h.connected[username]
	if !ok {
		h.mu.Unlock()
		return
	}
	close(c.ch)
	delete(h.connected, username)
	h.registry.MarkOffline(username)

	h.mu.Unlock()

	h.log.Info("user left", zap.String("username", username))
	h.broadcastUsers()
}

// Send appends a message to the log and broadcasts the stored, sanitized
// copy to every connection, the sender included. Clients recognize their
// own echo by comparing usernames. The sender does not need to be online,
// or registered at all (the REST path allows it, as the original did).
func (h *Hub) Send(username, text string) (models.Message, error) {
	msg, err := h.history.Append(username, text)
	if err != nil {
		return models.Message{}, err
	}

	h.broadcast(models.ServerEvent{
		Type:    models.ServerEventTypeMessage,
		Message: &msg,
	})

	return msg, nil
}

// Typing relays a typing-start signal to every connection except the
// sender's. The hub never runs the idle timer; it relays what it is told.
func (h *Hub) Typing(username string) {
	h.broadcastExcept(username, models.ServerEvent{
		Type:     models.ServerEventTypeTyping,
		Username: username,
	})
}

// StopTyping relays a typing-stop signal to every connection except the
// sender's.
func (h *Hub) StopTyping(username string) {
	h.broadcastExcept(username, models.ServerEvent{
		Type:     models.ServerEventTypeStopTyping,
		Username: username,
	})
}

// Users returns the full registry snapshot, online and offline, in
// registration order.
func (h *Hub) Users() []models.User {
	return h.registry.Snapshot()
}

// History returns the buffered messages, oldest first.
func (h *Hub) History() []models.Message {
	return h.history.Recent()
}

func (h *Hub) broadcastUsers() {
	h.broadcast(models.ServerEvent{
		Type:  models.ServerEventTypeUsersUpdate,
		Users: h.registry.Snapshot(),
	})
}

func (h *Hub) broadcast(ev models.ServerEvent) {
	h.broadcastExcept("", ev)
}

func (h *Hub) broadcastExcept(skip string, ev models.ServerEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for username, c := range h.connected {
		if username == skip {
			continue
		}
		select {
		case c.ch <- ev:
		default:
			// Slow consumer, drop the frame.
			h.log.Warn("dropping event for slow client",
				zap.String("username", username),
				zap.String("type", string(ev.Type)))
		}
	}
}
