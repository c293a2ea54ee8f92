package ws

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"onionchat/internal/models"
)

type wsConn interface {
	Close() error
	WriteJSON(v interface{}) error
	ReadJSON(v interface{}) error
}

type eventHub interface {
	Join(username string) (chan models.ServerEvent, models.User, error)
	Leave(username string)
	Send(username, text string) (models.Message, error)
	Typing(username string)
	StopTyping(username string)
}

// Connection drives one client socket through its lifecycle: anonymous
// until a valid join event binds it to a username, identified while the
// socket lives, and detached from the hub exactly once on the way out.
type Connection struct {
	ws  wsConn
	hub eventHub
	log *zap.Logger

	// username of the identified user, empty while anonymous
	username string

	fromClient chan models.ClientEvent
	fromServer chan models.ServerEvent
	errorCh    chan error
}

func NewConnection(hub eventHub, ws wsConn, logger *zap.Logger) *Connection {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Connection{
		ws:         ws,
		hub:        hub,
		log:        logger,
		fromClient: make(chan models.ClientEvent),
		errorCh:    make(chan error, 2),
	}
}

// Handle runs the connection until the socket fails, the context is
// canceled, or the client logs out. On return the user (if identified)
// is marked offline and the remaining clients get a roster update.
func (c *Connection) Handle(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		close(c.fromClient)
		close(c.errorCh)
		if c.username != "" {
			c.hub.Leave(c.username)
		}
	}()

	var wg sync.WaitGroup
	wg.Go(func() {
		c.errorCh <- c.pumpEvents(ctx)
		cancel()
	})

	wg.Go(func() {
		c.errorCh <- c.mainLoop(ctx)
		cancel()
	})

	var err error
	select {
	case err = <-c.errorCh:
	case <-ctx.Done():
	}
	c.ws.Close()
	wg.Wait()

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	return nil
}

func (c *Connection) pumpEvents(ctx context.Context) error {
	for {
		var ev models.ClientEvent
		if err := c.ws.ReadJSON(&ev); err != nil {
			return err
		}
		select {
		case c.fromClient <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

var errLogout = errors.New("client logged out")

func (c *Connection) mainLoop(ctx context.Context) error {
	for {
		select {
		case ev := <-c.fromClient:
			if err := c.processClientEvent(ev); err != nil {
				if errors.Is(err, errLogout) {
					return nil
				}
				return err
			}
		case ev, ok := <-c.fromServer:
			if !ok {
				// Hub closed the channel: the user was detached
				// elsewhere, nothing left to relay.
				return nil
			}
			if err := c.ws.WriteJSON(ev); err != nil {
				return err
			}
		case <-ctx.Done():
			return nil
		}
	}
}

// processClientEvent applies one inbound event. Validation failures and
// out-of-state events are answered with an error frame to this connection
// only; they never affect other connections. A panic inside event handling
// is caught and converted to a generic failure reply.
func (c *Connection) processClientEvent(ev models.ClientEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("panic handling client event",
				zap.String("type", string(ev.Type)), zap.Any("panic", r))
			err = c.replyError("internal error")
		}
	}()

	switch ev.Type {
	case models.ClientEventTypeJoin:
		return c.handleJoin(ev)
	case models.ClientEventTypeSend:
		return c.handleSend(ev)
	case models.ClientEventTypeTyping:
		if c.username == "" {
			return nil
		}
		c.hub.Typing(c.username)
		return nil
	case models.ClientEventTypeStopTyping:
		if c.username == "" {
			return nil
		}
		c.hub.StopTyping(c.username)
		return nil
	case models.ClientEventTypeLogout:
		if c.username == "" {
			return nil
		}
		return errLogout
	default:
		return c.replyError(fmt.Sprintf("unknown event type %q", ev.Type))
	}
}

func (c *Connection) handleJoin(ev models.ClientEvent) error {
	if c.username != "" {
		return c.replyError("already joined")
	}

	username := strings.TrimSpace(ev.Username)
	if username == "" {
		return c.replyError("please enter a username")
	}

	ch, user, err := c.hub.Join(username)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNameTaken):
			return c.replyError("username already taken")
		case errors.Is(err, models.ErrInvalidUsername):
			return c.replyError("please enter a valid username")
		default:
			return c.replyError("join failed, please try again")
		}
	}

	c.username = username
	c.fromServer = ch

	return c.ws.WriteJSON(models.ServerEvent{
		Type: models.ServerEventTypeJoined,
		User: &user,
	})
}

func (c *Connection) handleSend(ev models.ClientEvent) error {
	if c.username == "" {
		return c.replyError("join before sending messages")
	}

	if _, err := c.hub.Send(c.username, ev.Text); err != nil {
		if errors.Is(err, models.ErrEmptyMessage) {
			return c.replyError("message is empty")
		}
		return c.replyError("failed to send message")
	}

	return nil
}

func (c *Connection) replyError(msg string) error {
	return c.ws.WriteJSON(models.ServerEvent{
		Type:  models.ServerEventTypeError,
		Error: msg,
	})
}
