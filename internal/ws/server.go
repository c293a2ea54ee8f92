package ws

import (
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type Server struct {
	hub      *Hub
	upgrader *websocket.Upgrader
	log      *zap.Logger
}

func NewServer(hub *Hub, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		hub: hub,
		log: logger,
		upgrader: &websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // origin policy is left to the reverse proxy
			},
		},
	}
}

func (s *Server) HandleConnections(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	c := NewConnection(s.hub, conn, s.log)
	if err := c.Handle(r.Context()); err != nil {
		s.log.Debug("connection closed with error", zap.Error(err))
	}
}
