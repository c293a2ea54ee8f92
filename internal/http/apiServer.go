package http

import (
	"context"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"onionchat/internal/api"
	"onionchat/internal/ws"
)

type APIServer struct {
	server *http.Server
	log    *zap.Logger
	wg     sync.WaitGroup
}

func NewAPIServer(hub *ws.Hub, addr string, logger *zap.Logger) *APIServer {
	if logger == nil {
		logger = zap.NewNop()
	}

	wsServer := ws.NewServer(hub, logger)
	apiHandlers := api.New(hub, logger)

	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/login", apiHandlers.LoginHandler)
	mux.HandleFunc("POST /api/message", apiHandlers.MessageHandler)
	mux.HandleFunc("GET /api/users", apiHandlers.UsersHandler)
	mux.HandleFunc("GET /api/messages", apiHandlers.MessagesHandler)

	mux.HandleFunc("/ws", wsServer.HandleConnections)

	if addr == "" {
		addr = ":3000"
	}

	return &APIServer{
		server: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
		log: logger,
	}
}

func (s *APIServer) Start() error {
	s.log.Info("chat server started", zap.String("addr", s.server.Addr))
	s.wg.Add(1)
	defer s.wg.Done()

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *APIServer) Shutdown(ctx context.Context) error {
	defer s.wg.Wait()
	return s.server.Shutdown(ctx)
}
