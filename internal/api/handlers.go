package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"onionchat/internal/models"
	"onionchat/internal/ws"
)

type API struct {
	hub *ws.Hub
	log *zap.Logger
}

func New(hub *ws.Hub, logger *zap.Logger) *API {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &API{hub: hub, log: logger}
}

type loginRequest struct {
	Username string `json:"username"`
}

type loginResponse struct {
	Success  bool   `json:"success"`
	Username string `json:"username"`
	JoinedAt string `json:"joinedAt"`
	Online   bool   `json:"online"`
}

type messageRequest struct {
	Username string `json:"username"`
	Message  string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// LoginHandler reserves a username. On success the client is expected to
// open the websocket and send a join event to bind its connection.
// Errors come back as 200 with an error body, which is what the original
// client expects.
func (a *API) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeJSON(w, errorResponse{Error: "invalid request body"})
		return
	}

	user, err := a.hub.Register(req.Username)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNameTaken):
			a.writeJSON(w, errorResponse{Error: "Username already taken"})
		case errors.Is(err, models.ErrInvalidUsername):
			a.writeJSON(w, errorResponse{Error: "Please enter a username"})
		default:
			a.writeJSON(w, errorResponse{Error: "Login failed. Please try again."})
		}
		return
	}

	a.writeJSON(w, loginResponse{
		Success:  true,
		Username: user.Username,
		JoinedAt: user.JoinedAt,
		Online:   user.Online,
	})
}

// MessageHandler accepts a message send over REST and broadcasts it to all
// connected clients. The sender does not have to be online.
func (a *API) MessageHandler(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeJSON(w, errorResponse{Error: "invalid request body"})
		return
	}

	if _, err := a.hub.Send(req.Username, req.Message); err != nil {
		if errors.Is(err, models.ErrEmptyMessage) {
			a.writeJSON(w, errorResponse{Error: "Message is empty"})
			return
		}
		a.writeJSON(w, errorResponse{Error: "Failed to send message"})
		return
	}

	a.writeJSON(w, map[string]bool{"success": true})
}

// UsersHandler returns the full roster, online and offline, in
// registration order.
func (a *API) UsersHandler(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, a.hub.Users())
}

// MessagesHandler returns the buffered message history, oldest first.
func (a *API) MessagesHandler(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, a.hub.History())
}

func (a *API) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.log.Error("failed to encode response", zap.Error(err))
	}
}
