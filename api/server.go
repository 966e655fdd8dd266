package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/chattyhq/chatty/metrics"
	"github.com/chattyhq/chatty/realtime"
	"github.com/chattyhq/chatty/store"
)

// Options collects the server's collaborators.
type Options struct {
	Store     *store.Store
	Gateway   *realtime.Gateway
	WebSocket http.Handler

	AppName       string
	Version       string
	EnableMetrics bool

	Logger *slog.Logger
}

// Server is the REST API server. It owns the router; the websocket endpoint
// is mounted on it but handled by the transport layer.
type Server struct {
	store   *store.Store
	gateway *realtime.Gateway
	ws      http.Handler
	router  *mux.Router
	logger  *slog.Logger

	appName       string
	version       string
	enableMetrics bool
}

// NewServer creates the API server and registers all routes.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		store:         opts.Store,
		gateway:       opts.Gateway,
		ws:            opts.WebSocket,
		router:        mux.NewRouter(),
		logger:        logger,
		appName:       opts.AppName,
		version:       opts.Version,
		enableMetrics: opts.EnableMetrics,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(s.requestMiddleware)

	s.router.HandleFunc("/", s.handleRoot).Methods("GET")
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	if s.enableMetrics {
		s.router.Handle("/metrics", metrics.Handler()).Methods("GET")
	}
	if s.ws != nil {
		s.router.Handle("/ws", s.ws)
	}

	users := s.router.PathPrefix("/users").Subrouter()
	users.HandleFunc("", s.handleCreateUser).Methods("POST")
	users.HandleFunc("", s.handleListUsers).Methods("GET")
	users.HandleFunc("/{id}/chatrooms", s.handleListUserChatrooms).Methods("GET")
	users.HandleFunc("/{id}", s.handleGetUser).Methods("GET")
	users.HandleFunc("/{id}", s.handleUpdateUser).Methods("PUT")
	users.HandleFunc("/{id}", s.handleDeleteUser).Methods("DELETE")

	chatrooms := s.router.PathPrefix("/chatrooms").Subrouter()
	chatrooms.HandleFunc("", s.handleCreateChatroom).Methods("POST")
	chatrooms.HandleFunc("", s.handleListChatrooms).Methods("GET")
	chatrooms.HandleFunc("/{id}/users", s.handleListChatroomUsers).Methods("GET")
	chatrooms.HandleFunc("/{id}", s.handleGetChatroom).Methods("GET")
	chatrooms.HandleFunc("/{id}", s.handleUpdateChatroom).Methods("PUT")
	chatrooms.HandleFunc("/{id}", s.handleDeleteChatroom).Methods("DELETE")

	messages := s.router.PathPrefix("/messages").Subrouter()
	messages.HandleFunc("", s.handleCreateMessage).Methods("POST")
	messages.HandleFunc("/chatroom/{chatroom_id}", s.handleListMessagesByChatroom).Methods("GET")
	messages.HandleFunc("/{id}", s.handleGetMessage).Methods("GET")
	messages.HandleFunc("/{id}", s.handleDeleteMessage).Methods("DELETE")

	participants := s.router.PathPrefix("/chatroom-participants").Subrouter()
	participants.HandleFunc("", s.handleAddParticipant).Methods("POST")
	participants.HandleFunc("", s.handleRemoveParticipant).Methods("DELETE")
	participants.HandleFunc("/chatroom/{chatroom_id}", s.handleListParticipants).Methods("GET")
	participants.HandleFunc("/{id}", s.handleRemoveParticipantByID).Methods("DELETE")
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondStoreError maps store errors onto HTTP status codes.
func (s *Server) respondStoreError(w http.ResponseWriter, err error) {
	var ve *store.ValidationError
	switch {
	case errors.As(err, &ve):
		respondError(w, http.StatusBadRequest, ve.Message)
	case errors.Is(err, store.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrConflict):
		respondError(w, http.StatusConflict, err.Error())
	default:
		s.logger.Error("request failed", "error", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// Meta handlers

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"message": "Welcome to " + s.appName + "!",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   s.version,
	})
}

// User handlers

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name   string `json:"name"`
		Handle string `json:"handle"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	user, err := s.store.CreateUser(req.Name, req.Handle)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, user)
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.store.ListUsers()
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"users": users,
		"total": len(users),
	})
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.store.GetUser(mux.Vars(r)["id"])
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Handle string `json:"handle"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	user, err := s.store.UpdateUserHandle(mux.Vars(r)["id"], req.Handle)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}

func (s *Server) handleListUserChatrooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := s.store.ListChatroomsByUser(mux.Vars(r)["id"])
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"chatrooms": rooms,
		"total":     len(rooms),
	})
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteUser(mux.Vars(r)["id"]); err != nil {
		s.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// Chatroom handlers

func (s *Server) handleCreateChatroom(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	room, err := s.store.CreateChatroom(req.Name)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, room)
}

func (s *Server) handleListChatrooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := s.store.ListChatrooms()
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"chatrooms": rooms,
		"total":     len(rooms),
	})
}

func (s *Server) handleGetChatroom(w http.ResponseWriter, r *http.Request) {
	room, err := s.store.GetChatroom(mux.Vars(r)["id"])
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, room)
}

func (s *Server) handleUpdateChatroom(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	room, err := s.store.RenameChatroom(mux.Vars(r)["id"], req.Name)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, room)
}

func (s *Server) handleListChatroomUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.store.ListUsersByChatroom(mux.Vars(r)["id"])
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"users": users,
		"total": len(users),
	})
}

func (s *Server) handleDeleteChatroom(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteChatroom(mux.Vars(r)["id"]); err != nil {
		s.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// Message handlers

func (s *Server) handleCreateMessage(w http.ResponseWriter, r *http.Request) {
	var in store.MessageInput
	if !decodeBody(w, r, &in) {
		return
	}

	msg, err := s.store.CreateMessage(in)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	// Fan out to the chatroom after the commit. Best effort: the HTTP
	// response does not depend on delivery.
	if s.gateway != nil {
		s.gateway.NotifyMessageCreated(msg.ChatroomID, msg)
	}

	respondJSON(w, http.StatusCreated, msg)
}

func (s *Server) handleGetMessage(w http.ResponseWriter, r *http.Request) {
	msg, err := s.store.GetMessage(mux.Vars(r)["id"])
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, msg)
}

func (s *Server) handleListMessagesByChatroom(w http.ResponseWriter, r *http.Request) {
	msgs, err := s.store.ListMessagesByChatroom(mux.Vars(r)["chatroom_id"])
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"messages": msgs,
		"total":    len(msgs),
	})
}

func (s *Server) handleDeleteMessage(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteMessage(mux.Vars(r)["id"]); err != nil {
		s.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// Participant handlers

func (s *Server) handleAddParticipant(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID     string `json:"user_id"`
		ChatroomID string `json:"chatroom_id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	p, err := s.store.AddParticipant(req.UserID, req.ChatroomID)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, p)
}

func (s *Server) handleRemoveParticipant(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID     string `json:"user_id"`
		ChatroomID string `json:"chatroom_id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	if err := s.store.RemoveParticipant(req.UserID, req.ChatroomID); err != nil {
		s.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (s *Server) handleRemoveParticipantByID(w http.ResponseWriter, r *http.Request) {
	if err := s.store.RemoveParticipantByID(mux.Vars(r)["id"]); err != nil {
		s.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (s *Server) handleListParticipants(w http.ResponseWriter, r *http.Request) {
	parts, err := s.store.ListParticipantsByChatroom(mux.Vars(r)["chatroom_id"])
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"participants": parts,
		"total":        len(parts),
	})
}
