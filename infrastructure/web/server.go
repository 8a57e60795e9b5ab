// Package web exposes the relay over HTTP: the REST surface around
// accounts and history, the static attachment files, and the WebSocket
// endpoint the relay core runs on.
package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"courier/contract"
	"courier/domain"
	couriererrors "courier/errors"
	"courier/repositories"
	"courier/runtime"
	"courier/services"

	"github.com/gorilla/mux"
	"github.com/samber/lo"
)

// Options gathers the transport knobs collected from configuration.
type Options struct {
	AllowedOrigins  []string
	SecureCookies   bool
	UploadsDir      string
	ProbeInterval   time.Duration
	DeathTimeout    time.Duration
	OutboxSize      int
	DeliveryTimeout time.Duration
}

type Server struct {
	log      *slog.Logger
	auth     services.IAuthService
	resolver contract.IIdentityResolver
	users    repositories.IUserRepository
	messages repositories.IMessageRepository
	registry *runtime.Registry
	relay    *runtime.Relay
	opts     Options
}

func NewServer(log *slog.Logger, auth services.IAuthService, resolver contract.IIdentityResolver,
	users repositories.IUserRepository, messages repositories.IMessageRepository,
	registry *runtime.Registry, relay *runtime.Relay, opts Options) *Server {
	return &Server{
		log:      log,
		auth:     auth,
		resolver: resolver,
		users:    users,
		messages: messages,
		registry: registry,
		relay:    relay,
		opts:     opts,
	}
}

// Router wires every route. CORS is layered on top by the caller.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/register", s.handleRegister).Methods("POST")
	r.HandleFunc("/login", s.handleLogin).Methods("POST")
	r.HandleFunc("/logout", s.handleLogout).Methods("POST")
	r.HandleFunc("/profile", s.handleProfile).Methods("GET")
	r.HandleFunc("/people", s.handlePeople).Methods("GET")
	r.HandleFunc("/messages/{peerId}", s.handleMessages).Methods("GET")

	// Relay endpoint
	r.HandleFunc("/ws", s.HandleWebSocket).Methods("GET")

	// Stored attachments, referenced by the "file" field of messages
	r.PathPrefix("/uploads/").Handler(
		http.StripPrefix("/uploads/", http.FileServer(http.Dir(s.opts.UploadsDir))))

	return r
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := s.auth.Register(body.Username, body.Password)
	switch {
	case errors.Is(err, couriererrors.ErrUserAlreadyExists):
		writeError(w, http.StatusConflict, "username already taken")
		return
	case errors.Is(err, couriererrors.ErrInvalidPassword):
		writeError(w, http.StatusBadRequest, "invalid username or password shape")
		return
	case err != nil:
		s.log.Error("Registration failed", "error", err)
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	s.setTokenCookie(w, session.Token)
	writeJSON(w, http.StatusCreated, map[string]string{"id": session.UserID})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := s.auth.Login(body.Username, body.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	s.setTokenCookie(w, session.Token)
	writeJSON(w, http.StatusOK, map[string]string{"id": session.UserID})
}

func (s *Server) handleLogout(w http.ResponseWriter, _ *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.opts.SecureCookies,
		SameSite: http.SameSiteNoneMode,
	})
	writeJSON(w, http.StatusOK, "ok")
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	identity, err := s.identityFromRequest(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "no valid token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"userId":   identity.ID,
		"username": identity.DisplayName,
	})
}

func (s *Server) handlePeople(w http.ResponseWriter, _ *http.Request) {
	users, err := s.users.ListUsers()
	if err != nil {
		s.log.Error("Listing users failed", "error", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	people := lo.Map(users, func(u repositories.User, _ int) map[string]string {
		return map[string]string{"id": u.ID, "username": u.Username}
	})
	writeJSON(w, http.StatusOK, people)
}

// storedMessage is the REST view of one persisted message.
type storedMessage struct {
	ID        string    `json:"_id"`
	Sender    string    `json:"sender"`
	Recipient string    `json:"recipient"`
	Text      string    `json:"text,omitempty"`
	File      string    `json:"file,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type conversationResponse struct {
	Messages []storedMessage `json:"messages"`
	Cursor   *string         `json:"cursor,omitempty"`
}

// handleMessages returns the conversation between the caller and the peer,
// oldest first, cursor-paginated.
func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	identity, err := s.identityFromRequest(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "no valid token")
		return
	}

	peerID := mux.Vars(r)["peerId"]
	var cursor *string
	if raw := r.URL.Query().Get("cursor"); raw != "" {
		cursor = &raw
	}

	messages, next, err := s.messages.GetConversation(identity.ID, peerID, cursor)
	if err != nil {
		s.log.Error("History query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	response := conversationResponse{
		Messages: lo.Map(messages, func(m repositories.DiskMessage, _ int) storedMessage {
			return storedMessage{
				ID:        m.ID.String(),
				Sender:    m.Sender,
				Recipient: m.Recipient,
				Text:      m.Text,
				File:      m.FileRef,
				CreatedAt: m.At,
			}
		}),
	}
	if len(response.Messages) > 0 {
		response.Cursor = next
	}
	writeJSON(w, http.StatusOK, response)
}

// identityFromRequest resolves the token cookie into a verified identity.
func (s *Server) identityFromRequest(r *http.Request) (domain.Identity, error) {
	cookie, err := r.Cookie("token")
	if err != nil {
		return domain.Identity{}, couriererrors.ErrCredentialAbsent
	}
	return s.resolver.Resolve(cookie.Value)
}

func (s *Server) setTokenCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.opts.SecureCookies,
		SameSite: http.SameSiteNoneMode,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
