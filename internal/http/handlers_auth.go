package http

import (
	"net/http"
	"time"
)

type userResponse struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	FullName  string `json:"full_name"`
	CreatedAt string `json:"created_at"`
}

type sessionResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type resetRequest struct {
	Email string `json:"email"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	session, err := s.sessions.Register(r.Context(), sanitizeInput(req.Email), req.Password, sanitizeInput(req.FullName))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, sessionResponse{
		Token: session.Token,
		User: userResponse{
			ID:        session.User.ID,
			Email:     session.User.Email,
			FullName:  session.User.FullName,
			CreatedAt: session.User.CreatedAt.Format(time.RFC3339),
		},
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	session, err := s.sessions.Login(r.Context(), sanitizeInput(req.Email), req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{
		Token: session.Token,
		User: userResponse{
			ID:        session.User.ID,
			Email:     session.User.Email,
			FullName:  session.User.FullName,
			CreatedAt: session.User.CreatedAt.Format(time.RFC3339),
		},
	})
}

// handleLogout only acknowledges. Tokens are self-contained and session
// material lives on the client, so there is no server state to clear.
func (s *Server) handleLogout(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handlePasswordReset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	ack := s.sessions.RequestPasswordReset(r.Context(), sanitizeInput(req.Email))
	writeJSON(w, http.StatusOK, ack)
}

// handleMe answers with the account embedded in the caller's own token.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := s.sessions.UserByID(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, userResponse{
		ID:        user.ID,
		Email:     user.Email,
		FullName:  user.FullName,
		CreatedAt: user.CreatedAt.Format(time.RFC3339),
	})
}
