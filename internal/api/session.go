package api

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"possync/m/internal/auth"
)

// Auth handlers

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string       `json:"access_token"`
	Session     auth.Session `json:"session"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	session, err := h.session.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		var apiErr *auth.APIError
		if errors.As(err, &apiErr) && apiErr.Rejected() {
			respondError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		h.log.Error("login failed", zap.Error(err))
		respondError(w, http.StatusBadGateway, "unable to reach auth service")
		return
	}
	respondJSON(w, http.StatusOK, loginResponse{AccessToken: session.AccessToken, Session: session})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	if err := h.session.Logout(r.Context()); err != nil {
		h.respondServiceError(w, r, err, "unable to sign out")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "signed out"})
}

// Sync handlers

func (h *Handler) flushSync(w http.ResponseWriter, r *http.Request) {
	res, err := h.sync.Flush(r.Context())
	if err != nil {
		respondJSON(w, http.StatusBadGateway, map[string]any{
			"error":  err.Error(),
			"result": res,
		})
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (h *Handler) syncStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.sync.Status(r.Context())
	if err != nil {
		h.respondServiceError(w, r, err, "unable to read sync status")
		return
	}
	respondJSON(w, http.StatusOK, status)
}
