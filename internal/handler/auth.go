package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dapperAuteur/my-health-blueprint/internal/email"
	"github.com/dapperAuteur/my-health-blueprint/internal/store"
)

type AuthHandler struct {
	userStore   *store.UserStore
	tokenStore  *store.TokenStore
	emailClient *email.Client
	logger      *slog.Logger
}

func NewAuthHandler(us *store.UserStore, ts *store.TokenStore, ec *email.Client, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		userStore:   us,
		tokenStore:  ts,
		emailClient: ec,
		logger:      logger,
	}
}

type magicLinkRequest struct {
	Email string `json:"email"`
}

// MagicLink finds or creates the user for the given email, mints a one-hour
// single-use token, and mails the link. If the mail fails after the token
// was created, the token is left valid and unused; there is no rollback.
func (h *AuthHandler) MagicLink(w http.ResponseWriter, r *http.Request) {
	var req magicLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	addr := strings.TrimSpace(req.Email)
	if addr == "" || !strings.Contains(addr, "@") {
		writeError(w, http.StatusBadRequest, "valid email is required")
		return
	}

	user, err := h.userStore.FindOrCreate(addr)
	if err != nil {
		h.logger.Error("find or create user", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to send magic link")
		return
	}

	mt, err := h.tokenStore.Create(user.ID)
	if err != nil {
		h.logger.Error("create magic token", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to send magic link")
		return
	}

	if h.emailClient.Configured() {
		if err := h.emailClient.SendBlueprintLink(r.Context(), addr, mt.Token); err != nil {
			h.logger.Error("send magic link", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to send magic link")
			return
		}
	} else {
		// Dev mode without a Postmark token: surface the link in the log
		h.logger.Info("magic link token generated", "email", addr, "token", mt.Token)
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

type verifyRequest struct {
	Token string `json:"token"`
}

// Verify consumes the token and returns its owner's user id. Consumption is
// atomic and destructive: the first verify wins, any repeat fails.
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	userID, err := h.tokenStore.Consume(req.Token, time.Now().UTC())
	if err != nil {
		h.logger.Error("consume magic token", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to verify token")
		return
	}
	if userID == "" {
		writeError(w, http.StatusBadRequest, "invalid or expired token")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "userId": userID})
}
