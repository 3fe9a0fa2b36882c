package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dapperAuteur/my-health-blueprint/internal/model"
	"github.com/dapperAuteur/my-health-blueprint/internal/store"
	"github.com/dapperAuteur/my-health-blueprint/internal/websocket"
)

type BlueprintHandler struct {
	blueprintStore *store.BlueprintStore
	hub            *websocket.Hub
	logger         *slog.Logger
}

func NewBlueprintHandler(bs *store.BlueprintStore, hub *websocket.Hub, logger *slog.Logger) *BlueprintHandler {
	return &BlueprintHandler{blueprintStore: bs, hub: hub, logger: logger}
}

// Get returns the owner's blueprint with the goal columns reshaped back into
// the nested healthGoals group, or 404 if nothing has been saved yet.
func (h *BlueprintHandler) Get(w http.ResponseWriter, r *http.Request) {
	b, err := h.blueprintStore.GetByUserID(r.PathValue("userId"))
	if err != nil {
		h.logger.Error("get blueprint", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch health blueprint")
		return
	}
	if b == nil {
		writeError(w, http.StatusNotFound, "blueprint not found")
		return
	}

	writeJSON(w, http.StatusOK, b)
}

// Save validates the payload and replaces the owner's draft in full. Both
// autosaves and the final submission land here; the latter carries
// completedAt. Connected tabs of the same user are notified on success.
func (h *BlueprintHandler) Save(w http.ResponseWriter, r *http.Request) {
	var in model.BlueprintInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if err := in.Validate(); err != nil {
		var ve *model.ValidationError
		if errors.As(err, &ve) {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":  "validation failed",
				"fields": ve.Fields,
			})
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	b, err := h.blueprintStore.Upsert(&in)
	if err != nil {
		h.logger.Error("save blueprint", "error", err, "user_id", in.UserID)
		writeError(w, http.StatusInternalServerError, "failed to save health blueprint")
		return
	}

	h.hub.Notify(b.UserID, websocket.SavedMessage(b.UserID, b.LastSavedAt, b.CompletedAt != nil))

	writeJSON(w, http.StatusOK, b)
}
