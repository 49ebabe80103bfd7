package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/estimaite/internal/models"
	"github.com/zulandar/estimaite/internal/room"
)

// Action names accepted by POST /api/rooms/:id/actions.
const (
	actionJoin     = "join"
	actionLeave    = "leave"
	actionSetReady = "set-ready"
)

type actionRequest struct {
	Action          string        `json:"action"`
	ParticipantID   string        `json:"participantId"`
	ParticipantName string        `json:"participantName"`
	SessionID       string        `json:"sessionId"`
	Story           *models.Story `json:"story"`
	Estimate        *float64      `json:"estimate"`
	Ready           *bool         `json:"ready"`
}

// action runs one room operation. Every action first applies a pending timer
// reveal, so an expired round is announced before the action's own event.
func (h *handler) action(c *gin.Context) {
	var req actionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	code := roomCode(c)
	found, recovered := h.rooms.Resolve(code)
	if !found {
		abortError(c, http.StatusNotFound, "Room not found. Please check the room code.")
		return
	}
	if recovered {
		h.log.Info().Str("room", code).Str("action", req.Action).Msg("room recovered for action")
	}

	ctx := c.Request.Context()
	h.rooms.CheckTimer(ctx, code)

	switch req.Action {
	case actionJoin:
		h.join(c, code, req)
		return
	case actionLeave:
		if req.ParticipantID == "" {
			abortError(c, http.StatusBadRequest, "Participant ID is required")
			return
		}
		h.respond(c, code, h.rooms.Leave(ctx, code, req.ParticipantID), "Failed to leave room")
	case string(room.ActionSubmitStory):
		if req.Story == nil || strings.TrimSpace(req.Story.Title) == "" || req.ParticipantID == "" {
			abortError(c, http.StatusBadRequest, "Story and participant ID are required")
			return
		}
		if !h.permitted(c, code, room.ActionSubmitStory, req.ParticipantID) {
			return
		}
		h.respond(c, code, h.rooms.SubmitStory(ctx, code, req.ParticipantID, *req.Story), "Failed to submit story")
	case string(room.ActionSubmitEstimate):
		if req.Estimate == nil || req.ParticipantID == "" {
			abortError(c, http.StatusBadRequest, "Estimate and participant ID are required")
			return
		}
		if !models.ValidEstimate(*req.Estimate) {
			abortError(c, http.StatusBadRequest, "Estimate is not a card in the deck")
			return
		}
		if !h.permitted(c, code, room.ActionSubmitEstimate, req.ParticipantID) {
			return
		}
		h.respond(c, code, h.rooms.SubmitEstimate(ctx, code, req.ParticipantID, *req.Estimate), "Failed to submit estimate")
	case string(room.ActionReveal):
		if !h.permitted(c, code, room.ActionReveal, req.ParticipantID) {
			return
		}
		h.respond(c, code, h.rooms.Reveal(ctx, code, req.ParticipantID), "Failed to reveal estimates")
	case string(room.ActionReset):
		if !h.permitted(c, code, room.ActionReset, req.ParticipantID) {
			return
		}
		h.respond(c, code, h.rooms.Reset(ctx, code, req.ParticipantID), "Failed to reset estimates")
	case string(room.ActionClear):
		if !h.permitted(c, code, room.ActionClear, req.ParticipantID) {
			return
		}
		h.respond(c, code, h.rooms.Clear(ctx, code, req.ParticipantID), "Failed to clear story and reset")
	case actionSetReady:
		if req.ParticipantID == "" || req.Ready == nil {
			abortError(c, http.StatusBadRequest, "Participant ID and ready flag are required")
			return
		}
		h.respond(c, code, h.rooms.SetReady(ctx, code, req.ParticipantID, *req.Ready), "Failed to update participant")
	default:
		abortError(c, http.StatusBadRequest, "Invalid action")
	}
}

func (h *handler) join(c *gin.Context, code string, req actionRequest) {
	if strings.TrimSpace(req.ParticipantName) == "" {
		abortError(c, http.StatusBadRequest, "Participant name is required")
		return
	}
	res, ok := h.rooms.Join(c.Request.Context(), code, room.JoinRequest{
		Name:      req.ParticipantName,
		SessionID: req.SessionID,
	})
	if !ok {
		abortError(c, http.StatusInternalServerError, "Failed to join room")
		return
	}
	snap, _ := h.rooms.Store().Snapshot(code)
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"participant": res.Participant,
		"roomState":   snap,
		"isModerator": res.IsModerator,
		"isNew":       res.IsNew,
	})
}

// permitted writes a 403 and returns false when the room policy denies the
// action.
func (h *handler) permitted(c *gin.Context, code string, action room.Action, actorID string) bool {
	if h.rooms.Store().Allowed(code, action, actorID) {
		return true
	}
	abortError(c, http.StatusForbidden, "Not allowed to "+strings.ReplaceAll(string(action), "-", " "))
	return false
}

func (h *handler) respond(c *gin.Context, code string, ok bool, failure string) {
	if !ok {
		abortError(c, http.StatusInternalServerError, failure)
		return
	}
	snap, _ := h.rooms.Store().Snapshot(code)
	c.JSON(http.StatusOK, gin.H{"success": true, "roomState": snap})
}
