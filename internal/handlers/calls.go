package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pocketbase/pocketbase/core"

	"github.com/damione1/paginated-grid/internal/security"
	"github.com/damione1/paginated-grid/internal/services"
)

type CallHandlers struct {
	calls *services.CallManager
}

func NewCallHandlers(calls *services.CallManager) *CallHandlers {
	return &CallHandlers{calls: calls}
}

type pageRequest struct {
	Page      int    `json:"page"`
	Direction string `json:"direction"`
}

type resizeRequest struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type layersRequest struct {
	Auto bool `json:"auto"`
}

type layerRequest struct {
	Layer int `json:"layer"`
}

// GetCall returns the call snapshot: layout, plan and subscription listing.
func (h *CallHandlers) GetCall(re *core.RequestEvent) error {
	session, err := h.session(re)
	if err != nil {
		return h.fail(re, err)
	}

	snapshot, err := session.Snapshot(re.Request.Context())
	if err != nil {
		return h.fail(re, err)
	}
	return re.JSON(http.StatusOK, snapshot)
}

// SetPage handles {"page": n} or {"direction": "next"|"prev"}.
func (h *CallHandlers) SetPage(re *core.RequestEvent) error {
	session, err := h.session(re)
	if err != nil {
		return h.fail(re, err)
	}

	var req pageRequest
	if err := json.NewDecoder(re.Request.Body).Decode(&req); err != nil {
		return re.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	ctx := re.Request.Context()
	switch {
	case req.Direction == "next":
		err = session.NextPage(ctx)
	case req.Direction == "prev":
		err = session.PrevPage(ctx)
	case req.Direction != "":
		return re.JSON(http.StatusBadRequest, map[string]string{"error": "direction must be next or prev"})
	case req.Page < 1:
		return re.JSON(http.StatusBadRequest, map[string]string{"error": "page must be at least 1"})
	default:
		err = session.SetPage(ctx, req.Page)
	}
	if err != nil {
		return h.fail(re, err)
	}

	return h.respondSnapshot(re, session)
}

// Resize records the container dimensions of the grid.
func (h *CallHandlers) Resize(re *core.RequestEvent) error {
	session, err := h.session(re)
	if err != nil {
		return h.fail(re, err)
	}

	var req resizeRequest
	if err := json.NewDecoder(re.Request.Body).Decode(&req); err != nil {
		return re.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if req.Width < 0 || req.Height < 0 {
		return re.JSON(http.StatusBadRequest, map[string]string{"error": "dimensions must not be negative"})
	}

	session.Resize(req.Width, req.Height)
	return re.NoContent(http.StatusAccepted)
}

// SetAutoLayers toggles automatic receive layers.
func (h *CallHandlers) SetAutoLayers(re *core.RequestEvent) error {
	session, err := h.session(re)
	if err != nil {
		return h.fail(re, err)
	}

	var req layersRequest
	if err := json.NewDecoder(re.Request.Body).Decode(&req); err != nil {
		return re.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	if err := session.SetAutoLayers(re.Request.Context(), req.Auto); err != nil {
		return h.fail(re, err)
	}
	return h.respondSnapshot(re, session)
}

// SetParticipantLayer applies a manual receive layer to one participant.
func (h *CallHandlers) SetParticipantLayer(re *core.RequestEvent) error {
	session, err := h.session(re)
	if err != nil {
		return h.fail(re, err)
	}

	participantID := re.Request.PathValue("participantId")
	if err := security.ValidateParticipantID(participantID); err != nil {
		return re.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	var req layerRequest
	if err := json.NewDecoder(re.Request.Body).Decode(&req); err != nil {
		return re.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	if err := session.SetParticipantLayer(re.Request.Context(), participantID, req.Layer); err != nil {
		return h.fail(re, err)
	}
	return re.NoContent(http.StatusNoContent)
}

func (h *CallHandlers) session(re *core.RequestEvent) (*services.CallSession, error) {
	callID := re.Request.PathValue("callId")
	if err := security.ValidateCallID(callID); err != nil {
		return nil, services.ErrCallNotFound
	}
	return h.calls.Get(callID)
}

func (h *CallHandlers) respondSnapshot(re *core.RequestEvent, session *services.CallSession) error {
	snapshot, err := session.Snapshot(re.Request.Context())
	if err != nil {
		return h.fail(re, err)
	}
	return re.JSON(http.StatusOK, snapshot)
}

func (h *CallHandlers) fail(re *core.RequestEvent, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrCallNotFound), errors.Is(err, services.ErrSessionClosed),
		errors.Is(err, services.ErrParticipantNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrLocalParticipant), errors.Is(err, services.ErrInvalidLayer):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrAutoLayersEnabled):
		status = http.StatusConflict
	}
	return re.JSON(status, map[string]string{"error": security.SanitizeErrorMessage(err)})
}
