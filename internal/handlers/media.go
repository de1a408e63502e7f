package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/coder/websocket"
	"github.com/pocketbase/pocketbase/core"

	"github.com/damione1/paginated-grid/internal/config"
	"github.com/damione1/paginated-grid/internal/mediasession"
	"github.com/damione1/paginated-grid/internal/models"
	"github.com/damione1/paginated-grid/internal/security"
	"github.com/damione1/paginated-grid/internal/services"
)

// MediaHandler accepts the media session bridge of a call over websocket and
// runs the call session for as long as the bridge stays connected.
type MediaHandler struct {
	calls           *services.CallManager
	grid            config.GridConfig
	publisher       services.SnapshotPublisher
	originValidator *security.OriginValidator
	rateLimiter     *security.RateLimiter
}

func NewMediaHandler(calls *services.CallManager, cfg *config.Config, publisher services.SnapshotPublisher) *MediaHandler {
	return &MediaHandler{
		calls:           calls,
		grid:            cfg.Grid,
		publisher:       publisher,
		originValidator: security.NewOriginValidator(cfg.AllowedOrigins),
		rateLimiter:     security.NewRateLimiter(config.MaxEventsPerSecond, config.RateLimitWindow),
	}
}

func (h *MediaHandler) HandleWebSocket(re *core.RequestEvent) error {
	callID := re.Request.PathValue("callId")
	if err := security.ValidateCallID(callID); err != nil {
		return re.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	conn, err := websocket.Accept(re.Response, re.Request, h.originValidator.GetAcceptOptions())
	if err != nil {
		log.Printf("❌ WebSocket accept failed (call=%s): %v", callID, err)
		return nil
	}

	bridge := mediasession.NewConn(conn, callID, h.rateLimiter)
	defer bridge.Close()

	opts := services.DefaultCallSessionOptions(callID, h.grid)
	opts.Metrics = h.calls.Metrics()
	opts.Publisher = h.publisher
	session := services.NewCallSession(opts, bridge)

	if err := h.calls.Register(session); err != nil {
		log.Printf("⚠️  Rejecting media session (call=%s): %v", callID, err)
		_ = conn.Close(websocket.StatusTryAgainLater, security.SanitizeErrorMessage(err))
		return nil
	}
	defer h.calls.Unregister(session)

	log.Printf("✓ Media session connected: call=%s conn=%s", callID, bridge.ID())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go bridge.WritePump()
	go func() {
		err := bridge.ReadPump(func(ctx context.Context, event *models.MediaEvent) error {
			return session.Push(ctx, event)
		})
		if err != nil && !errors.Is(err, services.ErrSessionClosed) {
			log.Printf("⚠️  Media session read stopped (call=%s): %v", callID, err)
		}
		cancel()
	}()

	if err := session.Run(ctx); err != nil {
		log.Printf("❌ Call session failed (call=%s): %v", callID, err)
		_ = conn.Close(websocket.StatusInternalError, "call session failed")
	}

	log.Printf("✓ Media session disconnected: call=%s conn=%s", callID, bridge.ID())
	return nil
}
