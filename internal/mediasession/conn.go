package mediasession

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/damione1/paginated-grid/internal/config"
	"github.com/damione1/paginated-grid/internal/models"
	"github.com/damione1/paginated-grid/internal/security"
	"github.com/damione1/paginated-grid/internal/services"
)

var (
	ErrConnClosed     = errors.New("media session connection closed")
	ErrSendBufferFull = errors.New("media session send buffer full")
)

// EventSink receives decoded, validated events in arrival order.
type EventSink func(ctx context.Context, event *models.MediaEvent) error

// Conn is a media session bridge connected over a websocket. It implements
// services.MediaSession for the outbound direction.
type Conn struct {
	id      string
	callID  string
	conn    *websocket.Conn
	send    chan []byte
	limiter *security.RateLimiter

	// Lifecycle
	ctx     context.Context
	cancel  context.CancelFunc
	closed  bool
	closeMu sync.Mutex
}

var _ services.MediaSession = (*Conn)(nil)

// NewConn wraps an accepted websocket. limiter may be shared between
// connections.
func NewConn(conn *websocket.Conn, callID string, limiter *security.RateLimiter) *Conn {
	ctx, cancel := context.WithCancel(context.Background())

	return &Conn{
		id:      uuid.NewString(),
		callID:  callID,
		conn:    conn,
		send:    make(chan []byte, config.BridgeSendBufferSize),
		limiter: limiter,
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (c *Conn) ID() string {
	return c.id
}

// Done is closed when the connection shuts down.
func (c *Conn) Done() <-chan struct{} {
	return c.ctx.Done()
}

// UpdateParticipants queues a subscription command.
func (c *Conn) UpdateParticipants(ctx context.Context, updates map[string]models.ParticipantUpdate) error {
	return c.enqueue(ctx, &models.MediaCommand{
		Type:    models.CmdUpdateParticipants,
		Updates: updates,
	})
}

// UpdateReceiveSettings queues a receive-layer command.
func (c *Conn) UpdateReceiveSettings(ctx context.Context, settings models.ReceiveSettingsMap) error {
	return c.enqueue(ctx, &models.MediaCommand{
		Type:            models.CmdUpdateReceiveSettings,
		ReceiveSettings: settings,
	})
}

func (c *Conn) enqueue(ctx context.Context, cmd *models.MediaCommand) error {
	data, err := EncodeCommand(cmd)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	c.closeMu.Lock()
	defer c.closeMu.Unlock()

	if c.closed {
		return ErrConnClosed
	}

	select {
	case c.send <- data:
		return nil
	default:
		// Channel full, bridge is too slow
		log.Printf("⚠️  Send buffer full, dropping %s (call=%s, conn=%s)", cmd.Type, c.callID, c.id)
		return ErrSendBufferFull
	}
}

// WritePump delivers queued commands and keeps the connection alive.
func (c *Conn) WritePump() {
	ticker := time.NewTicker(config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				return
			}

			writeCtx, cancel := context.WithTimeout(c.ctx, config.WriteTimeout)
			err := c.conn.Write(writeCtx, websocket.MessageText, message)
			cancel()

			if err != nil {
				log.Printf("❌ Write error (call=%s, conn=%s): %v", c.callID, c.id, err)
				return
			}

		case <-ticker.C:
			// Ping blocks until the pong arrives.
			pingCtx, cancel := context.WithTimeout(c.ctx, config.WriteTimeout)
			err := c.conn.Ping(pingCtx)
			cancel()

			if err != nil {
				log.Printf("❌ Ping error (call=%s, conn=%s): %v", c.callID, c.id, err)
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// ReadPump decodes inbound frames and hands valid events to sink until the
// connection closes or sink fails. Malformed events and over-budget track
// events are logged and skipped.
func (c *Conn) ReadPump(sink EventSink) error {
	defer c.Close()

	for {
		typ, data, err := c.conn.Read(c.ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure || c.ctx.Err() != nil {
				return nil
			}
			log.Printf("❌ Read error (call=%s, conn=%s): %v", c.callID, c.id, err)
			return err
		}

		event, err := DecodeEvent(typ, data)
		if err != nil {
			log.Printf("⚠️  Dropping undecodable event (call=%s): %v", c.callID, err)
			continue
		}
		if err := security.ValidateMediaEvent(event); err != nil {
			log.Printf("⚠️  Dropping invalid %q event (call=%s): %v", event.Action, c.callID, err)
			continue
		}

		// Only track events are throttled: every other action is a store
		// transition and must never be lost.
		if security.IsThrottledEventAction(event.Action) && c.limiter != nil && !c.limiter.Allow(c.id) {
			log.Printf("⚠️  Rate limit exceeded, dropping %q (call=%s, conn=%s)", event.Action, c.callID, c.id)
			continue
		}

		if err := sink(c.ctx, event); err != nil {
			return err
		}
	}
}

// Close cleanly shuts down the connection. Idempotent.
func (c *Conn) Close() {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()

	if c.closed {
		return
	}

	c.closed = true
	c.cancel()
	close(c.send)
	if c.limiter != nil {
		c.limiter.Remove(c.id)
	}
	_ = c.conn.Close(websocket.StatusNormalClosure, "")
}
