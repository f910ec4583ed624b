// Package live is the WebSocket gateway. Each authenticated connection
// gets a pump that tails the user's chat stream and forwards entries as
// text frames, plus a read loop for heartbeats.
package live

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/mysocial-labs/relay/pkg/cache"
	"github.com/mysocial-labs/relay/pkg/models"
)

const (
	// streamBlock bounds each XREAD so the pump notices a cancelled
	// connection within a second.
	streamBlock = 1 * time.Second

	// reconnectDelay throttles pump retries when the cache is down.
	reconnectDelay = 1 * time.Second

	writeTimeout = 10 * time.Second
)

// Cache is the stream surface the gateway tails.
type Cache interface {
	ReadChatStream(ctx context.Context, user, lastID string, block time.Duration) ([]cache.StreamEntry, error)
}

// Store tracks connection rows for observability.
type Store interface {
	InsertWSConnection(ctx context.Context, c *models.WSConnection) error
	TouchWSHeartbeat(ctx context.Context, connectionID uuid.UUID) error
	MarkWSDisconnected(ctx context.Context, connectionID uuid.UUID) error
}

// Gateway manages live WebSocket sessions.
type Gateway struct {
	store  Store
	cache  Cache
	logger *slog.Logger
}

func NewGateway(st Store, c Cache, logger *slog.Logger) *Gateway {
	return &Gateway{
		store:  st,
		cache:  c,
		logger: logger.With("component", "live"),
	}
}

type clientFrame struct {
	Type string `json:"type"`
}

// HandleConnection runs one session until either pump exits. The caller
// has already authenticated the user and upgraded the connection.
func (g *Gateway) HandleConnection(parentCtx context.Context, conn *websocket.Conn, userAddress string) {
	connID := uuid.New()
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	logger := g.logger.With("connection_id", connID, "user", userAddress)

	row := &models.WSConnection{ConnectionID: connID, UserAddress: userAddress}
	if err := g.store.InsertWSConnection(ctx, row); err != nil {
		logger.Warn("failed to record connection", "error", err)
	}
	defer func() {
		// The session ctx is already cancelled by the time this runs.
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer closeCancel()
		if err := g.store.MarkWSDisconnected(closeCtx, connID); err != nil {
			logger.Warn("failed to mark connection disconnected", "error", err)
		}
		_ = conn.Close(websocket.StatusNormalClosure, "")
	}()

	g.sendJSON(ctx, conn, map[string]string{
		"type":          "connection.established",
		"connection_id": connID.String(),
	})

	// Outbound pump. Cancels the session when it exits so the read loop
	// unblocks too.
	go func() {
		defer cancel()
		g.streamPump(ctx, conn, userAddress, logger)
	}()

	g.readLoop(ctx, conn, connID, logger)
	cancel()
}

// streamPump tails STREAM:CHAT:{user} and forwards each entry's data
// field as a text frame. Starts at "0" so messages queued while the
// user was offline are delivered first.
func (g *Gateway) streamPump(ctx context.Context, conn *websocket.Conn, userAddress string, logger *slog.Logger) {
	lastID := "0"
	for {
		if ctx.Err() != nil {
			return
		}

		entries, err := g.cache.ReadChatStream(ctx, userAddress, lastID, streamBlock)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn("chat stream read failed, retrying", "error", err)
			if !sleepCtx(ctx, reconnectDelay) {
				return
			}
			continue
		}

		for _, entry := range entries {
			lastID = entry.ID
			if len(entry.Data) == 0 {
				continue
			}
			if err := g.write(ctx, conn, entry.Data); err != nil {
				logger.Debug("client write failed, closing", "error", err)
				return
			}
		}
	}
}

// readLoop handles inbound frames. Pings touch the heartbeat row and
// get a pong; anything else is ignored. A read error means the client
// went away.
func (g *Gateway) readLoop(ctx context.Context, conn *websocket.Conn, connID uuid.UUID, logger *slog.Logger) {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}

		var frame clientFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			logger.Warn("invalid client frame", "error", err)
			continue
		}

		if frame.Type == "ping" {
			if err := g.store.TouchWSHeartbeat(ctx, connID); err != nil {
				logger.Warn("heartbeat update failed", "error", err)
			}
			g.sendJSON(ctx, conn, map[string]string{"type": "pong"})
		}
	}
}

func (g *Gateway) sendJSON(ctx context.Context, conn *websocket.Conn, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		g.logger.Warn("failed to marshal frame", "error", err)
		return
	}
	if err := g.write(ctx, conn, data); err != nil {
		g.logger.Debug("failed to send frame", "error", err)
	}
}

func (g *Gateway) write(ctx context.Context, conn *websocket.Conn, data []byte) error {
	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
