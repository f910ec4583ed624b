package live

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mysocial-labs/relay/pkg/cache"
	"github.com/mysocial-labs/relay/pkg/models"
)

type fakeLiveStore struct {
	mu           sync.Mutex
	inserted     []models.WSConnection
	heartbeats   int
	disconnected []uuid.UUID
}

func (f *fakeLiveStore) InsertWSConnection(_ context.Context, c *models.WSConnection) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c.ConnectedAt = time.Now()
	c.LastHeartbeatAt = time.Now()
	f.inserted = append(f.inserted, *c)
	return nil
}

func (f *fakeLiveStore) TouchWSHeartbeat(_ context.Context, _ uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.heartbeats++
	return nil
}

func (f *fakeLiveStore) MarkWSDisconnected(_ context.Context, connectionID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnected = append(f.disconnected, connectionID)
	return nil
}

func (f *fakeLiveStore) heartbeatCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.heartbeats
}

func (f *fakeLiveStore) disconnectCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.disconnected)
}

type gatewayEnv struct {
	gateway *Gateway
	store   *fakeLiveStore
	cache   *cache.Client
	server  *httptest.Server
}

func setupGateway(t *testing.T, user string) *gatewayEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	c := cache.New(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	st := &fakeLiveStore{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	gw := NewGateway(st, c, logger)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			t.Logf("accept error: %v", err)
			return
		}
		gw.HandleConnection(r.Context(), conn, user)
	}))
	t.Cleanup(server.Close)

	return &gatewayEnv{gateway: gw, store: st, cache: c, server: server}
}

func dialGateway(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + server.URL[len("http"):]
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, data, err := conn.Read(ctx)
	require.NoError(t, err)

	var msg map[string]any
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestGatewayConnectionEstablished(t *testing.T) {
	env := setupGateway(t, "0xabc")
	conn := dialGateway(t, env.server)

	msg := readFrame(t, conn)
	assert.Equal(t, "connection.established", msg["type"])
	assert.NotEmpty(t, msg["connection_id"])

	env.store.mu.Lock()
	defer env.store.mu.Unlock()
	require.Len(t, env.store.inserted, 1)
	assert.Equal(t, "0xabc", env.store.inserted[0].UserAddress)
}

func TestGatewayForwardsStream(t *testing.T) {
	env := setupGateway(t, "0xabc")
	ctx := context.Background()

	// Queued before the client connects: delivered on replay.
	offline := []byte(`{"type":"message","conversation_id":"0xabc:0xdef","content":"hi"}`)
	require.NoError(t, env.cache.AppendChatStream(ctx, "0xabc", offline))

	conn := dialGateway(t, env.server)
	readFrame(t, conn) // connection.established

	msg := readFrame(t, conn)
	assert.Equal(t, "message", msg["type"])
	assert.Equal(t, "0xabc:0xdef", msg["conversation_id"])
	assert.Equal(t, "hi", msg["content"])

	// Appended while connected: delivered live.
	live := []byte(`{"type":"message","conversation_id":"0xabc:0xdef","content":"again"}`)
	require.NoError(t, env.cache.AppendChatStream(ctx, "0xabc", live))

	msg = readFrame(t, conn)
	assert.Equal(t, "again", msg["content"])
}

func TestGatewayPingPong(t *testing.T) {
	env := setupGateway(t, "0xabc")
	conn := dialGateway(t, env.server)
	readFrame(t, conn) // connection.established

	writeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, conn.Write(writeCtx, websocket.MessageText, []byte(`{"type":"ping"}`)))

	msg := readFrame(t, conn)
	assert.Equal(t, "pong", msg["type"])

	require.Eventually(t, func() bool {
		return env.store.heartbeatCount() == 1
	}, 2*time.Second, 20*time.Millisecond)
}

func TestGatewayIgnoresInvalidFrames(t *testing.T) {
	env := setupGateway(t, "0xabc")
	conn := dialGateway(t, env.server)
	readFrame(t, conn) // connection.established

	writeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, conn.Write(writeCtx, websocket.MessageText, []byte("not json")))
	require.NoError(t, conn.Write(writeCtx, websocket.MessageText, []byte(`{"type":"ping"}`)))

	// The bad frame is skipped, the ping still answered.
	msg := readFrame(t, conn)
	assert.Equal(t, "pong", msg["type"])
}

func TestGatewayMarksDisconnected(t *testing.T) {
	env := setupGateway(t, "0xabc")
	conn := dialGateway(t, env.server)
	readFrame(t, conn) // connection.established

	require.NoError(t, conn.Close(websocket.StatusNormalClosure, ""))

	require.Eventually(t, func() bool {
		return env.store.disconnectCount() == 1
	}, 3*time.Second, 20*time.Millisecond)
}
