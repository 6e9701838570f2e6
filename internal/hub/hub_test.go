package hub

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"launchpad-indexer/internal/cache"
	"launchpad-indexer/internal/domain"
)

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(l)
}

type harness struct {
	hub    *Hub
	server *httptest.Server
	cancel context.CancelFunc
}

func newHarness(t *testing.T, cfg Config, values ValueSource) *harness {
	t.Helper()
	cfg.Logger = quietLogger()
	h := New(cfg, values)
	srv := httptest.NewServer(h)
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)

	t.Cleanup(func() {
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer scancel()
		h.Shutdown(sctx)
		cancel()
		srv.Close()
	})
	return &harness{hub: h, server: srv, cancel: cancel}
}

func (hs *harness) dial(t *testing.T) (*websocket.Conn, string) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(hs.server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	welcome := readMessage(t, conn)
	require.Equal(t, TypeWelcome, welcome["type"])
	id, _ := welcome["sessionId"].(string)
	require.NotEmpty(t, id)
	return conn, id
}

func readMessage(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg map[string]any
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func send(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(v))
}

func subscribe(t *testing.T, conn *websocket.Conn, channels ...string) {
	t.Helper()
	send(t, conn, map[string]any{"type": "subscribe", "channels": channels})
	ack := readMessage(t, conn)
	require.Equal(t, TypeSubscribed, ack["type"])
}

func trade(token, trader string) *domain.TradeEvent {
	return &domain.TradeEvent{
		EventBase: domain.At(1, "0xtx", 0),
		Trade: domain.Trade{
			TokenAddress: token,
			Trader:       trader,
			Side:         domain.TradeSideBuy,
			Price:        decimal.NewFromInt(1),
		},
	}
}

func TestHub_WelcomeAndPing(t *testing.T) {
	hs := newHarness(t, Config{}, nil)
	conn, _ := hs.dial(t)

	send(t, conn, map[string]any{"type": "ping"})
	pong := readMessage(t, conn)
	assert.Equal(t, TypePong, pong["type"])
	assert.NotZero(t, pong["timestamp"])
	assert.Equal(t, 1, hs.hub.Clients())
}

func TestHub_SessionIDsAreUnique(t *testing.T) {
	hs := newHarness(t, Config{}, nil)
	_, a := hs.dial(t)
	_, b := hs.dial(t)
	assert.NotEqual(t, a, b)
}

func TestHub_MalformedMessageKeepsConnection(t *testing.T) {
	hs := newHarness(t, Config{}, nil)
	conn, _ := hs.dial(t)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	msg := readMessage(t, conn)
	assert.Equal(t, TypeError, msg["type"])
	assert.Equal(t, "Invalid message format", msg["message"])

	send(t, conn, map[string]any{"type": "bogus"})
	msg = readMessage(t, conn)
	assert.Equal(t, TypeError, msg["type"])

	send(t, conn, map[string]any{"type": "ping"})
	assert.Equal(t, TypePong, readMessage(t, conn)["type"])
}

func TestHub_TradeDelivery(t *testing.T) {
	hs := newHarness(t, Config{}, nil)
	conn, _ := hs.dial(t)
	subscribe(t, conn, "trades")

	require.NoError(t, hs.hub.Publish(trade("0xAAA", "0x01")))

	msg := readMessage(t, conn)
	assert.Equal(t, "trade", msg["type"])
	data, ok := msg["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "0xAAA", data["token"])
	assert.NotZero(t, msg["timestamp"])
}

func TestHub_TopicIsolation(t *testing.T) {
	hs := newHarness(t, Config{}, nil)
	onlyA, _ := hs.dial(t)
	everything, _ := hs.dial(t)
	subscribe(t, onlyA, "token:0xAAA")
	subscribe(t, everything, "all")

	require.NoError(t, hs.hub.Publish(trade("0xbbb", "0x01")))
	require.NoError(t, hs.hub.Publish(trade("0xaaa", "0x01")))

	first := readMessage(t, everything)["data"].(map[string]any)
	second := readMessage(t, everything)["data"].(map[string]any)
	assert.Equal(t, "0xbbb", first["token"])
	assert.Equal(t, "0xaaa", second["token"])

	got := readMessage(t, onlyA)["data"].(map[string]any)
	assert.Equal(t, "0xaaa", got["token"], "token:0xaaa subscriber never sees 0xbbb")
}

func TestHub_Unsubscribe(t *testing.T) {
	hs := newHarness(t, Config{}, nil)
	conn, _ := hs.dial(t)
	subscribe(t, conn, "trades", "fees")

	send(t, conn, map[string]any{"type": "unsubscribe", "channels": []string{"trades"}})
	assert.Equal(t, TypeUnsubscribed, readMessage(t, conn)["type"])

	require.NoError(t, hs.hub.Publish(trade("0xaaa", "0x01")))
	require.NoError(t, hs.hub.Publish(&domain.FeesCollectedEvent{Fee: domain.FeeCollection{TokenAddress: "0xaaa"}}))

	assert.Equal(t, "fees_collected", readMessage(t, conn)["type"])
}

type stubValues struct {
	price   *cache.Price
	metrics *domain.TokenMetrics
}

func (s stubValues) CachedPrice(_ context.Context, token string) (*cache.Price, bool) {
	if token == "0x01" && s.price != nil {
		return s.price, true
	}
	return nil, false
}

func (s stubValues) CachedMetrics(_ context.Context, token string) (*domain.TokenMetrics, bool) {
	if token == "0x01" && s.metrics != nil {
		return s.metrics, true
	}
	return nil, false
}

func TestHub_GetPriceAndMetrics(t *testing.T) {
	values := stubValues{
		price:   &cache.Price{Price: decimal.RequireFromString("1.5"), UpdatedAt: 9},
		metrics: &domain.TokenMetrics{TokenAddress: "0x01", TradeCount24h: 2},
	}
	hs := newHarness(t, Config{}, values)
	conn, _ := hs.dial(t)

	send(t, conn, map[string]any{"type": "get_price", "token": "0x01"})
	msg := readMessage(t, conn)
	assert.Equal(t, TypePrice, msg["type"])
	assert.Equal(t, "0x01", msg["token"])
	data := msg["data"].(map[string]any)
	assert.Equal(t, "1.5", data["price"])

	send(t, conn, map[string]any{"type": "get_metrics", "token": "0x01"})
	msg = readMessage(t, conn)
	assert.Equal(t, TypeMetrics, msg["type"])
	assert.Equal(t, float64(2), msg["data"].(map[string]any)["tradeCount24h"])

	send(t, conn, map[string]any{"type": "get_price", "token": "0x02"})
	msg = readMessage(t, conn)
	assert.Equal(t, TypePrice, msg["type"])
	assert.Nil(t, msg["data"])
}

func TestHub_OriginCheck(t *testing.T) {
	hs := newHarness(t, Config{AllowedOrigins: []string{"https://app.example"}}, nil)
	url := "ws" + strings.TrimPrefix(hs.server.URL, "http")

	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"https://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"https://app.example"}})
	require.NoError(t, err)
	conn.Close()
}

func TestHub_SlowConsumerIsDisconnected(t *testing.T) {
	h := New(Config{Logger: quietLogger()}, nil)
	slow := newClient(h, "slow", nil, 1)
	fast := newClient(h, "fast", nil, 8)
	h.register(slow)
	h.register(fast)
	slow.subscribe([]string{"all"})
	fast.subscribe([]string{"all"})

	h.deliverEvent(trade("0x01", "0x02"))
	h.deliverEvent(trade("0x01", "0x02"))

	assert.Equal(t, 1, h.Clients())
	_, ok := h.clients.Load("slow")
	assert.False(t, ok)
	assert.Len(t, fast.send, 2, "fast client unaffected")
	assert.False(t, slow.enqueue([]byte("x")), "closed queue rejects messages")
}

func TestHub_ShutdownDrainsBroadcasts(t *testing.T) {
	cfg := Config{Logger: quietLogger()}
	h := New(cfg, nil)
	srv := httptest.NewServer(h)
	defer srv.Close()
	go h.Run(context.Background())

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	readMessage(t, conn)
	subscribe(t, conn, "all")

	require.NoError(t, h.Publish(trade("0x01", "0x02")))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, h.Shutdown(ctx))

	assert.Equal(t, "trade", readMessage(t, conn)["type"])
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)

	assert.ErrorIs(t, h.Publish(trade("0x01", "0x02")), ErrClosed)
	assert.NoError(t, h.Handle(context.Background(), trade("0x01", "0x02")))
}
