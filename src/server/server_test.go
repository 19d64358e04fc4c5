package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"trade-orders/src/config"
	"trade-orders/src/interfaces"
	"trade-orders/src/interfaces/mock"
	"trade-orders/src/logger"
	"trade-orders/src/models"
	"trade-orders/src/notification"
	"trade-orders/src/service"
	"trade-orders/src/storage"
)

type testEnv struct {
	server *httptest.Server
	hub    *notification.Hub
}

func newTestEnvWithStore(t *testing.T, store interfaces.IOrderStore) *testEnv {
	t.Helper()
	cfg := config.Default().MConfig
	log := logger.NewNopLogger()

	hub := notification.NewHub(log)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	svc := service.NewOrderService(store, hub, nil, log)
	srv := httptest.NewServer(NewHTTPServer(cfg, svc, hub, log).Handler())

	t.Cleanup(func() {
		srv.Close()
		cancel()
		<-hub.Stopped()
	})
	return &testEnv{server: srv, hub: hub}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := config.Default().MConfig
	cfg.Storage.DBPath = filepath.Join(t.TempDir(), "orders.db")

	store := storage.NewSQLiteOrderStore(cfg, logger.NewNopLogger())
	require.NoError(t, store.Initialize(context.Background()))
	t.Cleanup(func() { store.Close() })

	return newTestEnvWithStore(t, store)
}

// -----------------------------------------------------------------------------

func (e *testEnv) do(t *testing.T, method, path string, body string) (int, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, e.server.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, buf.Bytes()
}

// dial opens a /ws connection and waits until the hub has registered it.
func (e *testEnv) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	before := e.hub.Count()

	url := "ws" + strings.TrimPrefix(e.server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool { return e.hub.Count() == before+1 }, 2*time.Second, 5*time.Millisecond)
	return conn
}

func readText(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	kind, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, kind)
	return string(data)
}

func decodeOrder(t *testing.T, body []byte) models.MOrder {
	t.Helper()
	var order models.MOrder
	require.NoError(t, json.Unmarshal(body, &order))
	return order
}

type detailBody struct {
	Detail []errorDetail `json:"detail"`
}

// -----------------------------------------------------------------------------

func TestRoot(t *testing.T) {
	env := newTestEnv(t)

	status, body := env.do(t, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"message":"Welcome to Trade Orders API"}`, string(body))
}

func TestCreateOrder_NotifiesSubscriber(t *testing.T) {
	env := newTestEnv(t)
	conn := env.dial(t)

	status, body := env.do(t, http.MethodPost, "/orders", `{"symbol":"AAPL","price":150.50,"quantity":100,"order_type":"BUY"}`)
	require.Equal(t, http.StatusOK, status, string(body))

	order := decodeOrder(t, body)
	assert.Equal(t, int64(1), order.ID)
	assert.Equal(t, "AAPL", order.Symbol)
	assert.Equal(t, 150.5, order.Price)
	assert.Equal(t, int64(100), order.Quantity)
	assert.Equal(t, models.OrderTypeBuy, order.OrderType)
	assert.False(t, order.CreatedAt.IsZero())
	assert.Nil(t, order.UpdatedAt)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(body, &raw))
	assert.Contains(t, raw, "updated_at")
	assert.Nil(t, raw["updated_at"])

	assert.Equal(t, "New order created: AAPL - BUY - 100 @ 150.5", readText(t, conn))
}

func TestCreateOrder_SymbolWithDot(t *testing.T) {
	env := newTestEnv(t)
	conn := env.dial(t)

	status, body := env.do(t, http.MethodPost, "/orders", `{"symbol":"BRK.A","price":500000,"quantity":1,"order_type":"SELL"}`)
	require.Equal(t, http.StatusOK, status, string(body))
	assert.Equal(t, "BRK.A", decodeOrder(t, body).Symbol)

	assert.Equal(t, "New order created: BRK.A - SELL - 1 @ 500000.0", readText(t, conn))
}

func TestCreateOrder_Validation(t *testing.T) {
	testCases := []struct {
		name    string
		body    string
		wantLoc []string
	}{
		{name: "zero price", body: `{"symbol":"AAPL","price":0,"quantity":100,"order_type":"BUY"}`, wantLoc: []string{"body", "price"}},
		{name: "negative price", body: `{"symbol":"AAPL","price":-1,"quantity":100,"order_type":"BUY"}`, wantLoc: []string{"body", "price"}},
		{name: "negative quantity", body: `{"symbol":"AAPL","price":1,"quantity":-5,"order_type":"BUY"}`, wantLoc: []string{"body", "quantity"}},
		{name: "unknown order type", body: `{"symbol":"AAPL","price":1,"quantity":5,"order_type":"HOLD"}`, wantLoc: []string{"body", "order_type"}},
		{name: "missing symbol", body: `{"price":1,"quantity":5,"order_type":"SELL"}`, wantLoc: []string{"body", "symbol"}},
		{name: "price not a number", body: `{"symbol":"AAPL","price":"abc","quantity":5,"order_type":"SELL"}`, wantLoc: []string{"body", "price"}},
		{name: "fractional quantity", body: `{"symbol":"AAPL","price":1,"quantity":1.5,"order_type":"SELL"}`, wantLoc: []string{"body", "quantity"}},
		{name: "malformed json", body: `{"symbol":`, wantLoc: nil},
	}

	env := newTestEnv(t)
	conn := env.dial(t)

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := env.do(t, http.MethodPost, "/orders", tc.body)
			require.Equal(t, http.StatusUnprocessableEntity, status, string(body))

			var detail detailBody
			require.NoError(t, json.Unmarshal(body, &detail))
			require.NotEmpty(t, detail.Detail)
			if tc.wantLoc != nil {
				assert.Equal(t, tc.wantLoc, detail.Detail[0].Loc)
			}
		})
	}

	// Nothing was stored and nothing was broadcast
	status, body := env.do(t, http.MethodGet, "/orders", "")
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[]`, string(body))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

func TestCreateOrder_EmptyBody(t *testing.T) {
	env := newTestEnv(t)

	status, _ := env.do(t, http.MethodPost, "/orders", "")
	assert.Equal(t, http.StatusUnprocessableEntity, status)
}

func TestCreateOrder_StoreFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mock.NewMockIOrderStore(ctrl)
	store.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(nil, errors.New("disk full"))

	env := newTestEnvWithStore(t, store)
	conn := env.dial(t)

	status, body := env.do(t, http.MethodPost, "/orders", `{"symbol":"AAPL","price":1,"quantity":1,"order_type":"BUY"}`)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.JSONEq(t, `{"detail":"Internal Server Error"}`, string(body))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err, "no broadcast after a failed insert")
}

// -----------------------------------------------------------------------------

func TestGetOrder(t *testing.T) {
	env := newTestEnv(t)

	_, body := env.do(t, http.MethodPost, "/orders", `{"symbol":"TSLA","price":900,"quantity":3,"order_type":"SELL"}`)
	created := decodeOrder(t, body)

	status, body := env.do(t, http.MethodGet, "/orders/1", "")
	require.Equal(t, http.StatusOK, status)
	got := decodeOrder(t, body)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "TSLA", got.Symbol)
	assert.Equal(t, 900.0, got.Price)
	assert.Equal(t, int64(3), got.Quantity)
	assert.Equal(t, models.OrderTypeSell, got.OrderType)
	assert.True(t, created.CreatedAt.Equal(got.CreatedAt))
}

func TestGetOrder_NotFound(t *testing.T) {
	env := newTestEnv(t)

	status, body := env.do(t, http.MethodGet, "/orders/999", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.JSONEq(t, `{"detail":"Order not found"}`, string(body))
}

func TestGetOrder_BadID(t *testing.T) {
	env := newTestEnv(t)

	status, body := env.do(t, http.MethodGet, "/orders/abc", "")
	require.Equal(t, http.StatusUnprocessableEntity, status)

	var detail detailBody
	require.NoError(t, json.Unmarshal(body, &detail))
	require.Len(t, detail.Detail, 1)
	assert.Equal(t, []string{"path", "order_id"}, detail.Detail[0].Loc)
	assert.Equal(t, "type_error.integer", detail.Detail[0].Type)
}

// -----------------------------------------------------------------------------

func TestListOrders_Pagination(t *testing.T) {
	env := newTestEnv(t)
	for _, sym := range []string{"AAPL", "MSFT", "GOOG"} {
		status, _ := env.do(t, http.MethodPost, "/orders", `{"symbol":"`+sym+`","price":10,"quantity":1,"order_type":"BUY"}`)
		require.Equal(t, http.StatusOK, status)
	}

	list := func(query string) []models.MOrder {
		status, body := env.do(t, http.MethodGet, "/orders"+query, "")
		require.Equal(t, http.StatusOK, status, string(body))
		var orders []models.MOrder
		require.NoError(t, json.Unmarshal(body, &orders))
		return orders
	}

	all := list("")
	require.Len(t, all, 3)
	assert.Equal(t, "AAPL", all[0].Symbol)
	assert.Equal(t, "GOOG", all[2].Symbol)

	page := list("?skip=1&limit=1")
	require.Len(t, page, 1)
	assert.Equal(t, int64(2), page[0].ID)

	assert.Equal(t, list("?skip=1&limit=1"), page, "repeated reads are identical")
	assert.Empty(t, list("?skip=10"))
}

func TestListOrders_BadQuery(t *testing.T) {
	testCases := []struct {
		name    string
		query   string
		wantLoc []string
	}{
		{name: "skip not integer", query: "?skip=abc", wantLoc: []string{"query", "skip"}},
		{name: "limit not integer", query: "?limit=1.5", wantLoc: []string{"query", "limit"}},
		{name: "negative skip", query: "?skip=-1", wantLoc: []string{"query", "skip"}},
		{name: "negative limit", query: "?limit=-3", wantLoc: []string{"query", "limit"}},
	}

	env := newTestEnv(t)
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := env.do(t, http.MethodGet, "/orders"+tc.query, "")
			require.Equal(t, http.StatusUnprocessableEntity, status, string(body))

			var detail detailBody
			require.NoError(t, json.Unmarshal(body, &detail))
			require.NotEmpty(t, detail.Detail)
			assert.Equal(t, tc.wantLoc, detail.Detail[0].Loc)
		})
	}
}

// -----------------------------------------------------------------------------

func TestUpdateOrder(t *testing.T) {
	env := newTestEnv(t)
	conn := env.dial(t)

	status, _ := env.do(t, http.MethodPost, "/orders", `{"symbol":"AAPL","price":150.5,"quantity":100,"order_type":"BUY"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "New order created: AAPL - BUY - 100 @ 150.5", readText(t, conn))

	status, body := env.do(t, http.MethodPut, "/orders/1", `{"symbol":"AAPL","price":151,"quantity":50,"order_type":"SELL"}`)
	require.Equal(t, http.StatusOK, status, string(body))
	updated := decodeOrder(t, body)
	assert.Equal(t, int64(1), updated.ID)
	assert.Equal(t, 151.0, updated.Price)
	assert.Equal(t, int64(50), updated.Quantity)
	assert.Equal(t, models.OrderTypeSell, updated.OrderType)
	require.NotNil(t, updated.UpdatedAt)

	// Updates are silent: the next notification is the following creation
	status, _ = env.do(t, http.MethodPost, "/orders", `{"symbol":"MSFT","price":300,"quantity":2,"order_type":"BUY"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "New order created: MSFT - BUY - 2 @ 300.0", readText(t, conn))
}

func TestUpdateOrder_Missing(t *testing.T) {
	env := newTestEnv(t)

	status, body := env.do(t, http.MethodPut, "/orders/42", `{"symbol":"AAPL","price":1,"quantity":1,"order_type":"BUY"}`)
	assert.Equal(t, http.StatusNotFound, status)
	assert.JSONEq(t, `{"detail":"Order not found"}`, string(body))
}

func TestUpdateOrder_Validation(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/orders", `{"symbol":"AAPL","price":1,"quantity":1,"order_type":"BUY"}`)

	status, _ := env.do(t, http.MethodPut, "/orders/1", `{"symbol":"AAPL","price":1,"quantity":0,"order_type":"BUY"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
}

// -----------------------------------------------------------------------------

func TestWebSocket_InboundEchoedToEveryone(t *testing.T) {
	env := newTestEnv(t)
	first := env.dial(t)
	second := env.dial(t)

	require.NoError(t, first.WriteMessage(websocket.TextMessage, []byte("ping")))

	assert.Equal(t, "Order update: ping", readText(t, first))
	assert.Equal(t, "Order update: ping", readText(t, second))
}

func TestWebSocket_PerConnectionOrder(t *testing.T) {
	env := newTestEnv(t)
	sender := env.dial(t)
	listener := env.dial(t)

	const n = 20
	for i := 0; i < n; i++ {
		require.NoError(t, sender.WriteMessage(websocket.TextMessage, []byte{byte('a' + i)}))
	}

	for i := 0; i < n; i++ {
		want := "Order update: " + string(rune('a'+i))
		assert.Equal(t, want, readText(t, listener))
		assert.Equal(t, want, readText(t, sender))
	}
}

func TestWebSocket_DisconnectUnregisters(t *testing.T) {
	env := newTestEnv(t)
	staying := env.dial(t)
	leaving := env.dial(t)
	require.Equal(t, 2, env.hub.Count())

	require.NoError(t, leaving.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	leaving.Close()
	require.Eventually(t, func() bool { return env.hub.Count() == 1 }, 2*time.Second, 5*time.Millisecond)

	status, _ := env.do(t, http.MethodPost, "/orders", `{"symbol":"AAPL","price":2,"quantity":1,"order_type":"BUY"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "New order created: AAPL - BUY - 1 @ 2.0", readText(t, staying))
}

// -----------------------------------------------------------------------------

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	env.dial(t)

	status, body := env.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"ok","connections":1}`, string(body))
}

func TestCORS_Preflight(t *testing.T) {
	env := newTestEnv(t)

	req, err := http.NewRequest(http.MethodOptions, env.server.URL+"/orders", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://example.com", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), "PUT")
}

func TestRequestID(t *testing.T) {
	env := newTestEnv(t)

	req, err := http.NewRequest(http.MethodGet, env.server.URL+"/", nil)
	require.NoError(t, err)
	req.Header.Set(requestIDHeader, "abc-123")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "abc-123", resp.Header.Get(requestIDHeader))

	resp, err = http.Get(env.server.URL + "/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.NotEmpty(t, resp.Header.Get(requestIDHeader))
}

// -----------------------------------------------------------------------------

func TestHTTPServer_StartStop(t *testing.T) {
	cfg := config.Default().MConfig
	cfg.Host = "127.0.0.1"
	cfg.Port = 0
	log := logger.NewNopLogger()

	ctrl := gomock.NewController(t)
	hub := notification.NewHub(log)
	svc := service.NewOrderService(mock.NewMockIOrderStore(ctrl), hub, nil, log)
	s := NewHTTPServer(cfg, svc, hub, log)

	errCh := make(chan error, 1)
	go func() { errCh <- s.Start() }()
	require.Eventually(t, s.hubStarted.Load, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	require.NoError(t, <-errCh)

	select {
	case <-hub.Stopped():
	default:
		t.Fatal("hub still running after Stop")
	}
}
