package mt5bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentinel/internal/broker"
	"sentinel/internal/logger"
	"sentinel/internal/models"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, "", "test-token", logger.New(logger.Config{Level: "fatal"}))
}

func writeResult(w http.ResponseWriter, result any) {
	json.NewEncoder(w).Encode(map[string]any{
		"retCode": 0,
		"retMsg":  "OK",
		"result":  result,
		"time":    time.Now().UnixMilli(),
	})
}

func TestPlacePendingLimit(t *testing.T) {
	t.Parallel()

	var got map[string]any
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/v1/order/place", r.URL.Path)
		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		require.NotEmpty(t, r.Header.Get("X-Request-ID"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeResult(w, map[string]any{"retcode": 10009, "comment": "done", "order": 12345})
	}))

	expiration := time.Date(2026, 8, 26, 23, 59, 0, 0, time.UTC)
	ticket, err := c.PlacePendingLimit(context.Background(), broker.PendingLimitRequest{
		Symbol:          "EURUSD",
		Direction:       models.DirectionBuy,
		Volume:          0.10,
		Price:           1.0950,
		StopLoss:        1.0900,
		TakeProfit:      1.1100,
		DeviationPoints: 20,
		Magic:           77,
		Comment:         "Sentinel",
		Expiration:      expiration,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(12345), ticket)

	assert.Equal(t, float64(2), got["type"])
	assert.Equal(t, "EURUSD", got["symbol"])
	assert.InDelta(t, 1.0950, got["price"].(float64), 1e-9)
	assert.Equal(t, float64(expiration.Unix()), got["expiration"])
}

func TestPlacePendingLimitSellType(t *testing.T) {
	t.Parallel()

	var got map[string]any
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeResult(w, map[string]any{"retcode": 10009, "order": 1})
	}))

	_, err := c.PlacePendingLimit(context.Background(), broker.PendingLimitRequest{
		Symbol:    "EURUSD",
		Direction: models.DirectionSell,
		Volume:    0.10,
		Price:     1.1050,
	})
	require.NoError(t, err)
	assert.Equal(t, float64(3), got["type"])
	_, hasExpiration := got["expiration"]
	assert.False(t, hasExpiration)
}

func TestPlacePendingLimitTradeError(t *testing.T) {
	t.Parallel()

	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeResult(w, map[string]any{"retcode": 10016, "comment": "Invalid stops"})
	}))

	_, err := c.PlacePendingLimit(context.Background(), broker.PendingLimitRequest{
		Symbol:    "EURUSD",
		Direction: models.DirectionBuy,
	})
	require.Error(t, err)

	tradeErr, ok := broker.AsTradeError(err)
	require.True(t, ok)
	assert.Equal(t, 10016, tradeErr.Retcode)
	assert.False(t, broker.IsTransient(err))
}

func TestBridgeErrorCode(t *testing.T) {
	t.Parallel()

	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"retCode": 10, "retMsg": "bad request"})
	}))

	_, err := c.Account(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad request")
}

func TestPendingOrdersFiltering(t *testing.T) {
	t.Parallel()

	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/orders", r.URL.Path)
		require.Equal(t, "77", r.URL.Query().Get("magic"))
		writeResult(w, map[string]any{"list": []map[string]any{
			{"ticket": 1, "symbol": "EURUSD", "type": 2, "price_open": 1.0950, "magic": 77, "time_setup": 1756100000, "time_expiration": 1756165140},
			{"ticket": 2, "symbol": "EURUSD", "type": 3, "price_open": 1.1050, "magic": 77},
			{"ticket": 3, "symbol": "EURUSD", "type": 2, "price_open": 1.0900, "magic": 99},
			{"ticket": 4, "symbol": "EURUSD", "type": 0, "price_open": 1.1000, "magic": 77},
		}})
	}))

	orders, err := c.PendingOrders(context.Background(), 77)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, models.DirectionBuy, orders[0].Direction)
	assert.False(t, orders[0].Expiration.IsZero())
	assert.Equal(t, models.DirectionSell, orders[1].Direction)
	assert.True(t, orders[1].Expiration.IsZero())
}

func TestOpenPositionsMapping(t *testing.T) {
	t.Parallel()

	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeResult(w, map[string]any{"list": []map[string]any{
			{"ticket": 500, "symbol": "EURUSD", "type": 1, "price_open": 1.1000, "sl": 1.1050, "tp": 1.0850, "volume": 0.1, "profit": -3.5, "magic": 77, "time": 1756100000},
		}})
	}))

	positions, err := c.OpenPositions(context.Background(), 77)
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.Equal(t, models.DirectionSell, positions[0].Direction)
	assert.InDelta(t, 1.1000, positions[0].OpenPrice, 1e-9)
	assert.InDelta(t, -3.5, positions[0].Profit, 1e-9)
}

func TestDealsSinceMapping(t *testing.T) {
	t.Parallel()

	from := time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC)
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, fmt.Sprint(from.Unix()), r.URL.Query().Get("from"))
		writeResult(w, map[string]any{"list": []map[string]any{
			{"ticket": 800, "order": 700, "position_id": 500, "symbol": "EURUSD", "type": 0, "entry": 1, "volume": 0.05, "price": 1.1150, "profit": 7.5, "magic": 77, "time": 1756204800},
		}})
	}))

	deals, err := c.DealsSince(context.Background(), from, 77)
	require.NoError(t, err)
	require.Len(t, deals, 1)
	assert.Equal(t, models.DealEntryOut, deals[0].Entry)
	assert.Equal(t, int64(500), deals[0].PositionID)
}

func TestQuoteUsesCache(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		writeResult(w, map[string]any{"symbol": "EURUSD", "bid": 1.1000, "ask": 1.10015, "time_ms": time.Now().UnixMilli()})
	}))

	tick, err := c.Quote(context.Background(), "EURUSD")
	require.NoError(t, err)
	assert.InDelta(t, 1.1000, tick.Bid, 1e-9)

	_, err = c.Quote(context.Background(), "EURUSD")
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

func TestSymbolRulesNotFound(t *testing.T) {
	t.Parallel()

	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeResult(w, map[string]any{"symbol": "", "point": 0})
	}))

	_, err := c.SymbolRules(context.Background(), "NOPE")
	assert.Error(t, err)
}

func TestServerTime(t *testing.T) {
	t.Parallel()

	now := time.Now().UnixMilli()
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeResult(w, map[string]any{"time_ms": now})
	}))

	got, err := c.ServerTime(context.Background())
	require.NoError(t, err)
	assert.Equal(t, now, got.UnixMilli())
}

func TestHTTPErrorStatus(t *testing.T) {
	t.Parallel()

	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
	}))

	_, err := c.Account(context.Background())
	require.Error(t, err)
	assert.True(t, broker.IsTransient(err))
}
