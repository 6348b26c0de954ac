package mt5bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"sentinel/internal/models"
)

type wsMessage struct {
	Topic string          `json:"topic"`
	Data  json.RawMessage `json:"data"`
}

func (c *Client) StreamTicks(ctx context.Context, symbols []string) error {
	if c.wsURL == "" {
		return fmt.Errorf("Не задан адрес WS моста.")
	}

	go c.streamLoop(ctx, symbols)
	return nil
}

func (c *Client) streamLoop(ctx context.Context, symbols []string) {
	const reconnectDelay = 2 * time.Second

	for {
		if ctx.Err() != nil {
			return
		}
		if err := c.streamOnce(ctx, symbols); err != nil {
			c.log.WithComponent("mt5bridge").WithError(err).Warn("Поток тиков прерван, переподключение.")
		}
		select {
		case <-ctx.Done():
			return
		case <-c.wsStop:
			return
		case <-time.After(reconnectDelay):
		}
	}
}

func (c *Client) streamOnce(ctx context.Context, symbols []string) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.wsURL, nil)
	if err != nil {
		return fmt.Errorf("Не удалось подключиться к WS: %w", err)
	}
	defer conn.Close()
	conn.SetReadLimit(1 << 20)

	args := make([]string, 0, len(symbols))
	for _, symbol := range symbols {
		args = append(args, "tick."+symbol)
	}
	sub := map[string]any{"op": "subscribe", "args": args}
	if err := conn.WriteJSON(sub); err != nil {
		return fmt.Errorf("Не удалось подписаться: %w", err)
	}

	c.log.WithComponent("mt5bridge").WithFields(map[string]interface{}{
		"url":     c.wsURL,
		"symbols": len(symbols),
	}).Info("WS соединение установлено.")

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		conn.Close()
	}()

	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if !strings.HasPrefix(msg.Topic, "tick.") {
			continue
		}
		var data wireTick
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			continue
		}
		symbol := strings.TrimPrefix(msg.Topic, "tick.")
		tick := models.Tick{
			Symbol: symbol,
			Bid:    data.Bid,
			Ask:    data.Ask,
			Time:   time.UnixMilli(data.TimeMs),
		}
		c.mu.Lock()
		c.quotes[symbol] = tick
		c.mu.Unlock()
	}
}
