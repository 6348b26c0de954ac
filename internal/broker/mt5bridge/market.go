package mt5bridge

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"sentinel/internal/models"
)

func (c *Client) SymbolRules(ctx context.Context, symbol string) (models.SymbolRules, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	var resp bridgeResponse[wireSymbolInfo]
	if err := c.doRequest(ctx, http.MethodGet, "/api/v1/symbol-info", params, nil, &resp); err != nil {
		return models.SymbolRules{}, err
	}
	if err := resp.err(); err != nil {
		return models.SymbolRules{}, err
	}

	info := resp.Result
	if info.Point <= 0 {
		return models.SymbolRules{}, fmt.Errorf("Символ не найден: %s", symbol)
	}

	return models.SymbolRules{
		Symbol:     info.Symbol,
		Point:      info.Point,
		Digits:     info.Digits,
		TickSize:   info.TickSize,
		TickValue:  info.TickValue,
		VolumeMin:  info.VolumeMin,
		VolumeMax:  info.VolumeMax,
		VolumeStep: info.VolumeStep,
	}, nil
}

func (c *Client) Quote(ctx context.Context, symbol string) (models.Tick, error) {
	c.mu.Lock()
	cached, ok := c.quotes[symbol]
	c.mu.Unlock()
	if ok && time.Since(cached.Time) < 5*time.Second {
		return cached, nil
	}

	params := url.Values{}
	params.Set("symbol", symbol)

	var resp bridgeResponse[wireTick]
	if err := c.doRequest(ctx, http.MethodGet, "/api/v1/tick", params, nil, &resp); err != nil {
		return models.Tick{}, err
	}
	if err := resp.err(); err != nil {
		return models.Tick{}, err
	}

	tick := models.Tick{
		Symbol: symbol,
		Bid:    resp.Result.Bid,
		Ask:    resp.Result.Ask,
		Time:   time.UnixMilli(resp.Result.TimeMs),
	}

	c.mu.Lock()
	c.quotes[symbol] = tick
	c.mu.Unlock()

	return tick, nil
}

func (c *Client) ServerTime(ctx context.Context) (time.Time, error) {
	var resp bridgeResponse[struct {
		TimeMs int64 `json:"time_ms"`
	}]
	if err := c.doRequest(ctx, http.MethodGet, "/api/v1/time", nil, nil, &resp); err != nil {
		return time.Time{}, err
	}
	if err := resp.err(); err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(resp.Result.TimeMs), nil
}

func (c *Client) Account(ctx context.Context) (models.AccountInfo, error) {
	var resp bridgeResponse[wireAccount]
	if err := c.doRequest(ctx, http.MethodGet, "/api/v1/account", nil, nil, &resp); err != nil {
		return models.AccountInfo{}, err
	}
	if err := resp.err(); err != nil {
		return models.AccountInfo{}, err
	}
	return models.AccountInfo{
		Login:    resp.Result.Login,
		Balance:  resp.Result.Balance,
		Equity:   resp.Result.Equity,
		Currency: resp.Result.Currency,
	}, nil
}
