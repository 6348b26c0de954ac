package mt5bridge

import (
	"context"
	"net/http"

	"sentinel/internal/broker"
	"sentinel/internal/models"
)

func (c *Client) PlacePendingLimit(ctx context.Context, req broker.PendingLimitRequest) (int64, error) {
	orderType := orderTypeBuyLimit
	if req.Direction == models.DirectionSell {
		orderType = orderTypeSellLimit
	}

	body := map[string]any{
		"symbol":    req.Symbol,
		"type":      orderType,
		"volume":    req.Volume,
		"price":     req.Price,
		"sl":        req.StopLoss,
		"tp":        req.TakeProfit,
		"deviation": req.DeviationPoints,
		"magic":     req.Magic,
		"comment":   req.Comment,
	}
	if !req.Expiration.IsZero() {
		body["expiration"] = req.Expiration.Unix()
	}

	var resp bridgeResponse[tradeResult]
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/order/place", nil, body, &resp); err != nil {
		return 0, err
	}
	if err := resp.err(); err != nil {
		return 0, err
	}
	if resp.Result.Retcode != broker.RetcodeDone {
		return 0, &broker.TradeError{Retcode: resp.Result.Retcode, Comment: resp.Result.Comment}
	}
	return resp.Result.Order, nil
}

func (c *Client) ModifyPosition(ctx context.Context, ticket int64, symbol string, stopLoss, takeProfit float64) error {
	body := map[string]any{
		"position": ticket,
		"symbol":   symbol,
		"sl":       stopLoss,
		"tp":       takeProfit,
	}

	var resp bridgeResponse[tradeResult]
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/position/modify", nil, body, &resp); err != nil {
		return err
	}
	if err := resp.err(); err != nil {
		return err
	}
	if resp.Result.Retcode != broker.RetcodeDone {
		return &broker.TradeError{Retcode: resp.Result.Retcode, Comment: resp.Result.Comment}
	}
	return nil
}

func (c *Client) ClosePartial(ctx context.Context, ticket int64, symbol string, volume float64) error {
	body := map[string]any{
		"position": ticket,
		"symbol":   symbol,
		"volume":   volume,
	}

	var resp bridgeResponse[tradeResult]
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/position/close", nil, body, &resp); err != nil {
		return err
	}
	if err := resp.err(); err != nil {
		return err
	}
	if resp.Result.Retcode != broker.RetcodeDone {
		return &broker.TradeError{Retcode: resp.Result.Retcode, Comment: resp.Result.Comment}
	}
	return nil
}

func (c *Client) CancelOrder(ctx context.Context, ticket int64, magic int64, comment string) error {
	body := map[string]any{
		"order":   ticket,
		"magic":   magic,
		"comment": comment,
	}

	var resp bridgeResponse[tradeResult]
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/order/cancel", nil, body, &resp); err != nil {
		return err
	}
	if err := resp.err(); err != nil {
		return err
	}
	if resp.Result.Retcode != broker.RetcodeDone {
		return &broker.TradeError{Retcode: resp.Result.Retcode, Comment: resp.Result.Comment}
	}
	return nil
}
