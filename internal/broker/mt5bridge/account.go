package mt5bridge

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"sentinel/internal/models"
)

const (
	orderTypeBuyLimit  = 2
	orderTypeSellLimit = 3

	positionTypeBuy  = 0
	positionTypeSell = 1

	dealEntryIn  = 0
	dealEntryOut = 1
)

func (c *Client) PendingOrders(ctx context.Context, magic int64) ([]models.PendingOrder, error) {
	params := url.Values{}
	params.Set("magic", strconv.FormatInt(magic, 10))

	var resp bridgeResponse[struct {
		List []wireOrder `json:"list"`
	}]
	if err := c.doRequest(ctx, http.MethodGet, "/api/v1/orders", params, nil, &resp); err != nil {
		return nil, err
	}
	if err := resp.err(); err != nil {
		return nil, err
	}

	var orders []models.PendingOrder
	for _, item := range resp.Result.List {
		if item.Magic != magic {
			continue
		}
		direction := models.DirectionBuy
		if item.Type == orderTypeSellLimit {
			direction = models.DirectionSell
		} else if item.Type != orderTypeBuyLimit {
			continue
		}
		order := models.PendingOrder{
			Ticket:     item.Ticket,
			Symbol:     item.Symbol,
			Direction:  direction,
			EntryPrice: item.PriceOpen,
			StopLoss:   item.SL,
			TakeProfit: item.TP,
			Volume:     item.VolumeCurrent,
			Magic:      item.Magic,
			PlacedAt:   time.Unix(item.TimeSetup, 0),
		}
		if item.TimeExpiration > 0 {
			order.Expiration = time.Unix(item.TimeExpiration, 0)
		}
		orders = append(orders, order)
	}
	return orders, nil
}

func (c *Client) OpenPositions(ctx context.Context, magic int64) ([]models.Position, error) {
	params := url.Values{}
	params.Set("magic", strconv.FormatInt(magic, 10))

	var resp bridgeResponse[struct {
		List []wirePosition `json:"list"`
	}]
	if err := c.doRequest(ctx, http.MethodGet, "/api/v1/positions", params, nil, &resp); err != nil {
		return nil, err
	}
	if err := resp.err(); err != nil {
		return nil, err
	}

	var positions []models.Position
	for _, item := range resp.Result.List {
		if item.Magic != magic {
			continue
		}
		direction := models.DirectionBuy
		if item.Type == positionTypeSell {
			direction = models.DirectionSell
		}
		positions = append(positions, models.Position{
			Ticket:     item.Ticket,
			Symbol:     item.Symbol,
			Direction:  direction,
			OpenPrice:  item.PriceOpen,
			StopLoss:   item.SL,
			TakeProfit: item.TP,
			Volume:     item.Volume,
			Profit:     item.Profit,
			Magic:      item.Magic,
			OpenedAt:   time.Unix(item.Time, 0),
		})
	}
	return positions, nil
}

func (c *Client) DealsSince(ctx context.Context, from time.Time, magic int64) ([]models.Deal, error) {
	params := url.Values{}
	params.Set("from", strconv.FormatInt(from.Unix(), 10))
	params.Set("magic", strconv.FormatInt(magic, 10))

	var resp bridgeResponse[struct {
		List []wireDeal `json:"list"`
	}]
	if err := c.doRequest(ctx, http.MethodGet, "/api/v1/deals", params, nil, &resp); err != nil {
		return nil, err
	}
	if err := resp.err(); err != nil {
		return nil, err
	}

	var deals []models.Deal
	for _, item := range resp.Result.List {
		if item.Magic != magic {
			continue
		}
		direction := models.DirectionBuy
		if item.Type == positionTypeSell {
			direction = models.DirectionSell
		}
		entry := models.DealEntryIn
		if item.Entry == dealEntryOut {
			entry = models.DealEntryOut
		}
		deals = append(deals, models.Deal{
			Ticket:      item.Ticket,
			OrderTicket: item.Order,
			PositionID:  item.PositionID,
			Symbol:      item.Symbol,
			Direction:   direction,
			Entry:       entry,
			Volume:      item.Volume,
			Price:       item.Price,
			Profit:      item.Profit,
			Magic:       item.Magic,
			Time:        time.Unix(item.Time, 0),
			Comment:     item.Comment,
		})
	}
	return deals, nil
}
