package models

import "time"

type Direction string
type Phase string
type DealEntry string

const (
	DirectionBuy  Direction = "BUY"
	DirectionSell Direction = "SELL"

	PhaseOpened       Phase = "OPENED"
	PhaseTPCompressed Phase = "TP_COMPRESSED"
	PhasePartialTaken Phase = "PARTIAL_TAKEN"
	PhaseClosed       Phase = "CLOSED"

	DealEntryIn  DealEntry = "IN"
	DealEntryOut DealEntry = "OUT"
)

type Setup struct {
	Symbol     string    `json:"symbol"`
	Direction  Direction `json:"direction"`
	EntryPrice float64   `json:"entry_price"`
	StopLoss   float64   `json:"stop_loss"`
	TakeProfit float64   `json:"take_profit"`
	EstimatedR float64   `json:"est_r"`
	ValidUntil time.Time `json:"valid_until,omitempty"`
}

type PendingOrder struct {
	Ticket     int64     `json:"ticket"`
	Symbol     string    `json:"symbol"`
	Direction  Direction `json:"direction"`
	EntryPrice float64   `json:"entry_price"`
	StopLoss   float64   `json:"stop_loss"`
	TakeProfit float64   `json:"take_profit"`
	Volume     float64   `json:"volume"`
	Magic      int64     `json:"magic"`
	PlacedAt   time.Time `json:"placed_at"`
	Expiration time.Time `json:"expiration,omitempty"`
}

type Position struct {
	Ticket     int64     `json:"ticket"`
	Symbol     string    `json:"symbol"`
	Direction  Direction `json:"direction"`
	OpenPrice  float64   `json:"open_price"`
	StopLoss   float64   `json:"stop_loss"`
	TakeProfit float64   `json:"take_profit"`
	Volume     float64   `json:"volume"`
	Profit     float64   `json:"profit"`
	Magic      int64     `json:"magic"`
	OpenedAt   time.Time `json:"opened_at"`
}

type Deal struct {
	Ticket      int64     `json:"ticket"`
	OrderTicket int64     `json:"order"`
	PositionID  int64     `json:"position_id"`
	Symbol      string    `json:"symbol"`
	Direction   Direction `json:"direction"`
	Entry       DealEntry `json:"entry"`
	Volume      float64   `json:"volume"`
	Price       float64   `json:"price"`
	Profit      float64   `json:"profit"`
	Magic       int64     `json:"magic"`
	Time        time.Time `json:"time"`
	Comment     string    `json:"comment,omitempty"`
}

type Tick struct {
	Symbol string    `json:"symbol"`
	Bid    float64   `json:"bid"`
	Ask    float64   `json:"ask"`
	Time   time.Time `json:"time"`
}

func (t Tick) Spread() float64 {
	if t.Ask < t.Bid {
		return 0
	}
	return t.Ask - t.Bid
}

type SymbolRules struct {
	Symbol     string  `json:"symbol"`
	Point      float64 `json:"point"`
	Digits     int     `json:"digits"`
	TickSize   float64 `json:"tick_size"`
	TickValue  float64 `json:"tick_value"`
	VolumeMin  float64 `json:"volume_min"`
	VolumeMax  float64 `json:"volume_max"`
	VolumeStep float64 `json:"volume_step"`
}

type AccountInfo struct {
	Login    int64   `json:"login"`
	Balance  float64 `json:"balance"`
	Equity   float64 `json:"equity"`
	Currency string  `json:"currency"`
}

func Opposite(d Direction) Direction {
	if d == DirectionBuy {
		return DirectionSell
	}
	return DirectionBuy
}
