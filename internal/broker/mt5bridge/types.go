package mt5bridge

import "fmt"

type bridgeResponse[T any] struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  T      `json:"result"`
	Time    int64  `json:"time"`
}

func (r *bridgeResponse[T]) err() error {
	if r.RetCode != 0 {
		return fmt.Errorf("Ошибка моста: %s (code=%d)", r.RetMsg, r.RetCode)
	}
	return nil
}

type tradeResult struct {
	Retcode int    `json:"retcode"`
	Comment string `json:"comment"`
	Order   int64  `json:"order"`
	Deal    int64  `json:"deal"`
}

type wireTick struct {
	Symbol string  `json:"symbol"`
	Bid    float64 `json:"bid"`
	Ask    float64 `json:"ask"`
	TimeMs int64   `json:"time_ms"`
}

type wireOrder struct {
	Ticket         int64   `json:"ticket"`
	Symbol         string  `json:"symbol"`
	Type           int     `json:"type"`
	PriceOpen      float64 `json:"price_open"`
	SL             float64 `json:"sl"`
	TP             float64 `json:"tp"`
	VolumeCurrent  float64 `json:"volume_current"`
	Magic          int64   `json:"magic"`
	TimeSetup      int64   `json:"time_setup"`
	TimeExpiration int64   `json:"time_expiration"`
}

type wirePosition struct {
	Ticket    int64   `json:"ticket"`
	Symbol    string  `json:"symbol"`
	Type      int     `json:"type"`
	PriceOpen float64 `json:"price_open"`
	SL        float64 `json:"sl"`
	TP        float64 `json:"tp"`
	Volume    float64 `json:"volume"`
	Profit    float64 `json:"profit"`
	Magic     int64   `json:"magic"`
	Time      int64   `json:"time"`
}

type wireDeal struct {
	Ticket     int64   `json:"ticket"`
	Order      int64   `json:"order"`
	PositionID int64   `json:"position_id"`
	Symbol     string  `json:"symbol"`
	Type       int     `json:"type"`
	Entry      int     `json:"entry"`
	Volume     float64 `json:"volume"`
	Price      float64 `json:"price"`
	Profit     float64 `json:"profit"`
	Magic      int64   `json:"magic"`
	Time       int64   `json:"time"`
	Comment    string  `json:"comment"`
}

type wireSymbolInfo struct {
	Symbol     string  `json:"symbol"`
	Point      float64 `json:"point"`
	Digits     int     `json:"digits"`
	TickSize   float64 `json:"trade_tick_size"`
	TickValue  float64 `json:"trade_tick_value"`
	VolumeMin  float64 `json:"volume_min"`
	VolumeMax  float64 `json:"volume_max"`
	VolumeStep float64 `json:"volume_step"`
}

type wireAccount struct {
	Login    int64   `json:"login"`
	Balance  float64 `json:"balance"`
	Equity   float64 `json:"equity"`
	Currency string  `json:"currency"`
}
