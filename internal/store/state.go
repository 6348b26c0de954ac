package store

import "time"

type CompressionRecord struct {
	Symbol       string    `json:"symbol"`
	OriginalTP   float64   `json:"original_tp"`
	CompressedTP float64   `json:"compressed_tp"`
	EntryPrice   float64   `json:"entry_price"`
	OriginalSL   float64   `json:"original_sl"`
	Confirmed    bool      `json:"confirmed"`
	ModifiedAt   time.Time `json:"modified_at"`
}

type PartialRecord struct {
	Symbol          string    `json:"symbol"`
	EntryPrice      float64   `json:"entry_price"`
	OriginalSL      float64   `json:"original_sl"`
	NewSL           float64   `json:"new_sl"`
	TakeProfit      float64   `json:"tp"`
	RAtPartial      float64   `json:"r_at_partial"`
	VolumeClosed    float64   `json:"volume_closed"`
	VolumeRemaining float64   `json:"volume_remaining"`
	Restored        bool      `json:"restored"`
	PartialAt       time.Time `json:"partial_time"`
}

type State struct {
	LastDayStart      map[string]string           `json:"last_day_start"`
	OrdersPlaced      map[string]string           `json:"orders_placed"`
	Compressions      map[int64]CompressionRecord `json:"compressions"`
	Partials          map[int64]PartialRecord     `json:"partials"`
	LastDealPoll      time.Time                   `json:"last_deal_poll,omitempty"`
	LastWeekendNotice string                      `json:"last_weekend_notice,omitempty"`
	SavedAt           time.Time                   `json:"saved_at,omitempty"`
}

func NewState() *State {
	return &State{
		LastDayStart: map[string]string{},
		OrdersPlaced: map[string]string{},
		Compressions: map[int64]CompressionRecord{},
		Partials:     map[int64]PartialRecord{},
	}
}

func (s *State) ensureMaps() {
	if s.LastDayStart == nil {
		s.LastDayStart = map[string]string{}
	}
	if s.OrdersPlaced == nil {
		s.OrdersPlaced = map[string]string{}
	}
	if s.Compressions == nil {
		s.Compressions = map[int64]CompressionRecord{}
	}
	if s.Partials == nil {
		s.Partials = map[int64]PartialRecord{}
	}
}
