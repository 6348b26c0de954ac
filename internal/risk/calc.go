package risk

import (
	"errors"
	"math"

	"sentinel/internal/models"
)

var (
	ErrInvalidStop = errors.New("Расстояние до стопа должно быть больше нуля.")
	ErrVolumeSmall = errors.New("Расчётный объём меньше минимального лота.")
)

type Sizing struct {
	Volume     float64
	RiskAmount float64
	RiskPerLot float64
}

func VolumeByRisk(rules models.SymbolRules, balance, riskPct, entry, stopLoss float64) (Sizing, error) {
	dist := math.Abs(entry - stopLoss)
	if dist <= 0 {
		return Sizing{}, ErrInvalidStop
	}
	if rules.TickSize <= 0 || rules.TickValue <= 0 {
		return Sizing{}, errors.New("Некорректные параметры символа для расчёта риска.")
	}

	riskAmount := balance * riskPct / 100
	riskPerLot := (dist / rules.TickSize) * rules.TickValue
	if riskPerLot <= 0 {
		return Sizing{}, ErrInvalidStop
	}

	lots := riskAmount / riskPerLot
	if rules.VolumeStep > 0 {
		lots = math.Floor((lots/rules.VolumeStep)+1e-9) * rules.VolumeStep
	}
	if lots < rules.VolumeMin {
		return Sizing{}, ErrVolumeSmall
	}
	if rules.VolumeMax > 0 && lots > rules.VolumeMax {
		lots = rules.VolumeMax
	}

	return Sizing{
		Volume:     lots,
		RiskAmount: riskAmount,
		RiskPerLot: riskPerLot,
	}, nil
}
