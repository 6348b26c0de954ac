package engine

import (
	"errors"
	"math"

	"sentinel/internal/models"
)

var (
	ErrInvalidSetup       = errors.New("Некорректный сетап.")
	ErrPlacementFailed    = errors.New("Не удалось разместить ордер.")
	ErrRoundingInfeasible = errors.New("Объём не проходит по ограничениям символа.")
	errDuplicateIntent    = errors.New("Дубликат торгового намерения.")
)

const triggerEpsilon = 0.05

func RoundDownToStep(value, step float64) float64 {
	if step <= 0 {
		return value
	}
	return math.Floor((value/step)+1e-9) * step
}

func ThresholdPrice(openPrice, riskDistance, triggerR float64, direction models.Direction) float64 {
	if direction == models.DirectionBuy {
		return openPrice + riskDistance*triggerR
	}
	return openPrice - riskDistance*triggerR
}

func CurrentR(direction models.Direction, openPrice, currentPrice, riskDistance float64) float64 {
	if riskDistance <= 0 {
		return 0
	}
	if direction == models.DirectionBuy {
		return (currentPrice - openPrice) / riskDistance
	}
	return (openPrice - currentPrice) / riskDistance
}

func PartialCloseVolume(volume, fraction float64, rules models.SymbolRules) (float64, error) {
	if volume <= 0 || fraction <= 0 || fraction >= 1 {
		return 0, ErrRoundingInfeasible
	}

	partial := RoundDownToStep(volume*fraction, rules.VolumeStep)
	if rules.VolumeStep <= 0 {
		partial = math.Floor(volume*fraction*100) / 100
	}

	if partial <= 0 || partial < rules.VolumeMin {
		return 0, ErrRoundingInfeasible
	}
	remaining := volume - partial
	if remaining < rules.VolumeMin {
		return 0, ErrRoundingInfeasible
	}
	return partial, nil
}

func needsCompression(direction models.Direction, originalTP, compressedTP float64) bool {
	if originalTP <= 0 {
		return false
	}
	if direction == models.DirectionBuy {
		return originalTP > compressedTP
	}
	return originalTP < compressedTP
}
