package engine

import (
	"news-trading-bot/internal/types"
)

// Exposures is the read-only snapshot the risk check runs against.
type Exposures struct {
	Contract float64
	Total    float64
}

// ValidateIntent checks an intent against the configured limits. It is
// side-effect free; a rejected intent is discarded by the caller and
// never submitted. A zero limit means unlimited.
func ValidateIntent(intent types.TradingIntent, limits types.RiskLimits, exp Exposures) error {
	notional := intent.PriceCap * float64(intent.MaxQuantity)

	if limits.MaxOrderNotional > 0 && notional > limits.MaxOrderNotional {
		return &types.RiskError{ContractID: intent.ContractID, Reason: "order notional exceeds limit"}
	}
	if intent.Side != types.SideBuy {
		// Sells reduce exposure; only the notional cap applies.
		return nil
	}
	if limits.MaxExposurePerContract > 0 && exp.Contract+notional > limits.MaxExposurePerContract {
		return &types.RiskError{ContractID: intent.ContractID, Reason: "contract exposure limit"}
	}
	if limits.MaxTotalExposure > 0 && exp.Total+notional > limits.MaxTotalExposure {
		return &types.RiskError{ContractID: intent.ContractID, Reason: "total exposure limit"}
	}
	return nil
}
