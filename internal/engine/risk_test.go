package engine

import (
	"testing"

	"news-trading-bot/internal/types"
)

func buyIntent(qty int, cap float64) types.TradingIntent {
	return types.TradingIntent{
		ID:          "intent-1",
		ContractID:  "ELECTION-2026",
		OutcomeID:   "CANDIDATE-A",
		Side:        types.SideBuy,
		PriceCap:    cap,
		MaxQuantity: qty,
	}
}

func TestValidateIntentWithinLimits(t *testing.T) {
	limits := types.RiskLimits{MaxExposurePerContract: 100, MaxTotalExposure: 500, MaxOrderNotional: 80}
	if err := ValidateIntent(buyIntent(100, 0.60), limits, Exposures{Contract: 20, Total: 100}); err != nil {
		t.Fatalf("intent inside every limit rejected: %v", err)
	}
}

func TestValidateIntentOrderNotional(t *testing.T) {
	limits := types.RiskLimits{MaxOrderNotional: 50}
	err := ValidateIntent(buyIntent(100, 0.60), limits, Exposures{})
	if !types.IsRiskRejected(err) {
		t.Fatalf("expected risk rejection for notional 60 > 50, got %v", err)
	}
}

func TestValidateIntentContractExposure(t *testing.T) {
	limits := types.RiskLimits{MaxExposurePerContract: 100}
	err := ValidateIntent(buyIntent(100, 0.60), limits, Exposures{Contract: 50})
	if !types.IsRiskRejected(err) {
		t.Fatalf("expected contract exposure rejection, got %v", err)
	}
}

func TestValidateIntentTotalExposure(t *testing.T) {
	limits := types.RiskLimits{MaxTotalExposure: 100}
	err := ValidateIntent(buyIntent(100, 0.60), limits, Exposures{Total: 50})
	if !types.IsRiskRejected(err) {
		t.Fatalf("expected total exposure rejection, got %v", err)
	}
}

func TestValidateIntentSellOnlyNotionalApplies(t *testing.T) {
	limits := types.RiskLimits{MaxExposurePerContract: 1, MaxTotalExposure: 1, MaxOrderNotional: 100}
	sell := buyIntent(100, 0.60)
	sell.Side = types.SideSell
	if err := ValidateIntent(sell, limits, Exposures{Contract: 999, Total: 999}); err != nil {
		t.Fatalf("sell reduces exposure and must pass exposure limits: %v", err)
	}
}

func TestValidateIntentZeroLimitsUnlimited(t *testing.T) {
	if err := ValidateIntent(buyIntent(100000, 0.99), types.RiskLimits{}, Exposures{Contract: 1e9, Total: 1e9}); err != nil {
		t.Fatalf("zero limits must mean unlimited: %v", err)
	}
}
