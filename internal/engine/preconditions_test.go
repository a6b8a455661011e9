package engine

import (
	"strings"
	"testing"
)

func TestValidateStrategyPreconditionsOK(t *testing.T) {
	ok, reason := ValidateStrategyPreconditions(PreconditionRequest{
		CapitalUSD:      50,
		SpotUSDTFree:    30,
		PerpUSDTFree:    30,
		CurrentLeverage: 1,
	}, DefaultParams())
	if !ok {
		t.Fatalf("expected preconditions to pass, got %q", reason)
	}
	if reason != "" {
		t.Fatalf("expected empty reason, got %q", reason)
	}
}

func TestValidateStrategyPreconditionsInsufficientSpot(t *testing.T) {
	ok, reason := ValidateStrategyPreconditions(PreconditionRequest{
		CapitalUSD:      50,
		SpotUSDTFree:    20,
		PerpUSDTFree:    30,
		CurrentLeverage: 1,
	}, DefaultParams())
	if ok {
		t.Fatalf("expected failure on spot balance")
	}
	if !strings.Contains(reason, "spot balance") {
		t.Fatalf("expected spot balance reason, got %q", reason)
	}
}

func TestValidateStrategyPreconditionsInsufficientPerp(t *testing.T) {
	ok, reason := ValidateStrategyPreconditions(PreconditionRequest{
		CapitalUSD:      50,
		SpotUSDTFree:    30,
		PerpUSDTFree:    20,
		CurrentLeverage: 1,
	}, DefaultParams())
	if ok {
		t.Fatalf("expected failure on perp balance")
	}
	if !strings.Contains(reason, "perp balance") {
		t.Fatalf("expected perp balance reason, got %q", reason)
	}
}

func TestValidateStrategyPreconditionsFailFast(t *testing.T) {
	// Both balances short: only the first failing reason comes back.
	ok, reason := ValidateStrategyPreconditions(PreconditionRequest{
		CapitalUSD:      50,
		SpotUSDTFree:    10,
		PerpUSDTFree:    15,
		CurrentLeverage: 1,
	}, DefaultParams())
	if ok {
		t.Fatalf("expected failure")
	}
	if !strings.Contains(reason, "spot balance") || strings.Contains(reason, "perp balance") {
		t.Fatalf("expected fail-fast spot reason only, got %q", reason)
	}
}

func TestValidateStrategyPreconditionsLeverage(t *testing.T) {
	ok, reason := ValidateStrategyPreconditions(PreconditionRequest{
		CapitalUSD:      50,
		SpotUSDTFree:    1000,
		PerpUSDTFree:    1000,
		CurrentLeverage: 5,
	}, DefaultParams())
	if ok {
		t.Fatalf("expected failure for 5x leverage even with ample balances")
	}
	if !strings.Contains(reason, "leverage") {
		t.Fatalf("expected leverage reason, got %q", reason)
	}
}
