package riskgate

import (
	"testing"

	"github.com/sdibella/kalshi-mm/internal/ledger"
)

func TestCanAddRiskReducingBypassesPositionCap(t *testing.T) {
	// S6: MaxPositionSize=2, current net=-5, candidate (yes, 2, price=40).
	pos := ledger.Position{NetContracts: -5}
	limits := Limits{MaxPositionSize: 2, MaxTotalExposureCents: 1000}

	allowed, reason := CanAdd(pos, SideYes, 2, 40, limits, 0)
	if !allowed {
		t.Fatalf("expected risk-reducing order to be allowed, got reason %q", reason)
	}
}

func TestCanAddRejectsWhenAtPositionCapAndGrowing(t *testing.T) {
	pos := ledger.Position{NetContracts: 10}
	limits := Limits{MaxPositionSize: 10, MaxTotalExposureCents: 1_000_000}

	allowed, _ := CanAdd(pos, SideYes, 1, 50, limits, 0)
	if allowed {
		t.Fatalf("expected order growing |net| past cap to be rejected")
	}
}

func TestCanAddRejectsOnExposureCap(t *testing.T) {
	pos := ledger.Position{NetContracts: 0}
	limits := Limits{MaxPositionSize: 1000, MaxTotalExposureCents: 500}

	allowed, reason := CanAdd(pos, SideYes, 10, 60, limits, 0)
	if allowed {
		t.Fatalf("expected exposure cap to reject, got allowed")
	}
	if reason == "" {
		t.Fatalf("expected a reason for rejection")
	}
}

func TestCanAddAllowsWithinLimits(t *testing.T) {
	pos := ledger.Position{NetContracts: 2}
	limits := Limits{MaxPositionSize: 10, MaxTotalExposureCents: 10000}

	allowed, _ := CanAdd(pos, SideYes, 3, 50, limits, 0)
	if !allowed {
		t.Fatalf("expected order within limits to be allowed")
	}
}

func TestMaxSize(t *testing.T) {
	tests := []struct {
		name       string
		pos        ledger.Position
		side       Side
		price      int
		limits     Limits
		otherExp   int64
		balance    int64
		wantSize   int
	}{
		{
			name:     "bounded by position room",
			pos:      ledger.Position{NetContracts: 8},
			side:     SideYes,
			price:    50,
			limits:   Limits{MaxPositionSize: 10, MaxTotalExposureCents: 1_000_000},
			otherExp: 0,
			balance:  1_000_000,
			wantSize: 2,
		},
		{
			name:     "bounded by exposure room",
			pos:      ledger.Position{NetContracts: 0},
			side:     SideYes,
			price:    50,
			limits:   Limits{MaxPositionSize: 1000, MaxTotalExposureCents: 500},
			otherExp: 0,
			balance:  1_000_000,
			wantSize: 10,
		},
		{
			name:     "bounded by balance",
			pos:      ledger.Position{NetContracts: 0},
			side:     SideYes,
			price:    50,
			limits:   Limits{MaxPositionSize: 1000, MaxTotalExposureCents: 1_000_000},
			otherExp: 0,
			balance:  100,
			wantSize: 2,
		},
		{
			name:     "no side uses complement price",
			pos:      ledger.Position{NetContracts: 0},
			side:     SideNo,
			price:    80, // cost per contract = 100-80 = 20
			limits:   Limits{MaxPositionSize: 1000, MaxTotalExposureCents: 200},
			otherExp: 0,
			balance:  1_000_000,
			wantSize: 10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MaxSize(tt.pos, tt.side, tt.price, tt.limits, tt.otherExp, tt.balance)
			if got != tt.wantSize {
				t.Errorf("MaxSize = %d, want %d", got, tt.wantSize)
			}
		})
	}
}
