// Package riskgate decides whether a hypothetical order is allowed given the
// current ledger and configured limits. Every function here is pure and
// side-effect-free: it consults a Position and a Limits value and returns a
// decision, never mutating anything.
package riskgate

import "github.com/sdibella/kalshi-mm/internal/ledger"

// Side is the quoted side of the candidate order.
type Side string

const (
	SideYes Side = "yes"
	SideNo  Side = "no"
)

// Limits is the subset of configuration the gate consults.
type Limits struct {
	MaxPositionSize       int
	MaxTotalExposureCents int64
}

// CanAdd evaluates whether a candidate order is allowed against pos (the
// position on the order's own ticker) and otherExposure (the summed
// exposure of every other ticker this system holds, at whatever mark the
// caller chose; Gate marks each at its own average entry price).
//
// Per §4.3: a risk-reducing order — one that strictly shrinks |net| — is
// always allowed, bypassing both the position cap and the exposure cap.
func CanAdd(pos ledger.Position, side Side, contracts int, priceCents int, limits Limits, otherExposureCents int64) (allowed bool, reason string) {
	delta := contracts
	if side == SideNo {
		delta = -contracts
	}
	cur := pos.NetContracts
	newPos := cur + delta

	if cur != 0 && signOf(cur) != signOf(delta) && absInt(newPos) < absInt(cur) {
		return true, "risk-reducing"
	}

	if absInt(newPos) > limits.MaxPositionSize {
		return false, "max position size exceeded"
	}

	hypoExposure := exposureCents(newPos, priceCents)
	total := hypoExposure + otherExposureCents
	if total > limits.MaxTotalExposureCents {
		return false, "max total exposure exceeded"
	}

	return true, ""
}

// MaxSize returns the largest additional contract count allowed on side at
// priceCents, the minimum of three caps: remaining room to the position
// boundary, remaining exposure budget, and available balance.
func MaxSize(pos ledger.Position, side Side, priceCents int, limits Limits, otherExposureCents int64, availableBalanceCents int64) int {
	if priceCents <= 0 {
		return 0
	}

	cur := pos.NetContracts
	var positionRoom int
	if side == SideYes {
		positionRoom = limits.MaxPositionSize - cur
	} else {
		positionRoom = limits.MaxPositionSize + cur
	}
	if positionRoom < 0 {
		positionRoom = 0
	}

	costPerContract := int64(priceCents)
	if side == SideNo {
		costPerContract = int64(100 - priceCents)
	}
	if costPerContract <= 0 {
		return 0
	}

	remainingExposure := limits.MaxTotalExposureCents - otherExposureCents
	if remainingExposure < 0 {
		remainingExposure = 0
	}
	exposureRoom := int(remainingExposure / costPerContract)

	balanceRoom := int(availableBalanceCents / costPerContract)

	out := positionRoom
	if exposureRoom < out {
		out = exposureRoom
	}
	if balanceRoom < out {
		out = balanceRoom
	}
	if out < 0 {
		out = 0
	}
	return out
}

func exposureCents(netContracts, priceCents int) int64 {
	if netContracts >= 0 {
		return int64(netContracts) * int64(priceCents)
	}
	return int64(-netContracts) * int64(100-priceCents)
}

func signOf(a int) int {
	switch {
	case a > 0:
		return 1
	case a < 0:
		return -1
	default:
		return 0
	}
}

func absInt(a int) int {
	if a < 0 {
		return -a
	}
	return a
}
