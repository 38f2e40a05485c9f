// Package quoter is the stateful two-sided quoter: price calculation,
// requote decision, paired placement, and fill-driven state invalidation.
package quoter

// PricingConfig carries the tunables the pricing function needs. Clamp is
// an opt-in extension beyond the base spec (see the Open Question on touch
// clamping): when true, quotes are additionally clamped so they never post
// through the current touch (bid at most the best bid, ask at least the
// best ask). Off by default.
type PricingConfig struct {
	SpreadWidth int
	Clamp       bool
}

// Price computes a symmetric bid/ask pair around the midpoint of
// (bestBid, bestAsk), shifted by inventorySkew cents, clamped to [1, 99],
// and guaranteed non-crossing.
func Price(bestBid, bestAsk, inventorySkew int, cfg PricingConfig) (bid, ask int) {
	mid := bestBid + bestAsk // kept ×2 to avoid integer-division rounding until the end
	half := cfg.SpreadWidth

	rawBid2 := mid - half - 2*inventorySkew
	rawAsk2 := mid + half - 2*inventorySkew

	bid = roundHalfAwayFromZero(rawBid2, 2)
	ask = roundHalfAwayFromZero(rawAsk2, 2)

	bid = clampCents(bid)
	ask = clampCents(ask)

	if cfg.Clamp {
		if bid > bestBid {
			bid = bestBid
		}
		if ask < bestAsk {
			ask = bestAsk
		}
	}

	if bid >= ask {
		m := floorDiv(mid, 2)
		bid = clampCents(m - 1)
		ask = clampCents(m + 1)
	}

	return bid, ask
}

func clampCents(p int) int {
	if p < 1 {
		return 1
	}
	if p > 99 {
		return 99
	}
	return p
}

// roundHalfAwayFromZero rounds num/den to the nearest integer, rounding
// exact halves away from zero. The spec tolerates either banker's
// rounding or half-away-from-zero; this is the simpler of the two.
func roundHalfAwayFromZero(num, den int) int {
	if den < 0 {
		num, den = -num, -den
	}
	if num >= 0 {
		return (num + den/2) / den
	}
	return -((-num + den/2) / den)
}

func floorDiv(num, den int) int {
	q := num / den
	if (num%den != 0) && ((num < 0) != (den < 0)) {
		q--
	}
	return q
}
