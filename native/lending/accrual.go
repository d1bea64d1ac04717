package lending

import "math/big"

// secondsPerYear converts the annualized base rate into per-second interest.
const secondsPerYear = 31_536_000

var (
	basisPoints = big.NewInt(maxBps)
	rateDivisor = new(big.Int).Mul(basisPoints, big.NewInt(secondsPerYear))
)

// accrue brings the position up to the ledger time `now`, charging simple
// interest on the outstanding debt and distributing the account's pro-rata
// share of the interest reserve. It mutates the supplied position and totals
// in place; callers persist them only when the surrounding operation succeeds.
//
// Interest is non-compounding within a single call but compounds across calls
// since the base grows. Integer division truncates toward zero; the truncation
// dust is left in the borrowed pool and the reserve, never fabricated or
// destroyed. A zero elapsed time makes the whole step a no-op, which keeps
// repeated accrual at the same timestamp idempotent.
func accrue(pos *Position, totals *ProtocolTotals, params *Params, now uint64) {
	if pos == nil || totals == nil || params == nil {
		return
	}
	pos.ensureDefaults()
	totals.ensureDefaults()

	if now <= pos.LastAccrual {
		return
	}
	elapsed := now - pos.LastAccrual
	pos.LastAccrual = now

	if pos.Borrowed.Sign() > 0 && params.BaseInterestRateBps > 0 {
		interest := new(big.Int).Set(pos.Borrowed)
		interest.Mul(interest, new(big.Int).SetUint64(params.BaseInterestRateBps))
		interest.Mul(interest, new(big.Int).SetUint64(elapsed))
		interest.Quo(interest, rateDivisor)
		if interest.Sign() > 0 {
			pos.Borrowed.Add(pos.Borrowed, interest)
			totals.TotalBorrowed.Add(totals.TotalBorrowed, interest)
		}
	}

	// Pro-rata reserve distribution. Skipped entirely when nothing has been
	// deposited so the share computation never divides by zero.
	if totals.InterestReserve.Sign() > 0 && pos.Deposited.Sign() > 0 && totals.TotalDeposited.Sign() > 0 {
		share := new(big.Int).Mul(pos.Deposited, totals.InterestReserve)
		share.Quo(share, totals.TotalDeposited)
		if share.Sign() > 0 {
			pos.InterestOwed.Add(pos.InterestOwed, share)
			totals.InterestReserve.Sub(totals.InterestReserve, share)
		}
	}
}
