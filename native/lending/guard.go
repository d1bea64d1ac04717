package lending

// callGuard is the whole-ledger reentrancy latch. External asset transfers may
// call back into the engine before the original operation finishes; the latch
// makes such calls fail with ErrReentrantCall instead of corrupting state.
//
// The ledger executes operations as a strictly serialized sequence, so the
// guard is a plain bool rather than a mutex: a reentrant call arrives on the
// same goroutine and must be rejected, not block.
type callGuard struct {
	entered bool
}

// enter acquires the latch for the duration of a mutating operation. The
// returned release function must run on every exit path.
func (g *callGuard) enter() (func(), error) {
	if g.entered {
		return nil, ErrReentrantCall
	}
	g.entered = true
	return func() { g.entered = false }, nil
}
