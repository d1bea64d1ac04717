package events

import (
	"math/big"
	"testing"

	"lendledger/crypto"
)

type bareEvent struct{}

func (bareEvent) EventType() string { return "test.bare" }

func eventAddress(suffix byte) crypto.Address {
	raw := make([]byte, crypto.AddressLength)
	raw[len(raw)-1] = suffix
	return crypto.MustNewAddress(crypto.LendPrefix, raw)
}

func TestBufferRetainsEmissionOrder(t *testing.T) {
	buffer := NewBuffer(8)
	account := eventAddress(0x01)

	buffer.Emit(CollateralDeposited{Account: account, Amount: big.NewInt(100), TotalDeposited: big.NewInt(100)})
	buffer.Emit(LoanDrawn{Account: account, Amount: big.NewInt(50), Borrowed: big.NewInt(50)})

	entries := buffer.Events()
	if len(entries) != 2 {
		t.Fatalf("unexpected entry count: %d", len(entries))
	}
	if entries[0].Type != TypeLendingDeposited || entries[1].Type != TypeLendingBorrowed {
		t.Fatalf("unexpected order: %s, %s", entries[0].Type, entries[1].Type)
	}
	if entries[0].Attributes["amount"] != "100" {
		t.Fatalf("unexpected amount attribute: %s", entries[0].Attributes["amount"])
	}
}

func TestBufferDropsOldestBeyondCapacity(t *testing.T) {
	buffer := NewBuffer(3)
	account := eventAddress(0x01)

	for i := 1; i <= 5; i++ {
		buffer.Emit(CollateralDeposited{
			Account:        account,
			Amount:         big.NewInt(int64(i)),
			TotalDeposited: big.NewInt(int64(i)),
		})
	}

	entries := buffer.Events()
	if len(entries) != 3 {
		t.Fatalf("unexpected entry count: %d", len(entries))
	}
	for i, want := range []string{"3", "4", "5"} {
		if entries[i].Attributes["amount"] != want {
			t.Fatalf("entry %d: got amount %s, want %s", i, entries[i].Attributes["amount"], want)
		}
	}
}

func TestRenderFallsBackToBareType(t *testing.T) {
	buffer := NewBuffer(1)
	buffer.Emit(bareEvent{})

	entries := buffer.Events()
	if len(entries) != 1 || entries[0].Type != "test.bare" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
	if entries[0].Attributes == nil {
		t.Fatalf("attributes map not initialised")
	}
}

type countingEmitter struct {
	seen []string
}

func (c *countingEmitter) Emit(evt Event) {
	c.seen = append(c.seen, evt.EventType())
}

func TestMultiEmitterFansOut(t *testing.T) {
	first := &countingEmitter{}
	second := &countingEmitter{}
	multi := MultiEmitter{first, nil, second}

	multi.Emit(PauseChanged{Paused: true})

	for i, sink := range []*countingEmitter{first, second} {
		if len(sink.seen) != 1 || sink.seen[0] != TypeLendingPauseChanged {
			t.Fatalf("sink %d missed the event: %v", i, sink.seen)
		}
	}
}

func TestPayloadsRenderStableAttributes(t *testing.T) {
	liquidator := eventAddress(0x01)
	target := eventAddress(0x02)

	evt := PositionLiquidated{
		Liquidator: liquidator,
		Target:     target,
		Repaid:     big.NewInt(118),
		Seized:     big.NewInt(100),
		Mode:       "partial",
	}.Event()

	for key, want := range map[string]string{
		"liquidator": liquidator.String(),
		"target":     target.String(),
		"repaid":     "118",
		"seized":     "100",
		"mode":       "partial",
	} {
		if got := evt.Attributes[key]; got != want {
			t.Fatalf("attribute %s: got %s, want %s", key, got, want)
		}
	}

	// The repaid payload only carries a reserve share when one was charged.
	repaid := LoanRepaid{Account: target, Repaid: big.NewInt(10), Remaining: big.NewInt(0)}.Event()
	if _, ok := repaid.Attributes["reserveShare"]; ok {
		t.Fatalf("zero reserve share rendered: %v", repaid.Attributes)
	}
}
