package crypto

import (
	"bytes"
	"testing"
)

func TestAddressRoundTrip(t *testing.T) {
	raw := make([]byte, AddressLength)
	raw[0] = 0x42
	raw[len(raw)-1] = 0x24

	addr := MustNewAddress(LendPrefix, raw)
	decoded, err := DecodeAddress(addr.String())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !decoded.Equal(addr) {
		t.Fatalf("round trip mismatch: %s vs %s", decoded, addr)
	}
	if decoded.Prefix() != LendPrefix {
		t.Fatalf("unexpected prefix: %s", decoded.Prefix())
	}
}

func TestNewAddressRejectsBadLength(t *testing.T) {
	if _, err := NewAddress(LendPrefix, make([]byte, AddressLength-1)); err == nil {
		t.Fatalf("expected length error")
	}
}

func TestIsZero(t *testing.T) {
	if !(Address{}).IsZero() {
		t.Fatalf("empty address should be zero")
	}
	if !MustNewAddress(LendPrefix, make([]byte, AddressLength)).IsZero() {
		t.Fatalf("all-zero bytes should be zero")
	}
	raw := make([]byte, AddressLength)
	raw[5] = 1
	if MustNewAddress(LendPrefix, raw).IsZero() {
		t.Fatalf("non-zero bytes reported zero")
	}
}

func TestModuleAddressIsDeterministic(t *testing.T) {
	first := ModuleAddress("lending")
	second := ModuleAddress("lending")
	if !first.Equal(second) {
		t.Fatalf("module address not deterministic")
	}
	if first.Equal(ModuleAddress("other")) {
		t.Fatalf("distinct module names collided")
	}
	if first.IsZero() {
		t.Fatalf("module address is zero")
	}
}

func TestKeyDerivesAddress(t *testing.T) {
	key, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	addr := key.PubKey().Address()
	if addr.IsZero() {
		t.Fatalf("derived address is zero")
	}

	restored, err := PrivateKeyFromBytes(key.Bytes())
	if err != nil {
		t.Fatalf("restore key: %v", err)
	}
	if !bytes.Equal(restored.Bytes(), key.Bytes()) {
		t.Fatalf("key bytes changed across restore")
	}
	if !restored.PubKey().Address().Equal(addr) {
		t.Fatalf("restored key derives a different address")
	}
}
