package transaction

import "testing"

// wellKnownMainnetAddress is a widely published example P2PKH address, used
// here only as a known-valid base58check string for exercising address parsing.
const wellKnownMainnetAddress = "1BvBMSEYstWetqTFn5Au4m4GFg7xJaNVN2"

func TestAddP2PKHOutputFixedAmount(t *testing.T) {
	tx := New()
	amount := uint64(1500)
	if err := tx.AddP2PKHOutput(wellKnownMainnetAddress, &amount); err != nil {
		t.Fatalf("AddP2PKHOutput: %v", err)
	}
	if len(tx.Outputs) != 1 {
		t.Fatalf("expected 1 output, got %d", len(tx.Outputs))
	}
	out := tx.Outputs[0]
	if out.Change {
		t.Fatalf("expected a fixed-amount output, got change")
	}
	if !out.HasSatoshis() || out.Satoshis != 1500 {
		t.Fatalf("satoshis = %d, want 1500", out.Satoshis)
	}
	if out.LockingScript == nil || len(*out.LockingScript) != 25 {
		t.Fatalf("expected a 25-byte P2PKH locking script")
	}
}

func TestAddP2PKHOutputChange(t *testing.T) {
	tx := New()
	if err := tx.AddP2PKHOutput(wellKnownMainnetAddress, nil); err != nil {
		t.Fatalf("AddP2PKHOutput: %v", err)
	}
	if len(tx.Outputs) != 1 {
		t.Fatalf("expected 1 output, got %d", len(tx.Outputs))
	}
	if !tx.Outputs[0].Change {
		t.Fatalf("expected a change output when satoshis is nil")
	}
}

func TestAddP2PKHOutputRejectsBadAddress(t *testing.T) {
	tx := New()
	if err := tx.AddP2PKHOutput("not-a-real-address", nil); err == nil {
		t.Fatalf("expected an error for a malformed address")
	}
}
