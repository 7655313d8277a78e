package transaction

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/bsv-blockchain/go-sdk/script"
)

func buildSampleRawTx(t *testing.T) *Transaction {
	t.Helper()
	tx := New()
	tx.Version = 1
	tx.LockTime = 0

	in := NewTxInput(mustHash(t, "0000000000000000000000000000000000000000000000000000000000000001"), 0, nil)
	in.SetSequence(0xFFFFFFFF)
	unlock := script.Script([]byte{0x51})
	in.UnlockingScript = &unlock
	tx.Inputs = append(tx.Inputs, in)

	lock := script.Script([]byte{0x76, 0xa9, 0x14, 0x00})
	tx.AddOutput(NewTxOutput(900, &lock))
	return tx
}

func TestRawRoundTrip(t *testing.T) {
	tx := buildSampleRawTx(t)
	raw := tx.Bytes()

	parsed, err := FromRawBytes(raw)
	if err != nil {
		t.Fatalf("FromRawBytes: %v", err)
	}

	if !bytes.Equal(parsed.Bytes(), raw) {
		t.Fatalf("round trip mismatch")
	}
	if parsed.Version != tx.Version || parsed.LockTime != tx.LockTime {
		t.Fatalf("version/locktime mismatch")
	}
	if len(parsed.Inputs) != 1 || len(parsed.Outputs) != 1 {
		t.Fatalf("input/output counts mismatch")
	}
	if parsed.Outputs[0].Satoshis != 900 {
		t.Fatalf("output satoshis = %d, want 900", parsed.Outputs[0].Satoshis)
	}
}

func TestTxIDHexIsBigEndian(t *testing.T) {
	tx := buildSampleRawTx(t)
	id := tx.ID()
	if len(id) != 64 {
		t.Fatalf("txid hex length = %d, want 64", len(id))
	}
	h := tx.Hash()
	reversed := make([]byte, 32)
	for i, b := range h[:] {
		reversed[31-i] = b
	}
	if want := hex.EncodeToString(reversed); id != want {
		t.Fatalf("txid hex = %s, want byte-reversed hash %s", id, want)
	}
}

func TestHashCacheInvalidatedByMutation(t *testing.T) {
	tx := buildSampleRawTx(t)
	h1 := tx.Hash()

	lock := script.Script([]byte{0x51})
	tx.AddOutput(NewTxOutput(1, &lock))
	h2 := tx.Hash()

	if h1.IsEqual(h2) {
		t.Fatalf("expected hash to change after AddOutput")
	}

	fresh, _ := FromRawBytes(tx.Bytes())
	if !fresh.Hash().IsEqual(h2) {
		t.Fatalf("cached hash does not match a fresh hash of the same bytes")
	}
}
