package transaction

import (
	"context"
	"testing"

	"github.com/bsv-blockchain/go-sdk/script"
)

func buildAnchoredTx(t *testing.T, height uint32) *Transaction {
	t.Helper()
	a := New()
	lock := script.Script([]byte{0x51})
	a.AddOutput(NewTxOutput(2000, &lock))

	leaf := &PathElement{Offset: 0, Hash: a.TxID(), Txid: true}
	a.MerklePath = &MerklePath{BlockHeight: height, Path: [][]*PathElement{{leaf}}}
	return a
}

func buildSpendingTx(t *testing.T, parent *Transaction) *Transaction {
	t.Helper()
	b := New()
	in := NewTxInput(parent.TxID(), 0, nil)
	in.SourceTransaction = parent
	unlock := script.Script([]byte{0x51})
	in.UnlockingScript = &unlock
	b.Inputs = append(b.Inputs, in)

	lock := script.Script([]byte{0x51})
	b.AddOutput(NewTxOutput(1900, &lock))
	return b
}

func TestBEEFRoundTripPreservesAncestorAndMerklePath(t *testing.T) {
	a := buildAnchoredTx(t, 100)
	b := buildSpendingTx(t, a)

	beef, err := b.BEEFBytes(false)
	if err != nil {
		t.Fatalf("BEEFBytes: %v", err)
	}

	parsed, err := FromBEEFBytes(beef)
	if err != nil {
		t.Fatalf("FromBEEFBytes: %v", err)
	}

	if !parsed.TxID().IsEqual(b.TxID()) {
		t.Fatalf("subject txid mismatch")
	}
	parent := parsed.Inputs[0].SourceTransaction
	if parent == nil {
		t.Fatalf("expected parent to be bound")
	}
	if parent.MerklePath == nil {
		t.Fatalf("expected parent's merkle path to be preserved")
	}
	if parent.MerklePath.BlockHeight != 100 {
		t.Fatalf("block height = %d, want 100", parent.MerklePath.BlockHeight)
	}
}

func TestBEEFScriptsOnlyShortCircuit(t *testing.T) {
	a := buildAnchoredTx(t, 100)
	b := buildSpendingTx(t, a)

	v := NewVerifier(ScriptsOnlyTracker{}, alwaysValidEngine{}, ConstantFeeModel(0))
	ok, err := v.Verify(context.Background(), b)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !ok {
		t.Fatalf("expected verification to succeed")
	}
}

func TestMergeBumpDedupsEqualRootsAtEqualHeight(t *testing.T) {
	a1 := buildAnchoredTx(t, 500)
	a2 := buildAnchoredTx(t, 500)
	a2.LockTime = 1 // otherwise a2 is byte-identical to a1
	a2.invalidateHash()
	if a1.TxID().IsEqual(a2.TxID()) {
		t.Fatalf("test setup: expected a1 and a2 to have distinct txids")
	}

	// Give a1 and a2 leaves of their own (distinct) txids, but build both
	// paths one level up with a hand-picked shared sibling so the
	// resulting root is identical for both, even though the underlying
	// transactions differ. This is the case §4.4 step 2 dedups: same
	// block height, same computed root, merge into one BUMP.
	// a1 and a2 are siblings at the leaf level of the same block's tree:
	// each path combines (a1.txid || a2.txid) into the same parent hash.
	a1.MerklePath.Path = [][]*PathElement{
		{{Offset: 0, Hash: a1.TxID(), Txid: true}},
		{{Offset: 1, Hash: a2.TxID()}},
	}
	root1, err := a1.MerklePath.ComputeRoot(a1.TxID())
	if err != nil {
		t.Fatalf("ComputeRoot a1: %v", err)
	}

	a2.MerklePath.Path = [][]*PathElement{
		{{Offset: 1, Hash: a2.TxID(), Txid: true}},
		{{Offset: 0, Hash: a1.TxID()}},
	}
	root2, err := a2.MerklePath.ComputeRoot(a2.TxID())
	if err != nil {
		t.Fatalf("ComputeRoot a2: %v", err)
	}
	if !root1.IsEqual(root2) {
		t.Fatalf("test setup: expected equal roots, got %s vs %s", root1, root2)
	}

	var bumps []*MerklePath
	idx1 := mergeBump(&bumps, a1.MerklePath)
	idx2 := mergeBump(&bumps, a2.MerklePath)

	if len(bumps) != 1 {
		t.Fatalf("expected exactly one deduplicated BUMP, got %d", len(bumps))
	}
	if idx1 != idx2 {
		t.Fatalf("expected both merkle paths to reference the same BUMP index, got %d and %d", idx1, idx2)
	}
}

func TestAtomicBEEFRejectsUnreachableTransaction(t *testing.T) {
	a := buildAnchoredTx(t, 100)
	b := buildSpendingTx(t, a)

	_, err := b.BEEFBytes(false)
	if err != nil {
		t.Fatalf("BEEFBytes: %v", err)
	}

	unrelated := New()
	unrelatedLock := script.Script([]byte{0x51})
	unrelated.AddOutput(NewTxOutput(1, &unrelatedLock))

	// Splice an extra, unreachable transaction into the payload by
	// rebuilding it through the aggregate type, which doesn't enforce
	// reachability on write (only FromBEEFBytes validates on read).
	agg := NewBeef()
	agg.MergeTransaction(b)
	agg.MergeTransaction(unrelated)

	atomic := wrapAtomic(t, b, agg)
	if _, err := FromBEEFBytes(atomic); err == nil {
		t.Fatalf("expected UnrelatedTx error")
	}
}

func wrapAtomic(t *testing.T, subject *Transaction, agg *Beef) []byte {
	t.Helper()
	body := agg.Bytes()[4:] // strip agg.Bytes()'s own leading version marker
	out := append([]byte{}, uint32ToLEBytes(AtomicBEEFPrefix)...)
	txid := subject.TxID()
	reversed := make([]byte, 32)
	for i, v := range txid {
		reversed[31-i] = v
	}
	out = append(out, reversed...)
	out = append(out, body...)
	return out
}

func uint32ToLEBytes(v uint32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}

type alwaysValidEngine struct{}

func (alwaysValidEngine) Validate(context.Context, *Spend) (bool, error) { return true, nil }
