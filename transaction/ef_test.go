package transaction

import (
	"testing"

	"github.com/bsv-blockchain/go-sdk/script"
)

func TestEFRoundTripReconstructsSourceOutput(t *testing.T) {
	tx := New()
	in := sourcedInput(t, "0000000000000000000000000000000000000000000000000000000000000002", 1, 5000, []byte{0x51})
	unlock := script.Script([]byte{0x51})
	in.UnlockingScript = &unlock
	tx.Inputs = append(tx.Inputs, in)

	lock := script.Script([]byte{0x76, 0xa9, 0x14})
	tx.AddOutput(NewTxOutput(4900, &lock))

	ef, err := tx.EFBytes()
	if err != nil {
		t.Fatalf("EFBytes: %v", err)
	}

	parsed, err := FromEFBytes(ef)
	if err != nil {
		t.Fatalf("FromEFBytes: %v", err)
	}

	src := parsed.Inputs[0].SourceTxOutput()
	if src == nil {
		t.Fatalf("expected reconstructed source output")
	}
	if src.Satoshis != 5000 {
		t.Fatalf("source satoshis = %d, want 5000", src.Satoshis)
	}
	if len(parsed.Inputs[0].SourceTransaction.Outputs) != 2 {
		t.Fatalf("source outputs length = %d, want 2 (sized to index+1)", len(parsed.Inputs[0].SourceTransaction.Outputs))
	}
}

func TestEFEmitFailsWithoutSource(t *testing.T) {
	tx := New()
	in := NewTxInput(mustHash(t, "0000000000000000000000000000000000000000000000000000000000000003"), 0, nil)
	tx.Inputs = append(tx.Inputs, in)

	if _, err := tx.EFBytes(); err == nil {
		t.Fatalf("expected MissingSource error")
	}
}
