package transaction

import (
	"bytes"
	"testing"

	"github.com/bsv-blockchain/go-sdk/script"
)

func TestParseScriptOffsetsSlicesExactScripts(t *testing.T) {
	tx := New()

	s1 := script.Script(bytes.Repeat([]byte{0xAA}, 23))
	s2 := script.Script(bytes.Repeat([]byte{0xBB}, 106))
	in1 := NewTxInput(mustHash(t, "0000000000000000000000000000000000000000000000000000000000000001"), 0, nil)
	in1.UnlockingScript = &s1
	in2 := NewTxInput(mustHash(t, "0000000000000000000000000000000000000000000000000000000000000002"), 1, nil)
	in2.UnlockingScript = &s2
	tx.Inputs = append(tx.Inputs, in1, in2)

	s3 := script.Script(bytes.Repeat([]byte{0xCC}, 25))
	tx.AddOutput(NewTxOutput(1000, &s3))

	raw := tx.Bytes()
	offsets, err := ParseScriptOffsets(raw)
	if err != nil {
		t.Fatalf("ParseScriptOffsets: %v", err)
	}

	if len(offsets.Inputs) != 2 || len(offsets.Outputs) != 1 {
		t.Fatalf("unexpected offset counts: %+v", offsets)
	}

	if !bytes.Equal(offsets.Inputs[0].Slice(raw), s1) {
		t.Fatalf("input 0 script slice mismatch")
	}
	if !bytes.Equal(offsets.Inputs[1].Slice(raw), s2) {
		t.Fatalf("input 1 script slice mismatch")
	}
	if !bytes.Equal(offsets.Outputs[0].Slice(raw), s3) {
		t.Fatalf("output 0 script slice mismatch")
	}
	if offsets.Inputs[0].Length != 23 || offsets.Inputs[1].Length != 106 || offsets.Outputs[0].Length != 25 {
		t.Fatalf("unexpected script lengths: %+v", offsets)
	}
}
