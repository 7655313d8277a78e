package transaction

import (
	"encoding/hex"

	"github.com/bsv-blockchain/go-sdk/script"
	"github.com/pkg/errors"

	"github.com/icellan/bsv-tx-forge/internal/wire"
)

// efMarker is the 6-byte sentinel following version in Extended Format:
// a zero input count that would be ambiguous with Raw, followed by 0xEF.
var efMarker = [6]byte{0x00, 0x00, 0x00, 0x00, 0x00, 0xEF}

// EFBytes serializes the transaction in Extended Format (BRC-30), which
// inlines each input's source satoshis and locking script. Every input
// must have a resolvable source output.
func (tx *Transaction) EFBytes() ([]byte, error) {
	for i, in := range tx.Inputs {
		if in.SourceTxOutput() == nil {
			return nil, errors.Wrapf(ErrMissingSource, "input %d", i)
		}
	}

	w := wire.NewWriter(tx.estimateRawSize())
	w.WriteU32LE(tx.Version)
	w.Write(efMarker[:])
	w.WriteVarInt(uint64(len(tx.Inputs)))
	for _, in := range tx.Inputs {
		writeRawInput(w, in)
		out := in.SourceTxOutput()
		w.WriteU64LE(out.Satoshis)
		var scriptBytes []byte
		if out.LockingScript != nil {
			scriptBytes = *out.LockingScript
		}
		w.WriteVarInt(uint64(len(scriptBytes)))
		w.Write(scriptBytes)
	}
	w.WriteVarInt(uint64(len(tx.Outputs)))
	for _, out := range tx.Outputs {
		writeRawOutput(w, out)
	}
	w.WriteU32LE(tx.LockTime)
	return w.Bytes(), nil
}

// EFHex returns the hex-encoded Extended Format.
func (tx *Transaction) EFHex() (string, error) {
	b, err := tx.EFBytes()
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// FromEFBytes parses an Extended Format transaction, materializing a
// synthetic source_transaction per input sized to source_output_index+1
// with the carried (satoshis, locking_script) at that index.
func FromEFBytes(raw []byte) (*Transaction, error) {
	r := wire.NewReader(raw)
	tx := New()

	version, err := r.ReadU32LE()
	if err != nil {
		return nil, errors.Wrap(ErrBadEFFormat, "version")
	}
	tx.Version = version

	marker, err := r.Read(6)
	if err != nil {
		return nil, errors.Wrap(ErrBadEFFormat, "marker")
	}
	for i, b := range marker {
		if b != efMarker[i] {
			return nil, errors.Wrap(ErrBadEFFormat, "marker mismatch")
		}
	}

	nIn, err := r.ReadVarInt()
	if err != nil {
		return nil, errors.Wrap(ErrBadEFFormat, "input count")
	}
	for i := uint64(0); i < nIn; i++ {
		in, err := readRawInput(r)
		if err != nil {
			return nil, errors.Wrapf(ErrBadEFFormat, "input %d: %s", i, err)
		}
		satoshis, err := r.ReadU64LE()
		if err != nil {
			return nil, errors.Wrapf(ErrBadEFFormat, "input %d source satoshis: %s", i, err)
		}
		scriptLen, err := r.ReadVarInt()
		if err != nil {
			return nil, errors.Wrapf(ErrBadEFFormat, "input %d source script length: %s", i, err)
		}
		scriptBytes, err := r.Read(int(scriptLen))
		if err != nil {
			return nil, errors.Wrapf(ErrBadEFFormat, "input %d source script: %s", i, err)
		}
		s := script.Script(scriptBytes)

		source := New()
		source.Outputs = make([]*TxOutput, in.SourceTxOutIndex+1)
		for j := range source.Outputs {
			source.Outputs[j] = &TxOutput{}
		}
		source.Outputs[in.SourceTxOutIndex] = &TxOutput{Satoshis: satoshis, LockingScript: &s, hasSatoshis: true}
		in.SourceTransaction = source

		tx.Inputs = append(tx.Inputs, in)
	}

	nOut, err := r.ReadVarInt()
	if err != nil {
		return nil, errors.Wrap(ErrBadEFFormat, "output count")
	}
	for i := uint64(0); i < nOut; i++ {
		out, err := readRawOutput(r)
		if err != nil {
			return nil, errors.Wrapf(ErrBadEFFormat, "output %d: %s", i, err)
		}
		tx.Outputs = append(tx.Outputs, out)
	}

	lockTime, err := r.ReadU32LE()
	if err != nil {
		return nil, errors.Wrap(ErrBadEFFormat, "lock_time")
	}
	tx.LockTime = lockTime
	return tx, nil
}

// FromEFHex parses a hex-encoded Extended Format transaction.
func FromEFHex(s string) (*Transaction, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, errors.Wrap(ErrBadEFFormat, err.Error())
	}
	return FromEFBytes(b)
}
