// Package transaction implements Bitcoin transaction assembly,
// serialization in Raw/Extended/BEEF/Atomic-BEEF form, fee and change
// computation, signing, and recursive SPV verification.
package transaction

import (
	"encoding/hex"
	"log/slog"

	"github.com/bsv-blockchain/go-sdk/chainhash"
	crypto "github.com/bsv-blockchain/go-sdk/primitives/hash"
	"github.com/bsv-blockchain/go-sdk/script"
	"github.com/bsv-blockchain/go-sdk/transaction/template/p2pkh"
	"github.com/pkg/errors"

	"github.com/icellan/bsv-tx-forge/internal/wire"
)

// Transaction is the central aggregate: an ordered set of inputs and
// outputs plus the bookkeeping needed to serialize, fee, sign, and verify
// it.
type Transaction struct {
	Version  uint32
	LockTime uint32
	Inputs   []*TxInput
	Outputs  []*TxOutput

	// Metadata is free-form and never serialized.
	Metadata map[string]any

	// MerklePath is the inclusion proof this transaction carries, if any.
	MerklePath *MerklePath

	cachedHash  *chainhash.Hash
	computedFee uint64
	hasFee      bool
}

// GetFee returns the fee last computed by the fee engine, if any.
func (tx *Transaction) GetFee() (uint64, bool) {
	return tx.computedFee, tx.hasFee
}

// New builds an empty transaction with version 1 and lock_time 0.
func New() *Transaction {
	return &Transaction{
		Version:  1,
		Metadata: make(map[string]any),
	}
}

// invalidateHash clears the memoized identity; called by every mutator
// that changes the serialized bytes.
func (tx *Transaction) invalidateHash() {
	tx.cachedHash = nil
}

// AddInput appends a spending input. An input lacking both SourceTXID and
// SourceTransaction is rejected immediately.
func (tx *Transaction) AddInput(in *TxInput) error {
	if in.SourceTXID == nil && in.SourceTransaction == nil {
		return ErrMissingSource
	}
	tx.Inputs = append(tx.Inputs, in)
	tx.invalidateHash()
	return nil
}

// AddOutput appends a payment output.
func (tx *Transaction) AddOutput(out *TxOutput) {
	tx.Outputs = append(tx.Outputs, out)
	tx.invalidateHash()
}

// AddP2PKHOutput adds a pay-to-pubkey-hash output for address. When
// satoshis is nil the output is added as a pending change output.
func (tx *Transaction) AddP2PKHOutput(address string, satoshis *uint64) error {
	addr, err := script.NewAddressFromString(address)
	if err != nil {
		return errors.Wrapf(err, "parse address %s", address)
	}
	lockingScript, err := p2pkh.Lock(addr)
	if err != nil {
		return errors.Wrapf(err, "locking script for address %s", address)
	}
	if satoshis == nil {
		tx.AddOutput(NewChangeOutput(lockingScript))
		return nil
	}
	tx.AddOutput(NewTxOutput(*satoshis, lockingScript))
	return nil
}

// UpdateMetadata merges key/value pairs into the transaction's
// non-serialized metadata map.
func (tx *Transaction) UpdateMetadata(kv map[string]any) {
	if tx.Metadata == nil {
		tx.Metadata = make(map[string]any)
	}
	for k, v := range kv {
		tx.Metadata[k] = v
	}
}

// Hash returns the double-SHA256 of the Raw encoding in little-endian
// (internal, wire) byte order, memoized until the next mutation.
func (tx *Transaction) Hash() *chainhash.Hash {
	if tx.cachedHash != nil {
		return tx.cachedHash
	}
	sum := crypto.Sha256d(tx.Bytes())
	h, _ := chainhash.NewHash(sum)
	tx.cachedHash = h
	return h
}

// TxID returns the transaction identifier. chainhash.Hash stores bytes in
// wire order and renders String() reversed, giving big-endian / natural
// reading order in hex.
func (tx *Transaction) TxID() *chainhash.Hash {
	return tx.Hash()
}

// ID returns the hex TxID.
func (tx *Transaction) ID() string {
	return tx.TxID().String()
}

// Bytes serializes the transaction in classic Raw form.
func (tx *Transaction) Bytes() []byte {
	w := wire.NewWriter(tx.estimateRawSize())
	w.WriteU32LE(tx.Version)
	w.WriteVarInt(uint64(len(tx.Inputs)))
	for _, in := range tx.Inputs {
		writeRawInput(w, in)
	}
	w.WriteVarInt(uint64(len(tx.Outputs)))
	for _, out := range tx.Outputs {
		writeRawOutput(w, out)
	}
	w.WriteU32LE(tx.LockTime)
	return w.Bytes()
}

// Hex returns the Raw hex encoding.
func (tx *Transaction) Hex() string {
	return hex.EncodeToString(tx.Bytes())
}

func (tx *Transaction) estimateRawSize() int {
	size := 4 + 4 + wire.VarIntLen(uint64(len(tx.Inputs))) + wire.VarIntLen(uint64(len(tx.Outputs)))
	for _, in := range tx.Inputs {
		scriptLen := 0
		if in.UnlockingScript != nil {
			scriptLen = len(*in.UnlockingScript)
		}
		size += 32 + 4 + wire.VarIntLen(uint64(scriptLen)) + scriptLen + 4
	}
	for _, out := range tx.Outputs {
		scriptLen := 0
		if out.LockingScript != nil {
			scriptLen = len(*out.LockingScript)
		}
		size += 8 + wire.VarIntLen(uint64(scriptLen)) + scriptLen
	}
	return size
}

func writeRawInput(w *wire.Writer, in *TxInput) {
	if in.SourceTXID != nil {
		w.WriteReverse(in.SourceTXID[:])
	} else {
		w.Write(make([]byte, 32))
	}
	w.WriteU32LE(in.SourceTxOutIndex)
	var scriptBytes []byte
	if in.UnlockingScript != nil {
		scriptBytes = *in.UnlockingScript
	}
	w.WriteVarInt(uint64(len(scriptBytes)))
	w.Write(scriptBytes)
	w.WriteU32LE(in.sequenceOrDefault())
}

func writeRawOutput(w *wire.Writer, out *TxOutput) {
	w.WriteU64LE(out.Satoshis)
	var scriptBytes []byte
	if out.LockingScript != nil {
		scriptBytes = *out.LockingScript
	}
	w.WriteVarInt(uint64(len(scriptBytes)))
	w.Write(scriptBytes)
}

// FromRawBytes parses a classic Raw transaction.
func FromRawBytes(raw []byte) (*Transaction, error) {
	r := wire.NewReader(raw)
	tx, err := readRaw(r)
	if err != nil {
		return nil, errors.Wrap(err, "parse raw transaction")
	}
	return tx, nil
}

// FromRawHex parses a hex-encoded Raw transaction.
func FromRawHex(s string) (*Transaction, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, errors.Wrap(ErrBadRawFormat, err.Error())
	}
	return FromRawBytes(b)
}

func readRaw(r *wire.Reader) (*Transaction, error) {
	tx := New()
	version, err := r.ReadU32LE()
	if err != nil {
		return nil, errors.Wrap(ErrBadRawFormat, "version")
	}
	tx.Version = version

	nIn, err := r.ReadVarInt()
	if err != nil {
		return nil, errors.Wrap(ErrBadRawFormat, "input count")
	}
	for i := uint64(0); i < nIn; i++ {
		in, err := readRawInput(r)
		if err != nil {
			return nil, errors.Wrapf(ErrBadRawFormat, "input %d: %s", i, err)
		}
		tx.Inputs = append(tx.Inputs, in)
	}

	nOut, err := r.ReadVarInt()
	if err != nil {
		return nil, errors.Wrap(ErrBadRawFormat, "output count")
	}
	for i := uint64(0); i < nOut; i++ {
		out, err := readRawOutput(r)
		if err != nil {
			return nil, errors.Wrapf(ErrBadRawFormat, "output %d: %s", i, err)
		}
		tx.Outputs = append(tx.Outputs, out)
	}

	lockTime, err := r.ReadU32LE()
	if err != nil {
		return nil, errors.Wrap(ErrBadRawFormat, "lock_time")
	}
	tx.LockTime = lockTime
	return tx, nil
}

func readRawInput(r *wire.Reader) (*TxInput, error) {
	txidBytes, err := r.ReadReverse(32)
	if err != nil {
		return nil, errors.Wrap(err, "source txid")
	}
	txid, err := chainhash.NewHash(txidBytes)
	if err != nil {
		return nil, errors.Wrap(err, "source txid")
	}
	vout, err := r.ReadU32LE()
	if err != nil {
		return nil, errors.Wrap(err, "source output index")
	}
	scriptLen, err := r.ReadVarInt()
	if err != nil {
		return nil, errors.Wrap(err, "unlocking script length")
	}
	scriptBytes, err := r.Read(int(scriptLen))
	if err != nil {
		return nil, errors.Wrap(err, "unlocking script")
	}
	seq, err := r.ReadU32LE()
	if err != nil {
		return nil, errors.Wrap(err, "sequence")
	}
	in := &TxInput{SourceTXID: txid, SourceTxOutIndex: vout}
	in.SetSequence(seq)
	if len(scriptBytes) > 0 {
		s := script.Script(scriptBytes)
		in.UnlockingScript = &s
	}
	return in, nil
}

func readRawOutput(r *wire.Reader) (*TxOutput, error) {
	satoshis, err := r.ReadU64LE()
	if err != nil {
		return nil, errors.Wrap(err, "satoshis")
	}
	scriptLen, err := r.ReadVarInt()
	if err != nil {
		return nil, errors.Wrap(err, "locking script length")
	}
	scriptBytes, err := r.Read(int(scriptLen))
	if err != nil {
		return nil, errors.Wrap(err, "locking script")
	}
	s := script.Script(scriptBytes)
	return &TxOutput{Satoshis: satoshis, LockingScript: &s, hasSatoshis: true}, nil
}

// Clone copies each input and output record; the scripts and source
// transactions they point to, MerklePath and Metadata are shared, not
// duplicated.
func (tx *Transaction) Clone() *Transaction {
	c := &Transaction{
		Version:    tx.Version,
		LockTime:   tx.LockTime,
		Metadata:   tx.Metadata,
		MerklePath: tx.MerklePath,
	}
	for _, in := range tx.Inputs {
		c.Inputs = append(c.Inputs, in.clone())
	}
	for _, out := range tx.Outputs {
		c.Outputs = append(c.Outputs, out.clone())
	}
	return c
}

func defaultLogger() *slog.Logger {
	return slog.Default()
}
