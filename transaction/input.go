package transaction

import (
	"context"

	"github.com/bsv-blockchain/go-sdk/chainhash"
	"github.com/bsv-blockchain/go-sdk/script"
)

// DefaultSequenceNumber is the sequence value assumed when an input does
// not carry one explicitly.
const DefaultSequenceNumber uint32 = 0xFFFFFFFF

// UnlockingTemplate is the capability an input's script is produced
// through. It is a pluggable collaborator: the interpreter and key
// material behind it are out of scope for this package.
type UnlockingTemplate interface {
	Sign(ctx context.Context, tx *Transaction, inputIndex int) (*script.Script, error)
	EstimateLength(ctx context.Context, tx *Transaction, inputIndex int) (uint64, error)
}

// TxInput is one spent outpoint plus whatever this package needs to know
// about its source in order to serialize, fee, sign, or verify it.
type TxInput struct {
	SourceTXID        *chainhash.Hash
	SourceTxOutIndex  uint32
	SourceTransaction *Transaction

	UnlockingScript         *script.Script
	UnlockingScriptTemplate UnlockingTemplate

	Sequence uint32

	hasSequence bool
}

// NewTxInput builds an input spending (sourceTXID, sourceOutIndex). Either
// sourceTXID or a later SetSourceTransaction call must supply a source;
// both may be nil only transiently before one is set.
func NewTxInput(sourceTXID *chainhash.Hash, sourceOutIndex uint32, tmpl UnlockingTemplate) *TxInput {
	return &TxInput{
		SourceTXID:              sourceTXID,
		SourceTxOutIndex:        sourceOutIndex,
		UnlockingScriptTemplate: tmpl,
		Sequence:                DefaultSequenceNumber,
	}
}

// SetSourceTransaction attaches a back-reference to the funding
// transaction, deriving SourceTXID from it if not already set.
func (in *TxInput) SetSourceTransaction(tx *Transaction) {
	in.SourceTransaction = tx
	if in.SourceTXID == nil {
		in.SourceTXID = tx.TxID()
	}
}

// SetSequence overrides the default sequence number.
func (in *TxInput) SetSequence(seq uint32) {
	in.Sequence = seq
	in.hasSequence = true
}

// sequenceOrDefault returns the sequence to serialize, defaulting to
// DefaultSequenceNumber when the caller never set one explicitly.
func (in *TxInput) sequenceOrDefault() uint32 {
	if in.hasSequence || in.Sequence != 0 {
		return in.Sequence
	}
	return DefaultSequenceNumber
}

// SourceTxOutput resolves the funding output this input spends, or nil if
// no source transaction is attached.
func (in *TxInput) SourceTxOutput() *TxOutput {
	if in.SourceTransaction == nil {
		return nil
	}
	if int(in.SourceTxOutIndex) >= len(in.SourceTransaction.Outputs) {
		return nil
	}
	return in.SourceTransaction.Outputs[in.SourceTxOutIndex]
}

// SourceSatoshis returns the spent output's value, or nil if unresolved.
func (in *TxInput) SourceSatoshis() *uint64 {
	out := in.SourceTxOutput()
	if out == nil || !out.hasSatoshis {
		return nil
	}
	v := out.Satoshis
	return &v
}

func (in *TxInput) clone() *TxInput {
	c := *in
	return &c
}
