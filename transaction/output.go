package transaction

import "github.com/bsv-blockchain/go-sdk/script"

// TxOutput is a single payment destination. Satoshis may be unresolved
// (Change == true) until the fee engine fills it in.
type TxOutput struct {
	Satoshis      uint64
	LockingScript *script.Script
	Change        bool

	hasSatoshis bool
}

// NewTxOutput builds a fixed-amount output.
func NewTxOutput(satoshis uint64, lockingScript *script.Script) *TxOutput {
	return &TxOutput{Satoshis: satoshis, LockingScript: lockingScript, hasSatoshis: true}
}

// NewChangeOutput builds an output whose amount the fee engine assigns.
func NewChangeOutput(lockingScript *script.Script) *TxOutput {
	return &TxOutput{LockingScript: lockingScript, Change: true}
}

// SetSatoshis resolves a pending amount (used by the fee engine).
func (o *TxOutput) SetSatoshis(v uint64) {
	o.Satoshis = v
	o.hasSatoshis = true
}

// HasSatoshis reports whether an amount has been assigned.
func (o *TxOutput) HasSatoshis() bool { return o.hasSatoshis }

func (o *TxOutput) clone() *TxOutput {
	c := *o
	return &c
}
