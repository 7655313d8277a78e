package transaction

import (
	"context"

	"github.com/bsv-blockchain/go-sdk/chainhash"
	"github.com/bsv-blockchain/go-sdk/script"
	"github.com/pkg/errors"
)

// Spend bundles the full script-evaluation context a signature hash or
// script interpreter needs for one input. The interpreter itself is an
// external collaborator (ScriptEngine); this type only carries data.
type Spend struct {
	SourceTXID        *chainhash.Hash
	SourceOutputIndex uint32
	LockingScript     *script.Script
	SourceSatoshis    uint64
	TxVersion         uint32
	OtherInputs       []*TxInput
	UnlockingScript   *script.Script
	InputSequence     uint32
	InputIndex        int
	Outputs           []*TxOutput
	LockTime          uint32
}

// ScriptEngine validates a Spend's unlocking script against its locking
// script and full signing context. The interpreter and ECDSA primitives
// behind it are out of scope for this package.
type ScriptEngine interface {
	Validate(ctx context.Context, spend *Spend) (bool, error)
}

// Verifier performs recursive SPV verification over a transaction's
// input DAG: proof short-circuit at merkle-anchored ancestors, script
// validation otherwise, and value conservation throughout.
type Verifier struct {
	Tracker  ChainTracker
	Engine   ScriptEngine
	FeeModel FeeModel
}

// NewVerifier builds a Verifier. tracker may be ScriptsOnlyTracker{} to
// accept every merkle-path anchor without consulting headers.
func NewVerifier(tracker ChainTracker, engine ScriptEngine, feeModel FeeModel) *Verifier {
	return &Verifier{Tracker: tracker, Engine: engine, FeeModel: feeModel}
}

// Verify walks subject's input DAG breadth-first, seeded with subject
// itself. Structural problems (missing source, missing unlocking script,
// missing output amount) are returned as errors; script or value
// conservation failures return (false, nil).
func (v *Verifier) Verify(ctx context.Context, subject *Transaction) (bool, error) {
	verified := make(map[chainhash.Hash]bool)
	queue := []*Transaction{subject}

	for len(queue) > 0 {
		tx := queue[0]
		queue = queue[1:]

		txid := *tx.TxID()
		if verified[txid] {
			continue
		}

		if tx.MerklePath != nil {
			if _, isScriptsOnly := v.Tracker.(ScriptsOnlyTracker); isScriptsOnly {
				verified[txid] = true
				continue
			}
			ok, err := tx.MerklePath.Verify(ctx, tx.TxID(), v.Tracker)
			if err != nil {
				return false, err
			}
			if ok {
				verified[txid] = true
				continue
			}
			// Fall through to full script validation below.
		}

		if v.FeeModel != nil {
			ok, err := v.checkFee(ctx, tx)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, errors.Wrapf(ErrInsufficientFee, "txid %s", txid.String())
			}
		}

		var inputTotal uint64
		for i, in := range tx.Inputs {
			if in.SourceTransaction == nil {
				return false, errors.Wrapf(ErrMissingSource, "input %d", i)
			}
			if in.UnlockingScript == nil {
				return false, errors.Wrapf(ErrMissingUnlockingScript, "input %d", i)
			}
			sourceOut := in.SourceTxOutput()
			if sourceOut == nil || !sourceOut.HasSatoshis() {
				return false, errors.Wrapf(ErrMissingOutputAmount, "input %d source", i)
			}
			inputTotal += sourceOut.Satoshis

			parentID := *in.SourceTransaction.TxID()
			if !verified[parentID] {
				queue = append(queue, in.SourceTransaction)
			}

			spend := &Spend{
				SourceTXID:        in.SourceTXID,
				SourceOutputIndex: in.SourceTxOutIndex,
				LockingScript:     sourceOut.LockingScript,
				SourceSatoshis:    sourceOut.Satoshis,
				TxVersion:         tx.Version,
				OtherInputs:       otherInputs(tx.Inputs, i),
				UnlockingScript:   in.UnlockingScript,
				InputSequence:     in.sequenceOrDefault(),
				InputIndex:        i,
				Outputs:           tx.Outputs,
				LockTime:          tx.LockTime,
			}
			ok, err := v.Engine.Validate(ctx, spend)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}

		var outputTotal uint64
		for i, out := range tx.Outputs {
			if !out.HasSatoshis() {
				return false, errors.Wrapf(ErrMissingOutputAmount, "output %d", i)
			}
			outputTotal += out.Satoshis
		}
		if outputTotal > inputTotal {
			return false, nil
		}

		verified[txid] = true
	}

	return true, nil
}

func otherInputs(inputs []*TxInput, exclude int) []*TxInput {
	out := make([]*TxInput, 0, len(inputs)-1)
	for i, in := range inputs {
		if i != exclude {
			out = append(out, in)
		}
	}
	return out
}

// checkFee re-derives the minimum fee this transaction's shape would
// require (by cloning it, clearing the first output's amount and
// re-marking it as change, and running the fee model against the
// clone), then compares it against the actual fee paid.
func (v *Verifier) checkFee(ctx context.Context, tx *Transaction) (bool, error) {
	actualFee, err := actualFeePaid(tx)
	if err != nil {
		return false, err
	}

	clone := tx.Clone()
	if len(clone.Outputs) == 0 {
		return false, ErrMissingOutputAmount
	}
	clone.Outputs[0].hasSatoshis = false
	clone.Outputs[0].Change = true

	engine := NewFeeEngine(v.FeeModel, DistributeEqual)
	if err := engine.Apply(ctx, clone); err != nil {
		return false, err
	}
	requiredFee, _ := clone.GetFee()

	return actualFee >= requiredFee, nil
}

func actualFeePaid(tx *Transaction) (uint64, error) {
	var inputTotal uint64
	for i, in := range tx.Inputs {
		satoshis := in.SourceSatoshis()
		if satoshis == nil {
			return 0, errors.Wrapf(ErrMissingSource, "input %d", i)
		}
		inputTotal += *satoshis
	}
	var outputTotal uint64
	for i, out := range tx.Outputs {
		if !out.HasSatoshis() {
			return 0, errors.Wrapf(ErrMissingOutputAmount, "output %d", i)
		}
		outputTotal += out.Satoshis
	}
	if outputTotal > inputTotal {
		return 0, nil
	}
	return inputTotal - outputTotal, nil
}
