package transaction

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/pkg/errors"
)

// FeeModel computes the fee a transaction's current shape requires. It
// may introspect scripts and any template length estimates attached to
// inputs; the concrete estimator is an external collaborator.
type FeeModel interface {
	ComputeFee(ctx context.Context, tx *Transaction) (uint64, error)
}

// ConstantFeeModel adapts a fixed fee amount into a FeeModel, matching
// step 1 of §4.6: "if argument is a number, adapt as a constant FeeModel."
type ConstantFeeModel uint64

// ComputeFee always returns the fixed configured amount.
func (c ConstantFeeModel) ComputeFee(context.Context, *Transaction) (uint64, error) {
	return uint64(c), nil
}

// Distribution selects how change is spread across change outputs.
type Distribution int

const (
	// DistributeEqual splits change evenly, remainder to the last output.
	DistributeEqual Distribution = iota
	// DistributeRandom applies a Benford-biased split across change
	// outputs, deterministic given an injected RNG.
	DistributeRandom
)

// FeeEngine binds a FeeModel and a change distribution strategy.
type FeeEngine struct {
	Model        FeeModel
	Distribution Distribution
	RNG          *rand.Rand
}

// NewFeeEngine builds a FeeEngine. A nil RNG defaults to one seeded from
// the current time; tests exercising DistributeRandom should inject one
// explicitly instead.
func NewFeeEngine(model FeeModel, distribution Distribution) *FeeEngine {
	return &FeeEngine{Model: model, Distribution: distribution}
}

// Apply computes the fee for tx, determines the change remaining after
// all non-change outputs and the fee are accounted for, and distributes
// it across change outputs (or drops them if there is no change left).
func (e *FeeEngine) Apply(ctx context.Context, tx *Transaction) error {
	fee, err := e.Model.ComputeFee(ctx, tx)
	if err != nil {
		return errors.Wrap(err, "compute fee")
	}

	var inputTotal uint64
	for i, in := range tx.Inputs {
		satoshis := in.SourceSatoshis()
		if satoshis == nil {
			return errors.Wrapf(ErrMissingSource, "input %d", i)
		}
		inputTotal += *satoshis
	}

	var nonChangeTotal uint64
	var changeOutputs []*TxOutput
	for _, out := range tx.Outputs {
		if out.Change {
			changeOutputs = append(changeOutputs, out)
			continue
		}
		if !out.HasSatoshis() {
			return ErrMissingAmount
		}
		nonChangeTotal += out.Satoshis
	}

	change := int64(inputTotal) - int64(fee) - int64(nonChangeTotal)
	tx.computedFee = fee
	tx.hasFee = true

	if change <= 0 {
		if len(changeOutputs) > 0 {
			defaultLogger().Warn("dropping change outputs, no change remains",
				"fee", fee, "input_total", inputTotal, "non_change_total", nonChangeTotal,
				"dropped", len(changeOutputs))
			kept := tx.Outputs[:0]
			for _, out := range tx.Outputs {
				if !out.Change {
					kept = append(kept, out)
				}
			}
			tx.Outputs = kept
			tx.invalidateHash()
		}
		return nil
	}

	switch e.Distribution {
	case DistributeEqual:
		e.distributeEqual(tx, changeOutputs, uint64(change))
	case DistributeRandom:
		e.distributeRandom(tx, changeOutputs, uint64(change))
	}
	tx.invalidateHash()
	return nil
}

// distributeEqual gives every change output floor(change/k); the dust
// remainder lands on the last output of the transaction overall, which
// may not itself be a change output (§4.6 step 5, equal case; preserved
// per the open question in §9 rather than "fixed").
func (e *FeeEngine) distributeEqual(tx *Transaction, changeOutputs []*TxOutput, change uint64) {
	k := uint64(len(changeOutputs))
	if k == 0 {
		e.addRemainderToLastOutput(tx, change)
		return
	}
	share := change / k
	for _, out := range changeOutputs {
		out.SetSatoshis(share)
	}
	remainder := change - k*share
	if remainder > 0 {
		e.addRemainderToLastOutput(tx, remainder)
	}
}

// distributeRandom applies the Benford-biased allocation of §4.6 step 5
// (random case): each change output starts at 1 satoshi (reserving k),
// then the first k-1 outputs each draw a digit 1..9 uniformly and take
// floor(remaining * log10(1+1/d)) from the remaining pool. The last
// change output's share is left unassigned here; whatever remains is
// absorbed by the same last-output remainder rule as the equal case,
// per the source behavior noted (not a defect) in §9.
func (e *FeeEngine) distributeRandom(tx *Transaction, changeOutputs []*TxOutput, change uint64) {
	k := uint64(len(changeOutputs))
	if k == 0 {
		e.addRemainderToLastOutput(tx, change)
		return
	}
	if change < k {
		e.distributeEqual(tx, changeOutputs, change)
		return
	}

	rng := e.RNG
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	remaining := change - k
	for _, out := range changeOutputs {
		out.SetSatoshis(1)
	}
	for i := uint64(0); i < k-1; i++ {
		d := rng.Intn(9) + 1
		portion := uint64(math.Floor(float64(remaining) * math.Log10(1+1/float64(d))))
		if portion > remaining {
			portion = remaining
		}
		changeOutputs[i].SetSatoshis(changeOutputs[i].Satoshis + portion)
		remaining -= portion
	}
	if remaining > 0 {
		e.addRemainderToLastOutput(tx, remaining)
	}
}

// addRemainderToLastOutput adds amount to the satoshis of the last
// output in the whole transaction, matching the literal "last output in
// the transaction" rule rather than the last change output.
func (e *FeeEngine) addRemainderToLastOutput(tx *Transaction, amount uint64) {
	if len(tx.Outputs) == 0 {
		return
	}
	last := tx.Outputs[len(tx.Outputs)-1]
	base := uint64(0)
	if last.HasSatoshis() {
		base = last.Satoshis
	}
	last.SetSatoshis(base + amount)
}
