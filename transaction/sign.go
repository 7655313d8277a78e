package transaction

import (
	"context"

	"github.com/bsv-blockchain/go-sdk/script"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Sign invokes every templated input's UnlockingScriptTemplate.Sign
// concurrently, awaits the group, and only then assigns results in
// input order (§4.7, §5: "issued concurrently... assignment happens
// sequentially... only if implementations reject as a group").
// Preconditions: every output must have a resolved amount.
func (tx *Transaction) Sign(ctx context.Context) error {
	for i, out := range tx.Outputs {
		if !out.HasSatoshis() {
			if out.Change {
				return errors.Wrapf(ErrMissingChangeAmount, "output %d", i)
			}
			return errors.Wrapf(ErrMissingAmount, "output %d", i)
		}
	}

	results := make([]*script.Script, len(tx.Inputs))
	g, gctx := errgroup.WithContext(ctx)
	for i, in := range tx.Inputs {
		if in.UnlockingScriptTemplate == nil {
			continue
		}
		i, in := i, in
		g.Go(func() error {
			s, err := in.UnlockingScriptTemplate.Sign(gctx, tx, i)
			if err != nil {
				return errors.Wrapf(err, "sign input %d", i)
			}
			results[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, s := range results {
		if s != nil {
			tx.Inputs[i].UnlockingScript = s
		}
	}
	tx.invalidateHash()
	return nil
}
