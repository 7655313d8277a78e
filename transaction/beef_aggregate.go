package transaction

import (
	"encoding/hex"

	"github.com/bsv-blockchain/go-sdk/chainhash"
	"github.com/pkg/errors"

	"github.com/icellan/bsv-tx-forge/internal/wire"
)

// Beef is a standalone BUMP/transaction set, supplementing the
// Transaction-centric BEEF/Atomic-BEEF API with the batch shape a
// counterparty's InputBEEF payload actually takes: several subject
// transactions that may share ancestors and BUMPs.
type Beef struct {
	Version      uint32
	BUMPs        []*MerklePath
	Transactions map[chainhash.Hash]*Transaction
}

// NewBeef creates an empty BEEF aggregate.
func NewBeef() *Beef {
	return &Beef{Version: BEEFV1, Transactions: make(map[chainhash.Hash]*Transaction)}
}

// MergeTransaction inserts tx (and, transitively, every source
// transaction it references) into the set, applying the same BUMP
// dedup rule §4.4 uses when emitting a single transaction's BEEF.
func (b *Beef) MergeTransaction(tx *Transaction) {
	id := *tx.TxID()
	if _, ok := b.Transactions[id]; ok {
		return
	}
	b.Transactions[id] = tx
	if tx.MerklePath != nil {
		mergeBump(&b.BUMPs, tx.MerklePath)
	}
	for _, in := range tx.Inputs {
		if in.SourceTransaction != nil {
			b.MergeTransaction(in.SourceTransaction)
		}
	}
}

// FindTransaction looks up a transaction by TXID.
func (b *Beef) FindTransaction(txid *chainhash.Hash) *Transaction {
	return b.Transactions[*txid]
}

// FindBumpByHash returns the BUMP covering txid at its level-0 leaves,
// if any.
func (b *Beef) FindBumpByHash(txid *chainhash.Hash) *MerklePath {
	for _, bump := range b.BUMPs {
		if len(bump.Path) == 0 {
			continue
		}
		for _, leaf := range bump.Path[0] {
			if leaf.Hash != nil && leaf.Hash.IsEqual(txid) {
				return bump
			}
		}
	}
	return nil
}

// ValidateTransactions performs a cheaper structural pass than full SPV:
// every transaction either carries its own merkle path or has every
// input's source present in the set (directly or transitively).
func (b *Beef) ValidateTransactions() error {
	resolved := make(map[chainhash.Hash]bool)
	var resolve func(t *Transaction) bool
	resolve = func(t *Transaction) bool {
		id := *t.TxID()
		if v, ok := resolved[id]; ok {
			return v
		}
		if t.MerklePath != nil {
			resolved[id] = true
			return true
		}
		resolved[id] = true // break cycles defensively; TXIDs can't cycle by construction
		for _, in := range t.Inputs {
			parent, ok := b.Transactions[*in.SourceTXID]
			if !ok {
				resolved[id] = false
				return false
			}
			if !resolve(parent) {
				resolved[id] = false
				return false
			}
		}
		return true
	}

	for id, tx := range b.Transactions {
		if !resolve(tx) {
			return errors.Wrapf(ErrUnknownInputTx, "%s", id.String())
		}
	}
	return nil
}

// Bytes serializes the aggregate in the same BUMP-table-then-transactions
// layout §4.4 describes, in transaction-map iteration order (callers
// that need a specific topological order should build it via a single
// subject Transaction's BEEFBytes instead).
func (b *Beef) Bytes() []byte {
	w := wire.NewWriter(256)
	w.WriteU32LE(b.Version)
	w.WriteVarInt(uint64(len(b.BUMPs)))
	for _, bump := range b.BUMPs {
		w.Write(bump.Bytes())
	}
	w.WriteVarInt(uint64(len(b.Transactions)))
	for _, tx := range b.Transactions {
		w.Write(tx.Bytes())
		idx := -1
		if tx.MerklePath != nil {
			for i, bump := range b.BUMPs {
				if bump == tx.MerklePath {
					idx = i
					break
				}
			}
		}
		if idx >= 0 {
			w.WriteU8(beefHasBump)
			w.WriteVarInt(uint64(idx))
		} else {
			w.WriteU8(beefNoBump)
		}
	}
	return w.Bytes()
}

// Hex returns the hex-encoded aggregate.
func (b *Beef) Hex() string {
	return hex.EncodeToString(b.Bytes())
}
