package transaction

import (
	"encoding/hex"

	"github.com/bsv-blockchain/go-sdk/chainhash"
	"github.com/pkg/errors"

	"github.com/icellan/bsv-tx-forge/internal/wire"
)

// BEEFV1 is the version marker for a BRC-62 BEEF payload.
const BEEFV1 uint32 = 4022206465

// AtomicBEEFPrefix is the BRC-95 prefix identifying an Atomic BEEF payload.
const AtomicBEEFPrefix uint32 = 0x01010101

// hasBump flags, written as a single byte following each embedded raw tx.
const (
	beefNoBump  uint8 = 0x00
	beefHasBump uint8 = 0x01
)

// BEEFBytes serializes the transaction together with its ancestor DAG and
// a deduplicated BUMP table (BRC-62). allowPartial, when true, silently
// omits a non-proof-anchored input lacking a source_transaction instead
// of failing.
func (tx *Transaction) BEEFBytes(allowPartial bool) ([]byte, error) {
	order, txByID, err := collectAncestors(tx, allowPartial)
	if err != nil {
		return nil, err
	}

	var bumps []*MerklePath
	bumpIndex := make(map[*Transaction]int)
	for _, id := range order {
		t := txByID[id]
		if t.MerklePath == nil {
			continue
		}
		idx := mergeBump(&bumps, t.MerklePath)
		bumpIndex[t] = idx
	}

	w := wire.NewWriter(256)
	w.WriteU32LE(BEEFV1)
	w.WriteVarInt(uint64(len(bumps)))
	for _, b := range bumps {
		w.Write(b.Bytes())
	}
	w.WriteVarInt(uint64(len(order)))
	for _, id := range order {
		t := txByID[id]
		w.Write(t.Bytes())
		if idx, ok := bumpIndex[t]; ok {
			w.WriteU8(beefHasBump)
			w.WriteVarInt(uint64(idx))
		} else {
			w.WriteU8(beefNoBump)
		}
	}
	return w.Bytes(), nil
}

// BEEFHex returns the hex-encoded BEEF payload.
func (tx *Transaction) BEEFHex(allowPartial bool) (string, error) {
	b, err := tx.BEEFBytes(allowPartial)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// AtomicBEEFBytes wraps BEEFBytes with the BRC-95 subject-txid prefix.
func (tx *Transaction) AtomicBEEFBytes(allowPartial bool) ([]byte, error) {
	beef, err := tx.BEEFBytes(allowPartial)
	if err != nil {
		return nil, err
	}
	w := wire.NewWriter(4 + 32 + len(beef))
	w.WriteU32LE(AtomicBEEFPrefix)
	w.WriteReverse(tx.TxID()[:]) // store in big-endian / natural hex order
	w.Write(beef)
	return w.Bytes(), nil
}

// collectAncestors walks tx's input DAG depth-first, prepending each
// visited node once its ancestors are done and then reversing the list so
// parents end up before children. It stops recursing
// below any node carrying a merkle path (it is a terminal proof anchor).
// Duplicates are suppressed by first-seen order.
func collectAncestors(root *Transaction, allowPartial bool) ([]chainhash.Hash, map[chainhash.Hash]*Transaction, error) {
	txByID := make(map[chainhash.Hash]*Transaction)
	var order []chainhash.Hash
	seen := make(map[chainhash.Hash]bool)

	var visit func(t *Transaction) error
	visit = func(t *Transaction) error {
		id := *t.TxID()
		if seen[id] {
			return nil
		}
		seen[id] = true
		txByID[id] = t

		if t.MerklePath == nil {
			for _, in := range t.Inputs {
				if in.SourceTransaction == nil {
					if allowPartial {
						continue
					}
					return errors.Wrapf(ErrMissingSource, "txid %s", id.String())
				}
				if err := visit(in.SourceTransaction); err != nil {
					return err
				}
			}
		}
		order = append([]chainhash.Hash{id}, order...)
		return nil
	}
	if err := visit(root); err != nil {
		return nil, nil, err
	}

	// visit() prepends each node's own id after its ancestors have been
	// prepended, which places parents after children; reverse to restore
	// the "parents precede children" order required by §4.4.
	reversed := make([]chainhash.Hash, len(order))
	for i, id := range order {
		reversed[len(order)-1-i] = id
	}
	return reversed, txByID, nil
}

// mergeBump applies the §4.4 BUMP dedup algorithm: reuse an identical or
// equal-root/equal-height BUMP, otherwise append a new one.
func mergeBump(bumps *[]*MerklePath, mp *MerklePath) int {
	for i, existing := range *bumps {
		if existing == mp {
			return i
		}
	}
	for i, existing := range *bumps {
		if existing.BlockHeight != mp.BlockHeight {
			continue
		}
		rootA, errA := existing.ComputeRoot(firstLeafTxid(existing))
		rootB, errB := mp.ComputeRoot(firstLeafTxid(mp))
		if errA == nil && errB == nil && rootA.IsEqual(rootB) {
			_ = existing.Combine(mp)
			return i
		}
	}
	*bumps = append(*bumps, mp)
	return len(*bumps) - 1
}

// firstLeafTxid returns the txid of the first level-0 leaf carrying one,
// used as the probe value when comparing two paths' computed roots.
func firstLeafTxid(mp *MerklePath) *chainhash.Hash {
	if len(mp.Path) == 0 {
		return nil
	}
	for _, leaf := range mp.Path[0] {
		if leaf.Hash != nil {
			return leaf.Hash
		}
	}
	return nil
}

// FromBEEFBytes parses a BEEF or Atomic BEEF payload, dispatching on the
// leading version/prefix, and returns the subject transaction with its
// ancestor DAG and merkle paths bound.
func FromBEEFBytes(raw []byte) (*Transaction, error) {
	r := wire.NewReader(raw)
	version, err := r.ReadU32LE()
	if err != nil {
		return nil, errors.Wrap(ErrBadBEEFFormat, "version")
	}

	switch version {
	case AtomicBEEFPrefix:
		subjectBytes, err := r.ReadReverse(32)
		if err != nil {
			defaultLogger().Warn("atomic BEEF parse failed", "error", err, "field", "subject txid")
			return nil, errors.Wrap(ErrBadAtomicBEEFFormat, "subject txid")
		}
		subjectTxid, err := chainhash.NewHash(subjectBytes)
		if err != nil {
			defaultLogger().Warn("atomic BEEF parse failed", "error", err, "field", "subject txid decode")
			return nil, errors.Wrap(ErrBadAtomicBEEFFormat, err.Error())
		}
		_, txByID, err := parseBEEFBody(r.ReadRemainder())
		if err != nil {
			defaultLogger().Warn("atomic BEEF body parse failed", "error", err)
			return nil, err
		}
		subject, ok := txByID[*subjectTxid]
		if !ok {
			return nil, errors.Wrapf(ErrUnknownInputTx, "subject %s", subjectTxid)
		}
		if err := verifyAtomicReachability(subject, txByID); err != nil {
			defaultLogger().Warn("atomic BEEF reachability check failed", "error", err, "subject", subjectTxid.String())
			return nil, err
		}
		return subject, nil
	case BEEFV1:
		tx, _, err := parseBEEFBody(raw[4:])
		if err != nil {
			defaultLogger().Warn("BEEF body parse failed", "error", err)
		}
		return tx, err
	default:
		return nil, errors.Wrapf(ErrBadBEEFFormat, "unknown version %d", version)
	}
}

// FromBEEFHex parses a hex-encoded BEEF or Atomic BEEF payload.
func FromBEEFHex(s string) (*Transaction, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, errors.Wrap(ErrBadBEEFFormat, err.Error())
	}
	return FromBEEFBytes(b)
}

// parseBEEFBody reads the BUMP table and transaction set following a
// BEEF version marker, links ancestors, and returns the last (subject)
// transaction read alongside the full set keyed by TXID.
func parseBEEFBody(body []byte) (*Transaction, map[chainhash.Hash]*Transaction, error) {
	r := wire.NewReader(body)

	nBumps, err := r.ReadVarInt()
	if err != nil {
		return nil, nil, errors.Wrap(ErrBadBEEFFormat, "bump count")
	}
	bumps := make([]*MerklePath, 0, nBumps)
	for i := uint64(0); i < nBumps; i++ {
		mp, err := readMerklePath(r)
		if err != nil {
			return nil, nil, errors.Wrapf(ErrBadBEEFFormat, "bump %d: %s", i, err)
		}
		bumps = append(bumps, mp)
	}

	nTxs, err := r.ReadVarInt()
	if err != nil {
		return nil, nil, errors.Wrap(ErrBadBEEFFormat, "tx count")
	}

	txByID := make(map[chainhash.Hash]*Transaction)
	var order []*Transaction
	bumpOf := make(map[*Transaction]*MerklePath)
	for i := uint64(0); i < nTxs; i++ {
		t, err := readRaw(r)
		if err != nil {
			return nil, nil, errors.Wrapf(ErrBadBEEFFormat, "tx %d: %s", i, err)
		}
		flag, err := r.ReadU8()
		if err != nil {
			return nil, nil, errors.Wrapf(ErrBadBEEFFormat, "tx %d bump flag: %s", i, err)
		}
		if flag == beefHasBump {
			idx, err := r.ReadVarInt()
			if err != nil {
				return nil, nil, errors.Wrapf(ErrBadBEEFFormat, "tx %d bump index: %s", i, err)
			}
			if int(idx) >= len(bumps) {
				return nil, nil, errors.Wrapf(ErrInvalidBumpIndex, "tx %d references bump %d", i, idx)
			}
			bumpOf[t] = bumps[idx]
		}
		txByID[*t.TxID()] = t
		order = append(order, t)
	}

	for _, t := range order {
		if mp, ok := bumpOf[t]; ok {
			t.MerklePath = mp
			continue
		}
		for _, in := range t.Inputs {
			parent, ok := txByID[*in.SourceTXID]
			if !ok {
				return nil, nil, errors.Wrapf(ErrUnknownInputTx, "%s", in.SourceTXID)
			}
			in.SourceTransaction = parent
		}
	}

	if len(order) == 0 {
		return nil, nil, errors.Wrap(ErrBadBEEFFormat, "no transactions in payload")
	}
	return order[len(order)-1], txByID, nil
}

// verifyAtomicReachability enforces that every transaction embedded in
// an Atomic BEEF payload is reachable from the subject by following
// inputs, skipping descent under proof-anchored (merkle-path-carrying)
// nodes, which are terminal witnesses.
func verifyAtomicReachability(subject *Transaction, txByID map[chainhash.Hash]*Transaction) error {
	reached := make(map[chainhash.Hash]bool)
	var walk func(t *Transaction)
	walk = func(t *Transaction) {
		id := *t.TxID()
		if reached[id] {
			return
		}
		reached[id] = true
		if t.MerklePath != nil {
			return
		}
		for _, in := range t.Inputs {
			if in.SourceTransaction != nil {
				walk(in.SourceTransaction)
			}
		}
	}
	walk(subject)

	for id := range txByID {
		if !reached[id] {
			return errors.Wrapf(ErrUnrelatedTx, "%s", id.String())
		}
	}
	return nil
}
