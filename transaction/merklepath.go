package transaction

import (
	"context"

	"github.com/bsv-blockchain/go-sdk/chainhash"
	crypto "github.com/bsv-blockchain/go-sdk/primitives/hash"
	"github.com/pkg/errors"

	"github.com/icellan/bsv-tx-forge/internal/wire"
)

// ChainTracker answers whether a merkle root is valid for a given block
// height. The sentinel value ScriptsOnlyTracker bypasses header checks entirely,
// used by the Verifier's proof short-circuit.
type ChainTracker interface {
	IsValidRootForHeight(ctx context.Context, root *chainhash.Hash, height uint32) (bool, error)
}

// ScriptsOnlyTracker is the ChainTracker that accepts every merkle-path
// anchor without consulting headers, matching the "scripts_only" sentinel
// in §4.8 step 2 of the verification algorithm.
type ScriptsOnlyTracker struct{}

// IsValidRootForHeight always returns true; used when the caller only
// wants script-level validation.
func (ScriptsOnlyTracker) IsValidRootForHeight(context.Context, *chainhash.Hash, uint32) (bool, error) {
	return true, nil
}

// PathElement is one leaf of a merkle path level.
type PathElement struct {
	Offset    uint64
	Hash      *chainhash.Hash
	Txid      bool
	Duplicate bool
}

// MerklePath is a BUMP (BRC-74): a compact proof that a transaction is
// included under a block's merkle root at a given height.
type MerklePath struct {
	BlockHeight uint32
	Path        [][]*PathElement
}

// ComputeRoot derives the merkle root this path proves inclusion under,
// for the leaf matching txid.
func (mp *MerklePath) ComputeRoot(txid *chainhash.Hash) (*chainhash.Hash, error) {
	if len(mp.Path) == 0 {
		return nil, errors.New("merkle path: empty")
	}
	// Locate the starting leaf and working hash at level 0.
	var working *chainhash.Hash
	var workingOffset uint64
	for _, leaf := range mp.Path[0] {
		if leaf.Hash != nil && leaf.Hash.IsEqual(txid) {
			working = leaf.Hash
			workingOffset = leaf.Offset
			break
		}
	}
	if working == nil {
		return nil, errors.Errorf("merkle path: txid %s not found at leaf level", txid)
	}

	// mp.Path[0] is the leaf level itself; levels 1..height-1 supply the
	// sibling needed to combine up to the next level. A single-leaf block
	// (height 1) needs no combination: the leaf hash is already the root.
	for level := 1; level < len(mp.Path); level++ {
		siblingOffset := workingOffset ^ 1
		sibling := findLeaf(mp.Path[level], siblingOffset)
		if sibling == nil {
			return nil, errors.Errorf("merkle path: missing sibling at level %d offset %d", level, siblingOffset)
		}
		var left, right *chainhash.Hash
		if workingOffset%2 == 0 {
			left, right = working, sibling.Hash
		} else {
			left, right = sibling.Hash, working
		}
		combined := append(append([]byte{}, left[:]...), right[:]...)
		sum := crypto.Sha256d(combined)
		h, err := chainhash.NewHash(sum)
		if err != nil {
			return nil, err
		}
		working = h
		workingOffset /= 2
	}
	return working, nil
}

func findLeaf(level []*PathElement, offset uint64) *PathElement {
	for _, l := range level {
		if l.Offset == offset {
			return l
		}
	}
	return nil
}

// Verify checks this path's computed root against tracker for the given
// txid and this path's block height.
func (mp *MerklePath) Verify(ctx context.Context, txid *chainhash.Hash, tracker ChainTracker) (bool, error) {
	root, err := mp.ComputeRoot(txid)
	if err != nil {
		return false, err
	}
	return tracker.IsValidRootForHeight(ctx, root, mp.BlockHeight)
}

// Combine merges another path's leaves into this one at matching levels,
// used when two BUMPs share a block height and an equal computed root.
func (mp *MerklePath) Combine(other *MerklePath) error {
	if mp.BlockHeight != other.BlockHeight {
		return errors.New("merkle path: cannot combine paths at different block heights")
	}
	for len(mp.Path) < len(other.Path) {
		mp.Path = append(mp.Path, nil)
	}
	for level, leaves := range other.Path {
		existing := map[uint64]bool{}
		for _, l := range mp.Path[level] {
			existing[l.Offset] = true
		}
		for _, l := range leaves {
			if !existing[l.Offset] {
				mp.Path[level] = append(mp.Path[level], l)
			}
		}
	}
	return nil
}

// Bytes serializes the path: varint block_height, varint tree height,
// then per level a varint leaf count followed by each leaf's varint
// offset, a flags byte (bit0 duplicate, bit1 txid), and an optional
// 32-byte hash (omitted for duplicate leaves).
func (mp *MerklePath) Bytes() []byte {
	w := wire.NewWriter(64)
	w.WriteVarInt(uint64(mp.BlockHeight))
	w.WriteVarInt(uint64(len(mp.Path)))
	for _, level := range mp.Path {
		w.WriteVarInt(uint64(len(level)))
		for _, leaf := range level {
			w.WriteVarInt(leaf.Offset)
			var flags uint8
			if leaf.Duplicate {
				flags |= 0x01
			}
			if leaf.Txid {
				flags |= 0x02
			}
			w.WriteU8(flags)
			if !leaf.Duplicate && leaf.Hash != nil {
				w.Write(leaf.Hash[:])
			}
		}
	}
	return w.Bytes()
}

// NewMerklePathFromReader parses a MerklePath from raw bytes in the
// format Bytes() produces.
func NewMerklePathFromReader(raw []byte) (*MerklePath, error) {
	r := wire.NewReader(raw)
	return readMerklePath(r)
}

// readMerklePath reads one MerklePath directly from cursor r, advancing
// r by exactly the bytes consumed. Used both standalone and when reading
// a BUMP embedded inside a larger BEEF payload.
func readMerklePath(r *wire.Reader) (*MerklePath, error) {
	height, err := r.ReadVarInt()
	if err != nil {
		return nil, errors.Wrap(err, "merkle path: block height")
	}
	treeHeight, err := r.ReadVarInt()
	if err != nil {
		return nil, errors.Wrap(err, "merkle path: tree height")
	}
	mp := &MerklePath{BlockHeight: uint32(height), Path: make([][]*PathElement, treeHeight)}
	for level := uint64(0); level < treeHeight; level++ {
		count, err := r.ReadVarInt()
		if err != nil {
			return nil, errors.Wrapf(err, "merkle path: level %d leaf count", level)
		}
		leaves := make([]*PathElement, 0, count)
		for i := uint64(0); i < count; i++ {
			offset, err := r.ReadVarInt()
			if err != nil {
				return nil, errors.Wrapf(err, "merkle path: level %d leaf %d offset", level, i)
			}
			flags, err := r.ReadU8()
			if err != nil {
				return nil, errors.Wrapf(err, "merkle path: level %d leaf %d flags", level, i)
			}
			leaf := &PathElement{
				Offset:    offset,
				Duplicate: flags&0x01 != 0,
				Txid:      flags&0x02 != 0,
			}
			if !leaf.Duplicate {
				hb, err := r.Read(32)
				if err != nil {
					return nil, errors.Wrapf(err, "merkle path: level %d leaf %d hash", level, i)
				}
				h, err := chainhash.NewHash(hb)
				if err != nil {
					return nil, err
				}
				leaf.Hash = h
			}
			leaves = append(leaves, leaf)
		}
		mp.Path[level] = leaves
	}
	return mp, nil
}
