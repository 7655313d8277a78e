package transaction

import "github.com/icellan/bsv-tx-forge/internal/wire"

// ScriptSlice locates a script's bytes within a Raw encoding without
// requiring the caller to have parsed it into a Transaction.
type ScriptSlice struct {
	Index  int
	Offset int
	Length int
}

// ScriptOffsets is the result of parsing a Raw transaction's script
// positions: every input's unlocking script and every output's locking
// script, in order.
type ScriptOffsets struct {
	Inputs  []ScriptSlice
	Outputs []ScriptSlice
}

// ParseScriptOffsets walks a Raw transaction's byte layout and records
// each script's offset and length without materializing the script
// bytes themselves.
func ParseScriptOffsets(raw []byte) (*ScriptOffsets, error) {
	r := wire.NewReader(raw)
	if _, err := r.ReadU32LE(); err != nil { // version
		return nil, ErrBadRawFormat
	}

	nIn, err := r.ReadVarInt()
	if err != nil {
		return nil, ErrBadRawFormat
	}
	offsets := &ScriptOffsets{}
	for i := uint64(0); i < nIn; i++ {
		if _, err := r.Read(36); err != nil { // outpoint: 32 txid + 4 index
			return nil, ErrBadRawFormat
		}
		scriptLen, err := r.ReadVarInt()
		if err != nil {
			return nil, ErrBadRawFormat
		}
		offset := r.Pos()
		if _, err := r.Read(int(scriptLen)); err != nil {
			return nil, ErrBadRawFormat
		}
		offsets.Inputs = append(offsets.Inputs, ScriptSlice{Index: int(i), Offset: offset, Length: int(scriptLen)})
		if _, err := r.Read(4); err != nil { // sequence
			return nil, ErrBadRawFormat
		}
	}

	nOut, err := r.ReadVarInt()
	if err != nil {
		return nil, ErrBadRawFormat
	}
	for i := uint64(0); i < nOut; i++ {
		if _, err := r.Read(8); err != nil { // satoshis
			return nil, ErrBadRawFormat
		}
		scriptLen, err := r.ReadVarInt()
		if err != nil {
			return nil, ErrBadRawFormat
		}
		offset := r.Pos()
		if _, err := r.Read(int(scriptLen)); err != nil {
			return nil, ErrBadRawFormat
		}
		offsets.Outputs = append(offsets.Outputs, ScriptSlice{Index: int(i), Offset: offset, Length: int(scriptLen)})
	}

	return offsets, nil
}

// Slice extracts the script bytes a ScriptSlice describes from raw.
func (s ScriptSlice) Slice(raw []byte) []byte {
	return raw[s.Offset : s.Offset+s.Length]
}
