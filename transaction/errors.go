package transaction

import "errors"

// Sentinel errors for the structural failures this package's parsers and
// mutators can produce. Script/value failures during Verify are reported
// as a false return, not an error, matching the "parsers fail fast, verify
// reports bool" split.
var (
	ErrMissingSource          = errors.New("transaction: input has neither source_txid nor source_transaction")
	ErrMissingAmount          = errors.New("transaction: output has no satoshis value")
	ErrMissingChangeAmount    = errors.New("transaction: change output has no resolved satoshis value")
	ErrMissingUnlockingScript = errors.New("transaction: input has no unlocking script")
	ErrBadRawFormat           = errors.New("transaction: malformed raw encoding")
	ErrBadEFFormat            = errors.New("transaction: malformed extended format encoding")
	ErrBadBEEFFormat          = errors.New("transaction: malformed BEEF encoding")
	ErrBadAtomicBEEFFormat    = errors.New("transaction: malformed Atomic BEEF encoding")
	ErrUnknownInputTx         = errors.New("transaction: BEEF payload does not contain a referenced parent transaction")
	ErrUnrelatedTx            = errors.New("transaction: Atomic BEEF payload contains a transaction unreachable from the subject")
	ErrInvalidBumpIndex       = errors.New("transaction: BEEF transaction references an out-of-range BUMP index")
	ErrInsufficientFee        = errors.New("transaction: fee below the amount required by the fee model")
	ErrMissingOutputAmount    = errors.New("transaction: output satoshis missing at verification time")
)
