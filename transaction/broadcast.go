package transaction

import (
	"context"
	"fmt"
)

// BroadcastSuccess is the result a Broadcaster returns when the network
// accepted the transaction.
type BroadcastSuccess struct {
	Txid    string
	Message string
}

// BroadcastFailure is the result a Broadcaster returns when the network
// rejected the transaction, or when the broadcaster's own transport
// failed.
type BroadcastFailure struct {
	Code        string
	Description string
}

func (f *BroadcastFailure) Error() string {
	return fmt.Sprintf("transaction: broadcast failed [%s]: %s", f.Code, f.Description)
}

// Broadcaster submits a fully signed transaction to the network. The
// concrete transport (an HTTP client against an ARC-style endpoint, a
// direct peer connection, and so on) is external to this package and
// supplied by the caller.
type Broadcaster interface {
	Broadcast(ctx context.Context, tx *Transaction) (*BroadcastSuccess, *BroadcastFailure)
}

// Broadcast submits tx through b and returns whichever of Success/Failure
// the broadcaster reported, unchanged (§7: Broadcast{Response|Failure}
// surfaced unchanged from the broadcaster).
func (tx *Transaction) Broadcast(ctx context.Context, b Broadcaster) (*BroadcastSuccess, *BroadcastFailure) {
	return b.Broadcast(ctx, tx)
}
