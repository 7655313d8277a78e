package transaction

import (
	"context"
	"testing"
)

type fakeBroadcaster struct {
	success *BroadcastSuccess
	failure *BroadcastFailure
}

func (f fakeBroadcaster) Broadcast(context.Context, *Transaction) (*BroadcastSuccess, *BroadcastFailure) {
	return f.success, f.failure
}

func TestBroadcastReturnsSuccessUnchanged(t *testing.T) {
	tx := New()
	want := &BroadcastSuccess{Txid: "abc123", Message: "accepted"}
	success, failure := tx.Broadcast(context.Background(), fakeBroadcaster{success: want})
	if failure != nil {
		t.Fatalf("expected no failure, got %+v", failure)
	}
	if success != want {
		t.Fatalf("expected the broadcaster's success value unchanged, got %+v", success)
	}
}

func TestBroadcastReturnsFailureUnchanged(t *testing.T) {
	tx := New()
	want := &BroadcastFailure{Code: "rejected", Description: "double spend"}
	success, failure := tx.Broadcast(context.Background(), fakeBroadcaster{failure: want})
	if success != nil {
		t.Fatalf("expected no success, got %+v", success)
	}
	if failure != want {
		t.Fatalf("expected the broadcaster's failure value unchanged, got %+v", failure)
	}
	if failure.Error() == "" {
		t.Fatalf("expected a non-empty error message")
	}
}
