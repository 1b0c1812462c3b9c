package logstore

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/btmorr/leifraft/internal/raft"
)

func TestAppendPayloadAssignsSequentialIndices(t *testing.T) {
	store := New(zerolog.Nop())
	store.SetTerm(3)

	first, err := store.AppendPayload(context.Background(), raft.OpaquePayload{Data: []byte("a")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := store.AppendPayload(context.Background(), raft.OpaquePayload{Data: []byte("b")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if first.Term != 3 || first.Index != 1 {
		t.Fatalf("expected (3,1), got %v", first)
	}
	if second.Index != 2 {
		t.Fatalf("expected index 2, got %v", second)
	}

	entry, ok := store.Entry(1)
	if !ok || string(entry.Data) != "a" {
		t.Fatalf("expected to read back entry 1, got %v ok=%v", entry, ok)
	}
}

func TestAppendPayloadStampsTermAfterSetTerm(t *testing.T) {
	store := New(zerolog.Nop())
	store.SetTerm(1)
	first, _ := store.AppendPayload(context.Background(), raft.OpaquePayload{})
	store.SetTerm(2)
	second, _ := store.AppendPayload(context.Background(), raft.OpaquePayload{})

	if first.Term != 1 || second.Term != 2 {
		t.Fatalf("expected terms (1,2), got (%d,%d)", first.Term, second.Term)
	}
}

func TestTruncateAfterDropsTrailingEntries(t *testing.T) {
	store := New(zerolog.Nop())
	store.SetTerm(1)
	for i := 0; i < 5; i++ {
		if _, err := store.AppendPayload(context.Background(), raft.OpaquePayload{}); err != nil {
			t.Fatalf("append failed: %v", err)
		}
	}

	store.TruncateAfter(2)
	if _, ok := store.Entry(3); ok {
		t.Fatalf("expected entry 3 to be truncated")
	}
	if _, ok := store.Entry(2); !ok {
		t.Fatalf("expected entry 2 to survive truncation")
	}

	next, err := store.AppendPayload(context.Background(), raft.OpaquePayload{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next.Index != 3 {
		t.Fatalf("expected append after truncation to reuse index 3, got %d", next.Index)
	}
}

func TestSaveHardState(t *testing.T) {
	store := New(zerolog.Nop())
	id := raft.NodeId(7)
	if err := store.Save(context.Background(), 4, &id); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
