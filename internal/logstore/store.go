// Package logstore provides a reference implementation of the raft
// package's LogStore and HardStateStore external interfaces: an
// in-memory log keyed by index in a persistent radix tree, so that
// superseded entries from a rolled-back snapshot never alias the live
// tree.
package logstore

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"sync"

	iradix "github.com/hashicorp/go-immutable-radix"
	"github.com/rs/zerolog"

	"github.com/btmorr/leifraft/internal/raft"
	"github.com/btmorr/leifraft/internal/raftpb"
)

// Store is an in-memory LogStore + HardStateStore, safe for concurrent
// use. It is a reference/test implementation: a production deployment
// would flush the radix tree (or an equivalent append log) to durable
// storage on every mutation.
type Store struct {
	mu   sync.Mutex
	tree *iradix.Tree

	currentTerm uint64
	nextIndex   uint64

	hardTerm     uint64
	hardVotedFor *raft.NodeId

	logger zerolog.Logger
}

// New builds an empty Store.
func New(logger zerolog.Logger) *Store {
	return &Store{tree: iradix.New(), nextIndex: 1, logger: logger}
}

// SetTerm updates the term new entries are tagged with. raft.NodeCore
// type-asserts its Log field for this method and calls it whenever
// SaveHardState advances the term, so AppendPayload always stamps the
// leader's current term the way openraft's append_payload_to_log does.
func (s *Store) SetTerm(term uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentTerm = term
}

func indexKey(index uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], index)
	return buf[:]
}

// AppendPayload implements raft.LogStore.
func (s *Store) AppendPayload(_ context.Context, payload raft.EntryPayload) (raft.LogId, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := &raftpb.LogEntry{Term: s.currentTerm, Index: s.nextIndex}
	switch p := payload.(type) {
	case raft.MembershipPayload:
		entry.Kind = raftpb.EntryKind_MEMBERSHIP
		encoded, err := json.Marshal(membershipWire{
			Old:      p.Membership.Old,
			New:      p.Membership.New,
			Learners: p.Membership.Learners,
		})
		if err != nil {
			return raft.LogId{}, err
		}
		entry.MembershipJson = encoded
	case raft.OpaquePayload:
		entry.Kind = raftpb.EntryKind_OPAQUE
		entry.Data = p.Data
	}

	tree, _, _ := s.tree.Insert(indexKey(entry.Index), entry)
	s.tree = tree
	s.nextIndex++

	s.logger.Debug().Uint64("term", entry.Term).Uint64("index", entry.Index).Msg("appended log entry")
	return raft.LogId{Term: entry.Term, Index: entry.Index}, nil
}

// Entry returns the entry at index, if any, for use by replication
// workers reading a peer's catch-up range.
func (s *Store) Entry(index uint64) (*raftpb.LogEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.tree.Get(indexKey(index))
	if !ok {
		return nil, false
	}
	return v.(*raftpb.LogEntry), true
}

// TruncateAfter discards every entry with index > after, for log
// reconciliation on conflicting append-entries (append/commit mechanics
// themselves are out of scope for this repo; this exists so a caller
// implementing that externally has somewhere to roll back to).
func (s *Store) TruncateAfter(after uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for idx := s.nextIndex - 1; idx > after; idx-- {
		tree, _, _ := s.tree.Delete(indexKey(idx))
		s.tree = tree
	}
	s.nextIndex = after + 1
}

// Save implements raft.HardStateStore.
func (s *Store) Save(_ context.Context, term uint64, votedFor *raft.NodeId) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hardTerm = term
	s.hardVotedFor = votedFor
	s.logger.Debug().Uint64("term", term).Msg("saved hard state")
	return nil
}

type membershipWire struct {
	Old      map[raft.NodeId]struct{} `json:"old"`
	New      map[raft.NodeId]struct{} `json:"new,omitempty"`
	Learners map[raft.NodeId]struct{} `json:"learners,omitempty"`
}
