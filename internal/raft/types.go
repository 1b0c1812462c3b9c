// Package raft implements the leader-side membership-change core of a Raft
// node: bootstrap, learner catch-up tracking, joint-consensus membership
// transitions, and replication-stream garbage collection.
package raft

import "fmt"

// NodeId uniquely identifies a member of the cluster.
type NodeId uint64

// LogId identifies a log entry by the term that produced it and its
// 1-based, monotone index. Log ids compare lexicographically on
// (Term, Index).
type LogId struct {
	Term  uint64
	Index uint64
}

// Less reports whether id sorts strictly before other.
func (id LogId) Less(other LogId) bool {
	if id.Term != other.Term {
		return id.Term < other.Term
	}
	return id.Index < other.Index
}

func (id LogId) String() string {
	return fmt.Sprintf("(%d,%d)", id.Term, id.Index)
}

// NextIndex returns the index a new entry would occupy if appended right
// after the log id pointed to by id, treating a nil id as "nothing
// written yet".
func NextIndex(id *LogId) uint64 {
	if id == nil {
		return 0
	}
	return id.Index + 1
}

// LogIdLess reports whether a sorts strictly before b, honoring the
// convention that a nil LogId ("never written") sorts before any concrete
// LogId.
func LogIdLess(a, b *LogId) bool {
	if a == nil {
		return b != nil
	}
	if b == nil {
		return false
	}
	return a.Less(*b)
}

// LogIdLessEqual reports a <= b under the same nil-is-smallest ordering
// as LogIdLess.
func LogIdLessEqual(a, b *LogId) bool {
	return !LogIdLess(b, a)
}

// EntryPayload is the content of a single log entry. Only MembershipPayload
// is inspected by this core; every other payload kind passes through the
// log unexamined.
type EntryPayload interface {
	isEntryPayload()
}

// MembershipPayload carries a Membership configuration change.
type MembershipPayload struct {
	Membership Membership
}

func (MembershipPayload) isEntryPayload() {}

// OpaquePayload wraps application data or a no-op entry that this core
// never inspects.
type OpaquePayload struct {
	Data []byte
}

func (OpaquePayload) isEntryPayload() {}

// EffectiveMembership is the most recently *appended* membership
// configuration, paired with the log id of the entry that installed it.
// Quorum decisions always use the effective membership, not the committed
// one; rolling back the log on truncation must roll this back too.
type EffectiveMembership struct {
	LogId      LogId
	Membership Membership
}

// ClientRequestEntry pairs an appended log entry with the one-shot reply
// that should be resolved once it commits. The entry is shared (not owned
// exclusively) because it may be handed to several replication streams.
type ClientRequestEntry struct {
	LogId   LogId
	Payload EntryPayload
	Reply   *PendingResponse[ClientWriteResponse, *ClientWriteError]
}

// ClientWriteResponse is returned to the caller once the entry underlying
// a ClientRequestEntry has committed.
type ClientWriteResponse struct {
	LogId LogId
}

// AddLearnerResponse is returned by AddLearner.
type AddLearnerResponse struct {
	Matched *LogId
}
