package raft

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Role is the node's current position in the Raft state machine. Only the
// transitions this core drives are named here; Follower exists because
// other subsystems reference it, but this core never targets it directly.
type Role int

const (
	RoleLearner Role = iota
	RoleCandidate
	RoleLeader
	RoleFollower
)

func (r Role) String() string {
	switch r {
	case RoleLearner:
		return "Learner"
	case RoleCandidate:
		return "Candidate"
	case RoleLeader:
		return "Leader"
	case RoleFollower:
		return "Follower"
	default:
		return "Unknown"
	}
}

// LogStore is the narrow append-only log contract this core requires.
// Truncation and read APIs used by other subsystems are out of scope here.
type LogStore interface {
	AppendPayload(ctx context.Context, payload EntryPayload) (LogId, error)
}

// HardStateStore persists (term, voted_for) atomically and durably.
type HardStateStore interface {
	Save(ctx context.Context, term uint64, votedFor *NodeId) error
}

// ReplicationDispatch spawns and drives replication streams to peers.
type ReplicationDispatch interface {
	// Spawn starts a replication stream to target. If reply is non-nil it
	// is handed to the stream, which resolves it once target reaches
	// line-rate (or with an error); otherwise the stream runs detached.
	Spawn(target NodeId, reply *PendingResponse[AddLearnerResponse, *AddLearnerError]) *ReplicationTracker

	// Replicate hands an appended entry to the replication dispatch,
	// which fans it out to every tracked peer and resolves entry.Reply
	// once it commits.
	Replicate(ctx context.Context, entry ClientRequestEntry) error

	// NotifyCommitted tells the dispatch that committed has durably
	// committed: every queued entry.Reply at or below committed.Index
	// resolves, in increasing index order.
	NotifyCommitted(committed LogId)

	// Close cancels every Replicate reply still waiting on commit. It does
	// not stop replication workers; LeaderRole.Close stops each tracker's
	// worker (which cancels any AddLearner reply that worker still holds)
	// before calling it on role loss.
	Close()
}

// MetricsSink is the narrow metrics contract this core requires.
type MetricsSink interface {
	LeaderReportMetrics()
	RemoveReplicationMetric(peer NodeId)
}

// CurrentLeader tracks who this node believes is leader; Unknown models
// "no leader known yet" (e.g. right after a step-down).
type CurrentLeader struct {
	Known    bool
	LeaderId NodeId
}

// UnknownLeader is the CurrentLeader value meaning "no leader known".
var UnknownLeader = CurrentLeader{}

// NodeCore is the state of a Raft node visible to every role: identifier,
// current term, last log id, committed log id, effective membership, and
// handles to the storage/network collaborators. Role transitions read and
// mutate it; exactly one operation runs against it at a time.
//
// mu serializes every admin entry point (LearnerRole.InitWithConfig,
// LeaderRole.AddLearner/ChangeMembership/HandleUniformConsensusCommitted/
// TryRemoveReplication/Close) so two requests delivered concurrently --
// e.g. two HTTP handlers on their own goroutines -- can't race on Nodes
// or this core's fields. NodeCore's own methods below (and LeaderRole's
// internal helpers) do not lock mu; they assume a caller up the stack
// already holds it.
type NodeCore struct {
	mu sync.Mutex

	Id NodeId

	CurrentTerm uint64
	VotedFor    *NodeId

	LastLogId *LogId
	Committed *LogId

	EffectiveMembership EffectiveMembership

	TargetRole Role
	Leader     CurrentLeader

	Log       LogStore
	HardState HardStateStore

	Logger zerolog.Logger
}

// NewNodeCore builds a pristine NodeCore: no log, term 0, a uniform
// membership of exactly self (overwritten by the first InitWithConfig /
// log replay in a real node).
func NewNodeCore(id NodeId, log LogStore, hardState HardStateStore, logger zerolog.Logger) *NodeCore {
	return &NodeCore{
		Id:        id,
		Log:       log,
		HardState: hardState,
		Logger:    logger,
		EffectiveMembership: EffectiveMembership{
			Membership: NewUniformMembership(map[NodeId]struct{}{id: {}}),
		},
		TargetRole: RoleLearner,
		Leader:     UnknownLeader,
	}
}

// IsPristine reports the preconditions InitWithConfig requires: no log
// entries ever appended, and term still at its initial value.
func (c *NodeCore) IsPristine() bool {
	return c.LastLogId == nil && c.CurrentTerm == 0
}

// AppendPayloadToLog appends payload via the log store, updates
// LastLogId, and -- if payload is a membership change -- synchronously
// updates EffectiveMembership before any other operation can observe an
// inconsistent state.
func (c *NodeCore) AppendPayloadToLog(ctx context.Context, payload EntryPayload) (LogId, error) {
	logID, err := c.Log.AppendPayload(ctx, payload)
	if err != nil {
		return LogId{}, NewFatalStorageError(err)
	}
	c.LastLogId = &logID

	if mp, ok := payload.(MembershipPayload); ok {
		c.EffectiveMembership = EffectiveMembership{LogId: logID, Membership: mp.Membership}
	}
	return logID, nil
}

// termSetter is implemented by LogStore backends (e.g. internal/logstore)
// that stamp newly appended entries with the node's current term. It is
// checked via an optional type assertion rather than widening LogStore,
// since a log store that replicates pre-stamped entries has no need of it.
type termSetter interface {
	SetTerm(term uint64)
}

// SaveHardState persists (term, votedFor) and updates in-memory state.
func (c *NodeCore) SaveHardState(ctx context.Context, term uint64, votedFor *NodeId) error {
	if err := c.HardState.Save(ctx, term, votedFor); err != nil {
		return NewFatalStorageError(err)
	}
	c.CurrentTerm = term
	c.VotedFor = votedFor
	if ts, ok := c.Log.(termSetter); ok {
		ts.SetTerm(term)
	}
	return nil
}

// SetTargetRole records the role the node should transition to next; the
// actual role swap (and, for Leader, construction of LeaderRole) is
// driven externally by the node's run loop.
func (c *NodeCore) SetTargetRole(r Role) {
	c.TargetRole = r
}

// UpdateCurrentLeader records who this node currently believes is leader.
func (c *NodeCore) UpdateCurrentLeader(leader CurrentLeader) {
	c.Leader = leader
}
