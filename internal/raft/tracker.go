package raft

// ReplicationWorker is the owned handle to a running replication stream
// for one peer. Dropping the owning ReplicationTracker (by removing it
// from LeaderRole.Nodes) must signal the worker to stop; workers hold no
// borrow on leader state, only a send-handle back to it.
type ReplicationWorker interface {
	// Stop tells the worker to terminate. Safe to call more than once.
	Stop()
}

// ReplicationConfig bounds how close to the leader's last log id a peer
// must be to count as line-rate.
type ReplicationConfig struct {
	// MaxCatchUpEntries is the maximum number of entries a peer may still
	// be behind the leader's last log id and still count as line-rate.
	MaxCatchUpEntries uint64
}

// DefaultReplicationConfig matches the window openraft uses by default
// for its snapshot/line-rate policy knobs: small enough that a learner
// within this distance will not stall the next commit.
var DefaultReplicationConfig = ReplicationConfig{MaxCatchUpEntries: 0}

// ReplicationTracker is the leader's per-peer bookkeeping: how far the
// peer has replicated, whether (and since when) it has been scheduled for
// removal, and the worker handle driving its replication stream.
type ReplicationTracker struct {
	// Matched is the highest log id this peer has acknowledged.
	Matched *LogId

	// RemoveSince is the index of the first committed membership that
	// excluded this peer. Set at most once; never unset, never lowered
	// invariant: set at most once, never unset, never lowered.
	RemoveSince *uint64

	Worker ReplicationWorker
}

// NewReplicationTracker constructs a tracker for a freshly spawned
// replication stream; matched starts at "nothing replicated yet".
func NewReplicationTracker(worker ReplicationWorker) *ReplicationTracker {
	return &ReplicationTracker{Worker: worker}
}

// UpdateMatched records replication progress reported by the peer.
// Progress updates are delivered in monotone order; any update that would
// decrease Matched is ignored.
func (t *ReplicationTracker) UpdateMatched(matched LogId) {
	if LogIdLess(&matched, t.Matched) {
		return
	}
	m := matched
	t.Matched = &m
}

// SetRemoveSince records that a committed membership at index excludes
// this peer. First write wins: once set, the value is never changed.
func (t *ReplicationTracker) SetRemoveSince(index uint64) {
	if t.RemoveSince != nil {
		return
	}
	t.RemoveSince = &index
}

// IsLineRate reports whether this peer is close enough to
// leaderLastLogId to be promoted to voter without stalling commit. The
// predicate is read fresh every call, never cached.
func (t *ReplicationTracker) IsLineRate(leaderLastLogId *LogId, cfg ReplicationConfig) bool {
	leaderNext := NextIndex(leaderLastLogId)
	matchedNext := NextIndex(t.Matched)
	if matchedNext >= leaderNext {
		return true
	}
	return leaderNext-matchedNext <= cfg.MaxCatchUpEntries
}

// ReadyToRemove reports whether the peer has acknowledged the log entry
// that removed it, i.e. matched.Index >= RemoveSince. Until RemoveSince is
// set the peer is never ready to remove.
func (t *ReplicationTracker) ReadyToRemove() bool {
	if t.RemoveSince == nil || t.Matched == nil {
		return false
	}
	return t.Matched.Index >= *t.RemoveSince
}
