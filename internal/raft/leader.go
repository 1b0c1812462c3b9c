package raft

import "context"

// LeaderRole hosts the membership-change operations a leader performs. It
// owns the per-peer ReplicationTracker map; dropping a LeaderRole (role
// loss) must drop every tracker, stopping every replication worker.
type LeaderRole struct {
	Core *NodeCore

	Nodes map[NodeId]*ReplicationTracker

	Replication ReplicationDispatch
	Metrics     MetricsSink
	Config      ReplicationConfig
}

// NewLeaderRole constructs an empty LeaderRole; callers populate Nodes
// from the node's effective membership after construction.
func NewLeaderRole(core *NodeCore, replication ReplicationDispatch, metrics MetricsSink, cfg ReplicationConfig) *LeaderRole {
	return &LeaderRole{
		Core:        core,
		Nodes:       map[NodeId]*ReplicationTracker{},
		Replication: replication,
		Metrics:     metrics,
		Config:      cfg,
	}
}

// Close drops every tracker, signaling their replication workers to stop,
// and cancels every reply still queued in the replication dispatch. Call
// this on step-down or shutdown.
func (l *LeaderRole) Close() {
	l.Core.mu.Lock()
	defer l.Core.mu.Unlock()

	for id, tracker := range l.Nodes {
		if tracker.Worker != nil {
			tracker.Worker.Stop()
		}
		delete(l.Nodes, id)
	}
	l.Replication.Close()
}

// AddLearner adds a non-voting peer and, if blocking, arranges for reply
// to resolve once the peer reaches line-rate.
func (l *LeaderRole) AddLearner(target NodeId, blocking bool, reply *PendingResponse[AddLearnerResponse, *AddLearnerError]) {
	core := l.Core
	core.mu.Lock()
	defer core.mu.Unlock()

	if target == core.Id {
		core.Logger.Debug().Msg("add_learner target is this node")
		reply.Send(AddLearnerResponse{Matched: core.LastLogId}, nil)
		return
	}

	if t, ok := l.Nodes[target]; ok {
		core.Logger.Debug().Uint64("target", uint64(target)).Msg("target is already a cluster member or being synced")
		reply.Send(AddLearnerResponse{Matched: t.Matched}, nil)
		return
	}

	if blocking {
		tracker := l.Replication.Spawn(target, reply)
		l.Nodes[target] = tracker
		return
	}

	tracker := l.Replication.Spawn(target, nil)
	l.Nodes[target] = tracker
	reply.Send(AddLearnerResponse{Matched: nil}, nil)
}

// ChangeMembership proposes that the cluster's voter set become
// targetVoters. On a preflight rejection, reply is resolved
// and no log entry is appended. On success, reply is handed to the
// replication dispatch and resolved once the appended entry commits.
func (l *LeaderRole) ChangeMembership(ctx context.Context, targetVoters map[NodeId]struct{}, blocking bool, reply *PendingResponse[ClientWriteResponse, *ClientWriteError]) error {
	core := l.Core
	core.mu.Lock()
	defer core.mu.Unlock()

	if len(targetVoters) == 0 {
		reply.Send(ClientWriteResponse{}, changeMembershipClientError(errEmptyMembership()))
		return nil
	}

	if LogIdLess(core.Committed, &core.EffectiveMembership.LogId) {
		reply.Send(ClientWriteResponse{}, changeMembershipClientError(errInProgress(core.EffectiveMembership.LogId)))
		return nil
	}

	curr := core.EffectiveMembership.Membership
	newConfig := curr.NextSafe(targetVoters)

	for _, newNode := range setDifference(targetVoters, curr.AllNodes()) {
		tracker, ok := l.Nodes[newNode]
		if !ok {
			reply.Send(ClientWriteResponse{}, changeMembershipClientError(errLearnerNotFound(newNode)))
			return nil
		}

		if tracker.IsLineRate(core.LastLogId, l.Config) {
			continue
		}

		if !blocking {
			distance := saturatingSub(NextIndex(core.LastLogId), NextIndex(tracker.Matched))
			reply.Send(ClientWriteResponse{}, changeMembershipClientError(
				errLearnerIsLagging(newNode, tracker.Matched, distance)))
			return nil
		}
		// blocking: allow the request through; commit will simply wait
		// for replication to catch up.
	}

	return l.appendMembershipLog(ctx, newConfig, reply)
}

func (l *LeaderRole) appendMembershipLog(ctx context.Context, mem Membership, reply *PendingResponse[ClientWriteResponse, *ClientWriteError]) error {
	core := l.Core

	logID, err := core.AppendPayloadToLog(ctx, MembershipPayload{Membership: mem})
	if err != nil {
		f, _ := AsFatal(err)
		return &ClientWriteError{Fatal: f}
	}

	l.Metrics.LeaderReportMetrics()

	entry := ClientRequestEntry{
		LogId:   logID,
		Payload: MembershipPayload{Membership: mem},
		Reply:   reply,
	}

	if err := l.Replication.Replicate(ctx, entry); err != nil {
		f, _ := AsFatal(err)
		return &ClientWriteError{Fatal: f}
	}
	return nil
}

// HandleUniformConsensusCommitted is invoked exactly once when a uniform
// membership entry at logID commits.
func (l *LeaderRole) HandleUniformConsensusCommitted(logID LogId) {
	core := l.Core
	core.mu.Lock()
	defer core.mu.Unlock()

	l.Replication.NotifyCommitted(logID)

	if !core.EffectiveMembership.Membership.Contains(core.Id) {
		core.Logger.Debug().Msg("raft node is stepping down")
		core.SetTargetRole(RoleLearner)
		core.UpdateCurrentLeader(UnknownLeader)
		return
	}

	all := core.EffectiveMembership.Membership.AllNodes()
	for id, tracker := range l.Nodes {
		if _, ok := all[id]; ok {
			continue
		}
		core.Logger.Info().
			Uint64("peer", uint64(id)).
			Uint64("remove_since", logID.Index).
			Msg("set remove_since for peer no longer in membership")
		tracker.SetRemoveSince(logID.Index)
	}

	targets := make([]NodeId, 0, len(l.Nodes))
	for id := range l.Nodes {
		targets = append(targets, id)
	}
	for _, target := range targets {
		l.tryRemoveReplicationLocked(target)
	}

	l.Metrics.LeaderReportMetrics()
}

// TryRemoveReplication drops the replication tracker for target if it has
// been marked for removal and has acknowledged the log entry that removed
// it. Returns true iff the tracker was removed.
func (l *LeaderRole) TryRemoveReplication(target NodeId) bool {
	l.Core.mu.Lock()
	defer l.Core.mu.Unlock()
	return l.tryRemoveReplicationLocked(target)
}

// tryRemoveReplicationLocked is TryRemoveReplication's body; callers that
// already hold l.Core.mu (HandleUniformConsensusCommitted) call this
// directly instead of re-entering the non-reentrant mutex.
func (l *LeaderRole) tryRemoveReplicationLocked(target NodeId) bool {
	tracker, ok := l.Nodes[target]
	if !ok {
		l.Core.Logger.Warn().Uint64("target", uint64(target)).Msg("trying to remove absent replication")
		return false
	}

	if !tracker.ReadyToRemove() {
		return false
	}

	l.Core.Logger.Info().Uint64("target", uint64(target)).Msg("removed replication")
	if tracker.Worker != nil {
		tracker.Worker.Stop()
	}
	delete(l.Nodes, target)
	l.Metrics.RemoveReplicationMetric(target)
	return true
}

func saturatingSub(a, b uint64) uint64 {
	if a < b {
		return 0
	}
	return a - b
}
