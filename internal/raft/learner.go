package raft

import "context"

// LearnerRole hosts the behavior a node exhibits while it is a learner,
// including the pristine (never-bootstrapped) case.
type LearnerRole struct {
	Core *NodeCore
}

// NewLearnerRole wraps core for learner-role operations.
func NewLearnerRole(core *NodeCore) *LearnerRole {
	return &LearnerRole{Core: core}
}

// InitWithConfig bootstraps a pristine node into a single- or multi-node
// cluster.
func (l *LearnerRole) InitWithConfig(ctx context.Context, members map[NodeId]struct{}) error {
	core := l.Core
	core.mu.Lock()
	defer core.mu.Unlock()

	if !core.IsPristine() {
		core.Logger.Error().
			Interface("last_log_id", core.LastLogId).
			Uint64("current_term", core.CurrentTerm).
			Msg("rejecting init_with_config request: node is not pristine")
		return ErrInitNotAllowed
	}

	voters := cloneSet(members)
	voters[core.Id] = struct{}{}

	membership := NewUniformMembership(voters)

	if _, err := core.AppendPayloadToLog(ctx, MembershipPayload{Membership: membership}); err != nil {
		return wrapInitError(err)
	}

	if len(core.EffectiveMembership.Membership.AllNodes()) == 1 {
		// Single-node cluster: become leader without an election. The
		// source leaves a TODO here noting that jumping straight to
		// Leader skips committing anything; this implementation closes
		// that gap by appending an initial no-op entry so the leader has
		// something of its own term to commit on bootstrap.
		core.CurrentTerm++
		self := core.Id
		core.VotedFor = &self
		core.SetTargetRole(RoleLeader)

		if err := core.SaveHardState(ctx, core.CurrentTerm, &self); err != nil {
			return wrapInitError(err)
		}
		if _, err := core.AppendPayloadToLog(ctx, OpaquePayload{}); err != nil {
			return wrapInitError(err)
		}
	} else {
		core.SetTargetRole(RoleCandidate)
	}

	return nil
}

func wrapInitError(err error) error {
	if f, ok := AsFatal(err); ok {
		return &InitializeError{Fatal: f}
	}
	return err
}
