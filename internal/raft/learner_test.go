package raft

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
)

func newTestCore(id NodeId, log LogStore) *NodeCore {
	return NewNodeCore(id, log, &fakeHardState{}, zerolog.Nop())
}

// Single-node bootstrap.
func TestInitWithConfigSingleNodeBootstrap(t *testing.T) {
	core := newTestCore(1, newFakeLogStore(1))
	learner := NewLearnerRole(core)

	if err := learner.InitWithConfig(context.Background(), NodeIdSet(1)); err != nil {
		t.Fatalf("InitWithConfig failed: %v", err)
	}

	if core.EffectiveMembership.Membership.IsJoint() {
		t.Fatalf("expected uniform membership")
	}
	if !setEqual(core.EffectiveMembership.Membership.Old, NodeIdSet(1)) {
		t.Fatalf("expected effective membership {1}, got %v", core.EffectiveMembership.Membership.Old)
	}
	if core.CurrentTerm != 1 {
		t.Fatalf("expected term 1, got %d", core.CurrentTerm)
	}
	if core.VotedFor == nil || *core.VotedFor != 1 {
		t.Fatalf("expected voted_for = 1, got %v", core.VotedFor)
	}
	if core.TargetRole != RoleLeader {
		t.Fatalf("expected target role Leader, got %v", core.TargetRole)
	}
	// The bootstrap-commits-a-no-op-entry decision:
	// membership entry plus an initial no-op entry are both appended.
	if core.LastLogId == nil || core.LastLogId.Index != 2 {
		t.Fatalf("expected two log entries appended (membership + no-op), last id = %v", core.LastLogId)
	}
}

// Three-node bootstrap.
func TestInitWithConfigThreeNodeBootstrap(t *testing.T) {
	core := newTestCore(1, newFakeLogStore(0))
	learner := NewLearnerRole(core)

	if err := learner.InitWithConfig(context.Background(), NodeIdSet(2, 3)); err != nil {
		t.Fatalf("InitWithConfig failed: %v", err)
	}

	if !setEqual(core.EffectiveMembership.Membership.Old, NodeIdSet(1, 2, 3)) {
		t.Fatalf("expected effective membership {1,2,3} (self auto-inserted), got %v", core.EffectiveMembership.Membership.Old)
	}
	if core.TargetRole != RoleCandidate {
		t.Fatalf("expected target role Candidate, got %v", core.TargetRole)
	}
	if core.CurrentTerm != 0 {
		t.Fatalf("expected term to remain 0 until candidacy, got %d", core.CurrentTerm)
	}
}

func TestInitWithConfigRejectsNonPristineNode(t *testing.T) {
	core := newTestCore(1, newFakeLogStore(1))
	core.CurrentTerm = 5
	learner := NewLearnerRole(core)

	err := learner.InitWithConfig(context.Background(), NodeIdSet(1))
	var initErr *InitializeError
	if err == nil {
		t.Fatalf("expected an error")
	}
	if !asInitError(err, &initErr) || !initErr.NotAllowed {
		t.Fatalf("expected InitializeError.NotAllowed, got %v (%T)", err, err)
	}
}

func asInitError(err error, target **InitializeError) bool {
	ie, ok := err.(*InitializeError)
	if ok {
		*target = ie
	}
	return ok
}
