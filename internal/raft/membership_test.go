package raft

import "testing"

func TestMembershipNextSafe(t *testing.T) {
	v123 := NodeIdSet(1, 2, 3)
	v124 := NodeIdSet(1, 2, 4)

	t.Run("uniform no-op", func(t *testing.T) {
		m := NewUniformMembership(v123)
		next := m.NextSafe(v123)
		if next.IsJoint() {
			t.Fatalf("expected uniform result, got joint")
		}
		if !setEqual(next.Old, v123) {
			t.Fatalf("expected voters unchanged")
		}
	})

	t.Run("uniform to joint", func(t *testing.T) {
		m := NewUniformMembership(v123)
		next := m.NextSafe(v124)
		if !next.IsJoint() {
			t.Fatalf("expected joint result")
		}
		if !setEqual(next.Old, v123) || !setEqual(next.New, v124) {
			t.Fatalf("expected joint(V123, V124), got joint(%v, %v)", next.Old, next.New)
		}
	})

	t.Run("joint completes to uniform", func(t *testing.T) {
		m := Membership{Old: cloneSet(v123), New: cloneSet(v124)}
		next := m.NextSafe(v124)
		if next.IsJoint() {
			t.Fatalf("expected uniform result")
		}
		if !setEqual(next.Old, v124) {
			t.Fatalf("expected uniform(V124), got %v", next.Old)
		}
	})

	t.Run("joint chains to new joint, retiring old side", func(t *testing.T) {
		v1245 := NodeIdSet(1, 2, 4, 5)
		m := Membership{Old: cloneSet(v123), New: cloneSet(v124)}
		next := m.NextSafe(v1245)
		if !next.IsJoint() {
			t.Fatalf("expected joint result")
		}
		if !setEqual(next.Old, v124) || !setEqual(next.New, v1245) {
			t.Fatalf("expected joint(V124, V1245), got joint(%v, %v)", next.Old, next.New)
		}
	})

	t.Run("idempotent at fixed point", func(t *testing.T) {
		m := NewUniformMembership(v123)
		once := m.NextSafe(v124)
		twice := once.NextSafe(v124)
		thrice := twice.NextSafe(v124)
		if twice.IsJoint() {
			t.Fatalf("expected uniform after completing joint consensus")
		}
		if !setEqual(twice.Old, thrice.Old) || thrice.IsJoint() != twice.IsJoint() {
			t.Fatalf("NextSafe is not idempotent at its fixed point: %v vs %v", twice, thrice)
		}
	})

	t.Run("learners carry across transitions", func(t *testing.T) {
		m := NewUniformMembership(v123)
		m.Learners = NodeIdSet(9)
		next := m.NextSafe(v124)
		if !setEqual(next.Learners, NodeIdSet(9)) {
			t.Fatalf("expected learners to carry over, got %v", next.Learners)
		}
	})
}

func TestMembershipContainsAndAllNodes(t *testing.T) {
	joint := Membership{
		Old:      NodeIdSet(1, 2, 3),
		New:      NodeIdSet(1, 2, 4),
		Learners: NodeIdSet(9),
	}
	for _, id := range []NodeId{1, 2, 3, 4} {
		if !joint.Contains(id) {
			t.Errorf("expected joint membership to contain voter %d", id)
		}
	}
	if joint.Contains(9) {
		t.Errorf("learner 9 must not count as a voter")
	}
	all := joint.AllNodes()
	for _, id := range []NodeId{1, 2, 3, 4, 9} {
		if _, ok := all[id]; !ok {
			t.Errorf("expected AllNodes to include %d", id)
		}
	}
}

func TestLogIdOrdering(t *testing.T) {
	if !LogIdLess(nil, logID(1, 1)) {
		t.Fatalf("nil log id must sort before any concrete log id")
	}
	if LogIdLess(logID(1, 1), nil) {
		t.Fatalf("no concrete log id sorts before nil")
	}
	if !LogIdLess(logID(1, 1), logID(1, 2)) {
		t.Fatalf("expected (1,1) < (1,2)")
	}
	if !LogIdLess(logID(1, 5), logID(2, 0)) {
		t.Fatalf("expected term to dominate index")
	}
	if NextIndex(nil) != 0 {
		t.Fatalf("expected NextIndex(nil) == 0")
	}
	if NextIndex(logID(3, 7)) != 8 {
		t.Fatalf("expected NextIndex((3,7)) == 8")
	}
}
