package raft

import "sort"

// Membership is a voter configuration. It represents either a uniform
// (single voter set) or a joint (old, new) configuration, plus a set of
// learners that is tracked across transitions and carried through as-is.
//
// A Membership is never empty: Joint always carries at least one voter
// set, and New is only non-nil for a joint configuration.
type Membership struct {
	Old      map[NodeId]struct{}
	New      map[NodeId]struct{} // nil => uniform configuration (Old is the only active set)
	Learners map[NodeId]struct{}
}

// NewUniformMembership builds a uniform membership over voters.
func NewUniformMembership(voters map[NodeId]struct{}) Membership {
	return Membership{Old: cloneSet(voters), Learners: map[NodeId]struct{}{}}
}

// IsJoint reports whether m is a two-set joint configuration.
func (m Membership) IsJoint() bool {
	return m.New != nil
}

// Voters returns the newest voter set of m: New when joint, Old when
// uniform. For a joint configuration Old is still an active voter set
// (see Contains) and is not included.
func (m Membership) Voters() map[NodeId]struct{} {
	if m.IsJoint() {
		return m.New
	}
	return m.Old
}

// AllNodes returns the union of every active voter set plus learners.
func (m Membership) AllNodes() map[NodeId]struct{} {
	out := map[NodeId]struct{}{}
	for id := range m.Old {
		out[id] = struct{}{}
	}
	for id := range m.New {
		out[id] = struct{}{}
	}
	for id := range m.Learners {
		out[id] = struct{}{}
	}
	return out
}

// Contains reports whether id is a voter in any currently active set
// (old or new side of a joint config, or the single set of a uniform
// config). Learners are not voters and do not satisfy Contains.
func (m Membership) Contains(id NodeId) bool {
	if _, ok := m.Old[id]; ok {
		return true
	}
	if _, ok := m.New[id]; ok {
		return true
	}
	return false
}

// NextSafe implements the joint-consensus transition rule:
//
//	uniform V,        target == V        -> uniform V            (no-op)
//	uniform V,        target != V        -> joint (V, target)
//	joint (Vold,Vnew), target == Vnew     -> uniform Vnew          (completes)
//	joint (Vold,Vnew), target != Vnew     -> joint (Vnew, target)  (chained)
//
// Learners carry across unchanged. NextSafe is total and deterministic.
func (m Membership) NextSafe(target map[NodeId]struct{}) Membership {
	learners := cloneSet(m.Learners)

	if !m.IsJoint() {
		if setEqual(m.Old, target) {
			return Membership{Old: cloneSet(m.Old), Learners: learners}
		}
		return Membership{Old: cloneSet(m.Old), New: cloneSet(target), Learners: learners}
	}

	if setEqual(m.New, target) {
		return Membership{Old: cloneSet(m.New), Learners: learners}
	}
	return Membership{Old: cloneSet(m.New), New: cloneSet(target), Learners: learners}
}

func cloneSet(s map[NodeId]struct{}) map[NodeId]struct{} {
	if s == nil {
		return nil
	}
	out := make(map[NodeId]struct{}, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

func setEqual(a, b map[NodeId]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for id := range a {
		if _, ok := b[id]; !ok {
			return false
		}
	}
	return true
}

// NodeIdSet builds a voter/learner set literal from a list of ids, the
// idiomatic shorthand used throughout this package's tests.
func NodeIdSet(ids ...NodeId) map[NodeId]struct{} {
	out := make(map[NodeId]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}

// setDifference returns the ids in a but not b, sorted ascending so a
// caller that reports the first violation it finds does so
// deterministically rather than in map iteration order.
func setDifference(a, b map[NodeId]struct{}) []NodeId {
	var out []NodeId
	for id := range a {
		if _, ok := b[id]; !ok {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
