package raft

import (
	"errors"
	"fmt"
)

// Fatal is unrecoverable: the node that produces one must shut down.
// Mirrors original_source/openraft's Fatal enum (StorageError | Stopped).
type Fatal struct {
	Cause error // underlying storage error, or ErrStopped on shutdown
	err   error
}

// ErrStopped is the Fatal cause used when the node is shutting down for
// reasons other than a storage failure.
var ErrStopped = errors.New("raft stopped")

// NewFatalStorageError wraps a storage failure as a Fatal.
func NewFatalStorageError(cause error) *Fatal {
	return &Fatal{Cause: cause, err: fmt.Errorf("storage error: %w", cause)}
}

// NewFatalStopped builds the Fatal used on explicit shutdown.
func NewFatalStopped() *Fatal {
	return &Fatal{Cause: ErrStopped, err: ErrStopped}
}

func (f *Fatal) Error() string {
	if f == nil {
		return "<nil fatal>"
	}
	return f.err.Error()
}

func (f *Fatal) Unwrap() error { return f.Cause }

// AsFatal extracts a *Fatal from err if err is, or wraps, one. This is the
// Go analogue of openraft's ExtractFatal/TryInto<Fatal> conversion: any
// domain error that carries a Fatal cause promotes to it.
func AsFatal(err error) (*Fatal, bool) {
	var f *Fatal
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

// InitializeError is returned by InitWithConfig.
type InitializeError struct {
	NotAllowed bool
	Fatal      *Fatal
}

func (e *InitializeError) Error() string {
	if e.Fatal != nil {
		return e.Fatal.Error()
	}
	return "the requested action is not allowed due to the Raft node's current state"
}

func (e *InitializeError) Unwrap() error {
	if e.Fatal != nil {
		return e.Fatal
	}
	return nil
}

// ErrInitNotAllowed is returned by InitWithConfig on a non-pristine node.
var ErrInitNotAllowed = &InitializeError{NotAllowed: true}

// ChangeMembershipError enumerates why change_membership was rejected
// before any log entry was appended. Mirrors
// original_source/openraft's ChangeMembershipError.
type ChangeMembershipError struct {
	kind               changeMembershipKind
	MembershipLogId    LogId
	NodeId             NodeId
	Matched            *LogId
	Distance           uint64
	Curr               *Membership
	To                 map[NodeId]struct{}
}

type changeMembershipKind int

const (
	cmEmptyMembership changeMembershipKind = iota
	cmInProgress
	cmLearnerNotFound
	cmLearnerIsLagging
	cmIncompatible
)

func (e *ChangeMembershipError) Error() string {
	switch e.kind {
	case cmEmptyMembership:
		return "new membership can not be empty"
	case cmInProgress:
		return fmt.Sprintf("the cluster is already undergoing a configuration change at log %s", e.MembershipLogId)
	case cmLearnerNotFound:
		return fmt.Sprintf("to add a member %d first need to add it as learner", e.NodeId)
	case cmLearnerIsLagging:
		return fmt.Sprintf("replication to learner %d is lagging %d, matched: %v, can not add as member", e.NodeId, e.Distance, e.Matched)
	case cmIncompatible:
		return fmt.Sprintf("not allowed to change from %v to %v", e.Curr, e.To)
	default:
		return "change membership error"
	}
}

// IsEmptyMembership reports the EmptyMembership variant.
func (e *ChangeMembershipError) IsEmptyMembership() bool { return e.kind == cmEmptyMembership }

// IsInProgress reports the InProgress variant.
func (e *ChangeMembershipError) IsInProgress() bool { return e.kind == cmInProgress }

// IsLearnerNotFound reports the LearnerNotFound variant.
func (e *ChangeMembershipError) IsLearnerNotFound() bool { return e.kind == cmLearnerNotFound }

// IsLearnerIsLagging reports the LearnerIsLagging variant.
func (e *ChangeMembershipError) IsLearnerIsLagging() bool { return e.kind == cmLearnerIsLagging }

// IsIncompatible reports the Incompatible variant. No membership policy in
// this package issues it: ChangeMembership never returns Incompatible, and
// errIncompatible has no caller outside the tests.
func (e *ChangeMembershipError) IsIncompatible() bool { return e.kind == cmIncompatible }

func errEmptyMembership() *ChangeMembershipError {
	return &ChangeMembershipError{kind: cmEmptyMembership}
}

func errInProgress(logID LogId) *ChangeMembershipError {
	return &ChangeMembershipError{kind: cmInProgress, MembershipLogId: logID}
}

func errLearnerNotFound(id NodeId) *ChangeMembershipError {
	return &ChangeMembershipError{kind: cmLearnerNotFound, NodeId: id}
}

func errLearnerIsLagging(id NodeId, matched *LogId, distance uint64) *ChangeMembershipError {
	return &ChangeMembershipError{kind: cmLearnerIsLagging, NodeId: id, Matched: matched, Distance: distance}
}

func errIncompatible(curr Membership, to map[NodeId]struct{}) *ChangeMembershipError {
	return &ChangeMembershipError{kind: cmIncompatible, Curr: &curr, To: to}
}

// ClientWriteError wraps the outcome of a rejected or failed
// change_membership / client write.
type ClientWriteError struct {
	ForwardTo             *ForwardToLeader
	ChangeMembershipError *ChangeMembershipError
	Fatal                 *Fatal
}

func (e *ClientWriteError) Error() string {
	switch {
	case e.Fatal != nil:
		return e.Fatal.Error()
	case e.ChangeMembershipError != nil:
		return e.ChangeMembershipError.Error()
	case e.ForwardTo != nil:
		return e.ForwardTo.Error()
	default:
		return "client write error"
	}
}

func (e *ClientWriteError) Unwrap() error {
	switch {
	case e.Fatal != nil:
		return e.Fatal
	case e.ChangeMembershipError != nil:
		return e.ChangeMembershipError
	case e.ForwardTo != nil:
		return e.ForwardTo
	default:
		return nil
	}
}

func changeMembershipClientError(cme *ChangeMembershipError) *ClientWriteError {
	return &ClientWriteError{ChangeMembershipError: cme}
}

// AddLearnerError is the error side of AddLearner's reply.
type AddLearnerError struct {
	ForwardTo *ForwardToLeader
	Exists    *NodeId
	Fatal     *Fatal
}

func (e *AddLearnerError) Error() string {
	switch {
	case e.Fatal != nil:
		return e.Fatal.Error()
	case e.Exists != nil:
		return fmt.Sprintf("node %d is already a learner", *e.Exists)
	case e.ForwardTo != nil:
		return e.ForwardTo.Error()
	default:
		return "add learner error"
	}
}

func (e *AddLearnerError) Unwrap() error {
	switch {
	case e.Fatal != nil:
		return e.Fatal
	case e.ForwardTo != nil:
		return e.ForwardTo
	default:
		return nil
	}
}

// ForwardToLeader indicates a request landed on a non-leader node; LeaderId
// is nil when the current leader is unknown.
type ForwardToLeader struct {
	LeaderId *NodeId
}

func (e *ForwardToLeader) Error() string {
	return fmt.Sprintf("has to forward request to: %v", e.LeaderId)
}
