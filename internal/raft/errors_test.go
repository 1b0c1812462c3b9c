package raft

import (
	"context"
	"errors"
	"testing"
)

func TestStorageFailurePropagatesAsFatal(t *testing.T) {
	core := newTestCore(1, &failingLogStore{err: errors.New("disk full")})
	learner := NewLearnerRole(core)

	err := learner.InitWithConfig(context.Background(), NodeIdSet(1))
	if err == nil {
		t.Fatalf("expected an error")
	}

	initErr, ok := err.(*InitializeError)
	if !ok {
		t.Fatalf("expected *InitializeError, got %T", err)
	}
	fatal, ok := AsFatal(initErr)
	if !ok {
		t.Fatalf("expected storage failure to promote to Fatal")
	}
	if fatal.Cause == nil {
		t.Fatalf("expected the Fatal to carry the underlying storage error")
	}
}

func TestAsFatalStopped(t *testing.T) {
	f := NewFatalStopped()
	if !errors.Is(f.Cause, ErrStopped) {
		t.Fatalf("expected Stopped fatal to wrap ErrStopped")
	}
	extracted, ok := AsFatal(f)
	if !ok || extracted != f {
		t.Fatalf("expected AsFatal to recognize a *Fatal directly")
	}
}

func TestChangeMembershipErrorMessages(t *testing.T) {
	cases := []struct {
		name string
		err  *ChangeMembershipError
	}{
		{"empty", errEmptyMembership()},
		{"in_progress", errInProgress(LogId{Term: 1, Index: 1})},
		{"learner_not_found", errLearnerNotFound(5)},
		{"learner_lagging", errLearnerIsLagging(5, logID(1, 1), 3)},
		{"incompatible", errIncompatible(NewUniformMembership(NodeIdSet(1)), NodeIdSet(2))},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if c.err.Error() == "" {
				t.Fatalf("expected a non-empty error message")
			}
		})
	}
}
