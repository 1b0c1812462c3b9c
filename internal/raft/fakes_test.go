package raft

import (
	"context"
	"sync"
)

// fakeLogStore is an in-memory LogStore test double: each AppendPayload
// call hands out the next sequential index for the given term.
type fakeLogStore struct {
	mu      sync.Mutex
	term    uint64
	nextIdx uint64
	entries []EntryPayload
}

func newFakeLogStore(term uint64) *fakeLogStore {
	return &fakeLogStore{term: term, nextIdx: 1}
}

// newFakeLogStoreAt builds a log store whose next append starts right
// after an existing last log id, for tests that seed NodeCore.LastLogId
// directly without routing every prior entry through AppendPayload.
func newFakeLogStoreAt(term uint64, lastIndex uint64) *fakeLogStore {
	return &fakeLogStore{term: term, nextIdx: lastIndex + 1}
}

func (f *fakeLogStore) AppendPayload(_ context.Context, payload EntryPayload) (LogId, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, payload)
	id := LogId{Term: f.term, Index: f.nextIdx}
	f.nextIdx++
	return id, nil
}

type failingLogStore struct{ err error }

func (f *failingLogStore) AppendPayload(context.Context, EntryPayload) (LogId, error) {
	return LogId{}, f.err
}

type fakeHardState struct {
	mu       sync.Mutex
	term     uint64
	votedFor *NodeId
}

func (f *fakeHardState) Save(_ context.Context, term uint64, votedFor *NodeId) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.term = term
	f.votedFor = votedFor
	return nil
}

type noopWorker struct{ stopped bool }

func (w *noopWorker) Stop() { w.stopped = true }

// fakeDispatch spawns trackers pre-seeded with a given matched log id, and
// records every entry handed to Replicate.
type fakeDispatch struct {
	mu          sync.Mutex
	seedMatched map[NodeId]*LogId
	replicated  []ClientRequestEntry
	spawned     []NodeId
}

func newFakeDispatch() *fakeDispatch {
	return &fakeDispatch{seedMatched: map[NodeId]*LogId{}}
}

func (d *fakeDispatch) Spawn(target NodeId, reply *PendingResponse[AddLearnerResponse, *AddLearnerError]) *ReplicationTracker {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.spawned = append(d.spawned, target)
	tracker := NewReplicationTracker(&noopWorker{})
	if m, ok := d.seedMatched[target]; ok {
		tracker.Matched = m
	}
	if reply != nil {
		reply.Send(AddLearnerResponse{Matched: tracker.Matched}, nil)
	}
	return tracker
}

func (d *fakeDispatch) Replicate(_ context.Context, entry ClientRequestEntry) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.replicated = append(d.replicated, entry)
	return nil
}

func (d *fakeDispatch) NotifyCommitted(committed LogId) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, e := range d.replicated {
		if e.Reply == nil || committed.Less(e.LogId) {
			continue
		}
		e.Reply.Send(ClientWriteResponse{LogId: e.LogId}, nil)
		d.replicated[i].Reply = nil
	}
}

func (d *fakeDispatch) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, e := range d.replicated {
		if e.Reply != nil {
			e.Reply.Cancel()
			d.replicated[i].Reply = nil
		}
	}
}

type fakeMetrics struct {
	mu      sync.Mutex
	reports int
	removed []NodeId
}

func (m *fakeMetrics) LeaderReportMetrics() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports++
}

func (m *fakeMetrics) RemoveReplicationMetric(peer NodeId) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removed = append(m.removed, peer)
}

func logID(term, index uint64) *LogId {
	return &LogId{Term: term, Index: index}
}
