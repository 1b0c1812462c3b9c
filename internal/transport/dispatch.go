// Package transport implements a concrete raft.ReplicationDispatch over
// gRPC: one background worker per peer that drives an AppendEntries
// catch-up loop and reports progress back to the peer's
// raft.ReplicationTracker.
package transport

import (
	"context"
	"sort"
	"sync"
	"time"

	"google.golang.org/grpc"

	"github.com/rs/zerolog"

	"github.com/btmorr/leifraft/internal/raft"
	"github.com/btmorr/leifraft/internal/raftpb"
)

// Codec names the wire format raftpb messages are documented as using.
// It is not registered with encoding.RegisterCodec: gRPC's built-in
// "proto" codec already marshals raftpb's hand-authored
// Reset/String/ProtoMessage types without a protoc run, so this constant
// is descriptive only, not load-bearing.
const Codec = "raftpb"

// PeerDialer resolves a NodeId to a live gRPC connection.
type PeerDialer interface {
	Dial(ctx context.Context, target raft.NodeId) (*grpc.ClientConn, error)
	Close(target raft.NodeId)
}

// LogReader lets the replication worker pull entries a peer hasn't seen
// yet.
type LogReader interface {
	Entry(index uint64) (*raftpb.LogEntry, bool)
}

// Dispatch implements raft.ReplicationDispatch over gRPC.
type Dispatch struct {
	selfID NodeID
	dialer PeerDialer
	log    LogReader
	logger zerolog.Logger

	catchUpInterval time.Duration

	mu      sync.Mutex
	workers map[raft.NodeId]*worker
	pending map[uint64]pendingEntry
}

// pendingEntry is a ClientRequestEntry still waiting on NotifyCommitted.
type pendingEntry struct {
	logID raft.LogId
	reply *raft.PendingResponse[raft.ClientWriteResponse, *raft.ClientWriteError]
}

// NodeID is re-exported for readability at call sites that don't already
// import the raft package under that name.
type NodeID = raft.NodeId

// New builds a Dispatch for node self, pulling entries from log and
// dialing peers through dialer.
func New(self NodeID, dialer PeerDialer, log LogReader, logger zerolog.Logger) *Dispatch {
	return &Dispatch{
		selfID:          self,
		dialer:          dialer,
		log:             log,
		logger:          logger,
		catchUpInterval: 20 * time.Millisecond,
		workers:         map[raft.NodeId]*worker{},
		pending:         map[uint64]pendingEntry{},
	}
}

// Spawn implements raft.ReplicationDispatch.
func (d *Dispatch) Spawn(target raft.NodeId, reply *raft.PendingResponse[raft.AddLearnerResponse, *raft.AddLearnerError]) *raft.ReplicationTracker {
	tracker := raft.NewReplicationTracker(nil)

	w := &worker{
		dispatch: d,
		target:   target,
		tracker:  tracker,
		reply:    reply,
		stopCh:   make(chan struct{}),
		entries:  make(chan []*raftpb.LogEntry, 8),
	}
	tracker.Worker = w

	d.mu.Lock()
	d.workers[target] = w
	d.mu.Unlock()

	go w.run()

	d.logger.Info().Uint64("target", uint64(target)).Msg("spawned replication stream")
	return tracker
}

// Replicate implements raft.ReplicationDispatch: fan the entry out to
// every live worker and, if entry.Reply is set, queue it for
// NotifyCommitted to resolve once the commit index reaches entry.LogId.
func (d *Dispatch) Replicate(_ context.Context, entry raft.ClientRequestEntry) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if entry.Reply != nil {
		d.pending[entry.LogId.Index] = pendingEntry{logID: entry.LogId, reply: entry.Reply}
	}
	for _, w := range d.workers {
		select {
		case w.entries <- nil: // wake the worker; it re-reads from LogReader
		default:
		}
	}
	return nil
}

// NotifyCommitted implements raft.ReplicationDispatch: resolve every
// queued reply whose log id is at or before committed, in increasing
// index order, then forget it.
func (d *Dispatch) NotifyCommitted(committed raft.LogId) {
	d.mu.Lock()
	defer d.mu.Unlock()

	indices := make([]uint64, 0, len(d.pending))
	for idx := range d.pending {
		indices = append(indices, idx)
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })

	for _, idx := range indices {
		p := d.pending[idx]
		if raft.LogIdLess(&committed, &p.logID) {
			continue
		}
		p.reply.Send(raft.ClientWriteResponse{LogId: p.logID}, nil)
		delete(d.pending, idx)
	}
}

// Close implements raft.ReplicationDispatch: cancel every reply still
// queued in NotifyCommitted. Replies already handed to a worker (the
// AddLearner case) are cancelled individually as each worker stops.
func (d *Dispatch) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for idx, p := range d.pending {
		p.reply.Cancel()
		delete(d.pending, idx)
	}
}

type worker struct {
	dispatch *Dispatch
	target   raft.NodeId
	tracker  *raft.ReplicationTracker

	replyMu sync.Mutex
	reply   *raft.PendingResponse[raft.AddLearnerResponse, *raft.AddLearnerError]

	stopCh  chan struct{}
	entries chan []*raftpb.LogEntry

	stopOnce sync.Once
}

// Stop implements raft.ReplicationWorker. Any reply this worker still
// holds (a blocking AddLearner waiting on line-rate) is cancelled, not
// left to dangle: the caller observes it as a cancellation, not a hang.
func (w *worker) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.dispatch.dialer.Close(w.target)

		w.dispatch.mu.Lock()
		if d := w.dispatch.workers[w.target]; d == w {
			delete(w.dispatch.workers, w.target)
		}
		w.dispatch.mu.Unlock()

		w.replyMu.Lock()
		if w.reply != nil {
			w.reply.Cancel()
			w.reply = nil
		}
		w.replyMu.Unlock()
	})
}

// run is the catch-up loop: periodically ask the peer how far it has
// replicated, reporting progress back to the tracker and, once blocking,
// resolving reply.
func (w *worker) run() {
	ticker := time.NewTicker(w.dispatch.catchUpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-w.entries:
		case <-ticker.C:
		}

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		matched, lineRate, err := w.sendAppendEntries(ctx)
		cancel()
		if err != nil {
			w.dispatch.logger.Warn().Err(err).Uint64("target", uint64(w.target)).Msg("append-entries to peer failed")
			continue
		}

		w.tracker.UpdateMatched(matched)

		if lineRate {
			w.replyMu.Lock()
			if w.reply != nil {
				w.reply.Send(raft.AddLearnerResponse{Matched: w.tracker.Matched}, nil)
				w.reply = nil
			}
			w.replyMu.Unlock()
		}
	}
}

func (w *worker) sendAppendEntries(ctx context.Context) (raft.LogId, bool, error) {
	conn, err := w.dispatch.dialer.Dial(ctx, w.target)
	if err != nil {
		return raft.LogId{}, false, err
	}

	client := &replicationClient{cc: conn}

	prevIndex := uint64(0)
	if w.tracker.Matched != nil {
		prevIndex = w.tracker.Matched.Index
	}

	var entries []*raftpb.LogEntry
	for idx := prevIndex + 1; ; idx++ {
		entry, ok := w.dispatch.log.Entry(idx)
		if !ok {
			break
		}
		entries = append(entries, entry)
	}

	req := &raftpb.AppendEntriesRequest{
		LeaderId:     uint64(w.dispatch.selfID),
		PrevLogIndex: prevIndex,
		Entries:      entries,
	}

	reply, err := client.AppendEntries(ctx, req)
	if err != nil {
		return raft.LogId{}, false, err
	}
	if !reply.Success {
		return raft.LogId{}, false, nil
	}

	matched := raft.LogId{Term: reply.Term, Index: reply.MatchIndex}
	return matched, len(entries) == 0, nil
}
