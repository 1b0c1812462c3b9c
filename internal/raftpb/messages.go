// Package raftpb defines the wire types shared by this node's log
// persistence and replication transport, in the protoc-gen-go style:
// plain structs with protobuf struct tags plus the legacy
// Reset/String/ProtoMessage trio, which github.com/golang/protobuf's
// proto.Marshal/Unmarshal support via its reflection-based legacy
// message path.
package raftpb

import "fmt"

// EntryKind distinguishes a membership-change entry from an opaque one.
type EntryKind int32

const (
	EntryKind_OPAQUE     EntryKind = 0
	EntryKind_MEMBERSHIP EntryKind = 1
)

// LogEntry is one persisted or replicated log record.
type LogEntry struct {
	Term  uint64    `protobuf:"varint,1,opt,name=term,proto3"`
	Index uint64    `protobuf:"varint,2,opt,name=index,proto3"`
	Kind  EntryKind `protobuf:"varint,3,opt,name=kind,proto3,enum=raftpb.EntryKind"`

	// MembershipJson carries the Membership configuration JSON-encoded
	// when Kind == EntryKind_MEMBERSHIP; empty otherwise.
	MembershipJson []byte `protobuf:"bytes,4,opt,name=membership_json,json=membershipJson,proto3"`

	// Data carries an opaque application payload when Kind ==
	// EntryKind_OPAQUE.
	Data []byte `protobuf:"bytes,5,opt,name=data,proto3"`
}

func (m *LogEntry) Reset()         { *m = LogEntry{} }
func (m *LogEntry) String() string { return fmt.Sprintf("LogEntry(term=%d, index=%d)", m.Term, m.Index) }
func (*LogEntry) ProtoMessage()    {}

// LogStoreSnapshot is the persisted file format for a node's full log.
type LogStoreSnapshot struct {
	Entries []*LogEntry `protobuf:"bytes,1,rep,name=entries,proto3"`
}

func (m *LogStoreSnapshot) Reset()         { *m = LogStoreSnapshot{} }
func (m *LogStoreSnapshot) String() string { return fmt.Sprintf("LogStoreSnapshot(%d entries)", len(m.Entries)) }
func (*LogStoreSnapshot) ProtoMessage()    {}

// TermRecord is the persisted hard-state file format.
type TermRecord struct {
	Term     uint64 `protobuf:"varint,1,opt,name=term,proto3"`
	VotedFor uint64 `protobuf:"varint,2,opt,name=voted_for,json=votedFor,proto3"`
	HasVote  bool   `protobuf:"varint,3,opt,name=has_vote,json=hasVote,proto3"`
}

func (m *TermRecord) Reset()         { *m = TermRecord{} }
func (m *TermRecord) String() string { return fmt.Sprintf("TermRecord(term=%d, voted_for=%d)", m.Term, m.VotedFor) }
func (*TermRecord) ProtoMessage()    {}

// AppendEntriesRequest is the replication-stream RPC body this node's
// transport sends to a peer to extend its log toward a line-rate match.
type AppendEntriesRequest struct {
	Term         uint64      `protobuf:"varint,1,opt,name=term,proto3"`
	LeaderId     uint64      `protobuf:"varint,2,opt,name=leader_id,json=leaderId,proto3"`
	PrevLogIndex uint64      `protobuf:"varint,3,opt,name=prev_log_index,json=prevLogIndex,proto3"`
	PrevLogTerm  uint64      `protobuf:"varint,4,opt,name=prev_log_term,json=prevLogTerm,proto3"`
	Entries      []*LogEntry `protobuf:"bytes,5,rep,name=entries,proto3"`
	LeaderCommit uint64      `protobuf:"varint,6,opt,name=leader_commit,json=leaderCommit,proto3"`
}

func (m *AppendEntriesRequest) Reset()      { *m = AppendEntriesRequest{} }
func (m *AppendEntriesRequest) String() string {
	return fmt.Sprintf("AppendEntriesRequest(term=%d, leader=%d, nEntries=%d)", m.Term, m.LeaderId, len(m.Entries))
}
func (*AppendEntriesRequest) ProtoMessage() {}

// AppendEntriesReply carries the peer's resulting MatchIndex so the
// replication worker can update its ReplicationTracker without a second
// round trip.
type AppendEntriesReply struct {
	Term       uint64 `protobuf:"varint,1,opt,name=term,proto3"`
	Success    bool   `protobuf:"varint,2,opt,name=success,proto3"`
	MatchIndex uint64 `protobuf:"varint,3,opt,name=match_index,json=matchIndex,proto3"`
}

func (m *AppendEntriesReply) Reset()      { *m = AppendEntriesReply{} }
func (m *AppendEntriesReply) String() string {
	return fmt.Sprintf("AppendEntriesReply(term=%d, success=%v, matchIndex=%d)", m.Term, m.Success, m.MatchIndex)
}
func (*AppendEntriesReply) ProtoMessage() {}
