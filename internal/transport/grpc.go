package transport

import (
	"context"
	"fmt"
	"sync"

	"google.golang.org/grpc"

	"github.com/rs/zerolog/log"

	"github.com/btmorr/leifraft/internal/raftpb"
)

const serviceName = "raftpb.Replication"

const appendEntriesMethod = "/" + serviceName + "/AppendEntries"

// replicationClient is the hand-rolled analogue of a protoc-gen-go-grpc
// client stub: a typed wrapper around grpc.ClientConn.Invoke.
type replicationClient struct {
	cc *grpc.ClientConn
}

func (c *replicationClient) AppendEntries(ctx context.Context, req *raftpb.AppendEntriesRequest) (*raftpb.AppendEntriesReply, error) {
	reply := new(raftpb.AppendEntriesReply)
	if err := c.cc.Invoke(ctx, appendEntriesMethod, req, reply); err != nil {
		return nil, err
	}
	return reply, nil
}

// ReplicationServer is implemented by whatever drives this node's
// external append-entries state machine (out of scope for this repo);
// the gRPC service here only needs a narrow handler to dispatch into it.
type ReplicationServer interface {
	AppendEntries(ctx context.Context, req *raftpb.AppendEntriesRequest) (*raftpb.AppendEntriesReply, error)
}

// serviceDesc is authored by hand in the same shape protoc-gen-go-grpc
// would emit from a replication.proto defining the Replication service;
// see internal/raftpb for the corresponding hand-authored message types.
var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*ReplicationServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "AppendEntries",
			Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
				req := new(raftpb.AppendEntriesRequest)
				if err := dec(req); err != nil {
					return nil, err
				}
				if interceptor == nil {
					return srv.(ReplicationServer).AppendEntries(ctx, req)
				}
				info := &grpc.UnaryServerInfo{Server: srv, FullMethod: appendEntriesMethod}
				handler := func(ctx context.Context, req interface{}) (interface{}, error) {
					return srv.(ReplicationServer).AppendEntries(ctx, req.(*raftpb.AppendEntriesRequest))
				}
				return interceptor(ctx, req, info, handler)
			},
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "replication.proto",
}

// RegisterReplicationServer registers srv on s, the hand-rolled analogue
// of the generated raftpb.RegisterReplicationServer.
func RegisterReplicationServer(s *grpc.Server, srv ReplicationServer) {
	s.RegisterService(&serviceDesc, srv)
}

// AddrBook resolves a NodeId to a dial address, the narrow interface a
// deployment's membership/config layer provides.
type AddrBook interface {
	Addr(target NodeID) (string, bool)
}

// GRPCDialer is the production PeerDialer: lazily dials and caches one
// connection per peer, closing it when the owning tracker is dropped.
type GRPCDialer struct {
	addrs AddrBook

	mu    sync.Mutex
	conns map[NodeID]*grpc.ClientConn
}

// NewGRPCDialer builds a dialer resolving peers through addrs.
func NewGRPCDialer(addrs AddrBook) *GRPCDialer {
	return &GRPCDialer{addrs: addrs, conns: map[NodeID]*grpc.ClientConn{}}
}

func (d *GRPCDialer) Dial(ctx context.Context, target NodeID) (*grpc.ClientConn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if conn, ok := d.conns[target]; ok {
		return conn, nil
	}

	addr, ok := d.addrs.Addr(target)
	if !ok {
		return nil, fmt.Errorf("no known address for peer %d", target)
	}

	conn, err := grpc.DialContext(ctx, addr, grpc.WithInsecure())
	if err != nil {
		log.Error().Err(err).Uint64("target", uint64(target)).Msg("failed to dial peer")
		return nil, err
	}
	d.conns[target] = conn
	return conn, nil
}

func (d *GRPCDialer) Close(target NodeID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if conn, ok := d.conns[target]; ok {
		_ = conn.Close()
		delete(d.conns, target)
	}
}
