package transport

import (
	"context"
	"net"

	"google.golang.org/grpc"

	"github.com/rs/zerolog"

	"github.com/btmorr/leifraft/internal/raftpb"
)

// AppendEntriesHandler is supplied by the node's append-entries state
// machine (out of scope for this repo); the gRPC server below only
// adapts the wire call into it, keeping transport separate from state
// machine logic.
type AppendEntriesHandler func(ctx context.Context, req *raftpb.AppendEntriesRequest) (*raftpb.AppendEntriesReply, error)

type server struct {
	handler AppendEntriesHandler
	logger  zerolog.Logger
}

func (s *server) AppendEntries(ctx context.Context, req *raftpb.AppendEntriesRequest) (*raftpb.AppendEntriesReply, error) {
	s.logger.Debug().Uint64("leader", req.LeaderId).Int("entries", len(req.Entries)).Msg("received append-entries request")
	return s.handler(ctx, req)
}

// StartServer constructs and starts a gRPC server carrying the
// replication service over lis.
func StartServer(lis net.Listener, handler AppendEntriesHandler, logger zerolog.Logger) *grpc.Server {
	s := grpc.NewServer()
	RegisterReplicationServer(s, &server{handler: handler, logger: logger})
	go func() {
		if err := s.Serve(lis); err != nil {
			logger.Error().Err(err).Msg("gRPC replication server stopped serving")
		}
	}()
	return s
}
