// Command leifraftd wires a membership-change core to its external
// collaborators (log store, replication transport, admin API) and runs
// them as one process for a single node.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/btmorr/leifraft/internal/adminapi"
	"github.com/btmorr/leifraft/internal/logstore"
	"github.com/btmorr/leifraft/internal/raft"
	"github.com/btmorr/leifraft/internal/raftpb"
	"github.com/btmorr/leifraft/internal/transport"
)

func main() {
	selfID := flag.Uint64("id", 1, "this node's id")
	rpcAddr := flag.String("rpc-addr", ":9090", "address to serve replication RPCs on")
	adminAddr := flag.String("admin-addr", ":8080", "address to serve the admin API on")
	peers := flag.String("peers", "", "comma-separated id=addr pairs for known peers, e.g. 2=localhost:9091,3=localhost:9092")
	voters := flag.String("voters", "", "comma-separated node ids forming the initial voter set, e.g. 1,2,3")
	flag.Parse()

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("node", strconv.FormatUint(*selfID, 10)).Logger()

	addrBook, err := parsePeers(*peers)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid -peers")
	}

	store := logstore.New(logger)
	dialer := transport.NewGRPCDialer(addrBook)
	dispatch := transport.New(raft.NodeId(*selfID), dialer, store, logger)

	core := raft.NewNodeCore(raft.NodeId(*selfID), store, store, logger)
	learner := raft.NewLearnerRole(core)
	leader := raft.NewLeaderRole(core, dispatch, nopMetrics{}, raft.DefaultReplicationConfig)

	lis, err := net.Listen("tcp", *rpcAddr)
	if err != nil {
		logger.Fatal().Err(err).Str("addr", *rpcAddr).Msg("failed to bind replication listener")
	}
	grpcServer := transport.StartServer(lis, unimplementedAppendEntries, logger)
	defer grpcServer.GracefulStop()

	admin := adminapi.New(learner, leader)
	httpServer := &http.Server{Addr: *adminAddr, Handler: admin.Handler()}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("admin API stopped serving")
		}
	}()

	if *voters != "" {
		members, err := parseVoterSet(*voters)
		if err != nil {
			logger.Fatal().Err(err).Msg("invalid -voters")
		}
		if err := learner.InitWithConfig(context.Background(), members); err != nil {
			logger.Warn().Err(err).Msg("init_with_config rejected; node is likely already initialized")
		}
	}

	logger.Info().Str("rpc-addr", *rpcAddr).Str("admin-addr", *adminAddr).Msg("leifraftd started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info().Msg("shutting down")
	_ = httpServer.Close()
}

// unimplementedAppendEntries stands in for the append-entries state
// machine this repo deliberately does not implement; wiring a real one in
// is a deployment's job, not this core's.
func unimplementedAppendEntries(_ context.Context, _ *raftpb.AppendEntriesRequest) (*raftpb.AppendEntriesReply, error) {
	return nil, fmt.Errorf("append-entries handling is not wired into this build")
}

type nopMetrics struct{}

func (nopMetrics) LeaderReportMetrics()                     {}
func (nopMetrics) RemoveReplicationMetric(peer raft.NodeId) {}

func parsePeers(spec string) (addrBook, error) {
	book := addrBook{}
	if spec == "" {
		return book, nil
	}
	for _, pair := range strings.Split(spec, ",") {
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("malformed peer entry %q, expected id=addr", pair)
		}
		id, err := strconv.ParseUint(kv[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed peer id %q: %w", kv[0], err)
		}
		book[raft.NodeId(id)] = kv[1]
	}
	return book, nil
}

func parseVoterSet(spec string) (map[raft.NodeId]struct{}, error) {
	members := map[raft.NodeId]struct{}{}
	for _, s := range strings.Split(spec, ",") {
		id, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed voter id %q: %w", s, err)
		}
		members[raft.NodeId(id)] = struct{}{}
	}
	return members, nil
}

type addrBook map[raft.NodeId]string

func (b addrBook) Addr(id raft.NodeId) (string, bool) {
	addr, ok := b[id]
	return addr, ok
}
