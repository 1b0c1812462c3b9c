// Package adminapi exposes this node's admin surface (init_with_config,
// add_learner, change_membership) as JSON-over-HTTP endpoints, built on
// gin with cors middleware and swaggo-style swagger docs.
package adminapi

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/btmorr/leifraft/internal/adminapi/docs"
	"github.com/btmorr/leifraft/internal/raft"
)

// Core is the narrow surface the init handler drives; *raft.LearnerRole
// satisfies it directly.
type Core interface {
	InitWithConfig(ctx context.Context, members map[raft.NodeId]struct{}) error
}

// Leader is the surface available once the node holds leadership.
type Leader interface {
	AddLearner(target raft.NodeId, blocking bool, reply *raft.PendingResponse[raft.AddLearnerResponse, *raft.AddLearnerError])
	ChangeMembership(ctx context.Context, targetVoters map[raft.NodeId]struct{}, blocking bool, reply *raft.PendingResponse[raft.ClientWriteResponse, *raft.ClientWriteError]) error
}

// Server wires gin handlers onto a Core/Leader pair. Which of Learner or
// Leader is non-nil reflects this node's current role.
type Server struct {
	engine *gin.Engine

	learner Core
	leader  Leader
}

// New builds the admin HTTP surface. learner or leader may be nil
// depending on the node's current role; handlers reply 409 when the
// relevant role isn't currently held.
//
// @title leifraft admin API
// @version 1.0
// @description Cluster membership administration for a leifraft node.
func New(learner Core, leader Leader) *Server {
	s := &Server{learner: learner, leader: leader}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())

	engine.POST("/v1/init", s.handleInit)
	engine.POST("/v1/learners", s.handleAddLearner)
	engine.POST("/v1/membership", s.handleChangeMembership)
	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	s.engine = engine
	_ = docs.SwaggerInfo // referenced so the hand-authored swagger spec is wired, not dead code
	return s
}

func corsMiddleware() gin.HandlerFunc {
	c := cors.New(cors.Options{
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
	})
	return func(ctx *gin.Context) {
		c.HandlerFunc(ctx.Writer, ctx.Request)
		ctx.Next()
	}
}

// Handler returns the underlying http.Handler, for use with net/http.Server
// or httptest.
func (s *Server) Handler() http.Handler { return s.engine }

type initRequest struct {
	Members []uint64 `json:"members"`
}

// handleInit bootstraps a pristine node.
//
// @Summary Bootstrap a pristine node
// @Accept json
// @Produce json
// @Param body body initRequest true "initial voter set"
// @Success 200
// @Router /v1/init [post]
func (s *Server) handleInit(c *gin.Context) {
	if s.learner == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "node is not in the learner role"})
		return
	}
	var req initRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	members := make(map[raft.NodeId]struct{}, len(req.Members))
	for _, id := range req.Members {
		members[raft.NodeId(id)] = struct{}{}
	}
	if err := s.learner.InitWithConfig(c.Request.Context(), members); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type addLearnerRequest struct {
	Target   uint64 `json:"target"`
	Blocking bool   `json:"blocking"`
}

// handleAddLearner adds a non-voting learner.
//
// @Summary Add a learner
// @Accept json
// @Produce json
// @Param body body addLearnerRequest true "learner to add"
// @Success 200 {object} raft.AddLearnerResponse
// @Router /v1/learners [post]
func (s *Server) handleAddLearner(c *gin.Context) {
	if s.leader == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "node is not leader"})
		return
	}
	var req addLearnerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reply := raft.NewPendingResponse[raft.AddLearnerResponse, *raft.AddLearnerError]()
	s.leader.AddLearner(raft.NodeId(req.Target), req.Blocking, reply)

	resp, learnerErr, ok := reply.Recv()
	if !ok {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "request cancelled"})
		return
	}
	if learnerErr != nil {
		c.JSON(http.StatusConflict, gin.H{"error": learnerErr.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}

type changeMembershipRequest struct {
	Voters   []uint64 `json:"voters"`
	Blocking bool     `json:"blocking"`
}

// handleChangeMembership proposes a new voter configuration.
//
// @Summary Change cluster membership
// @Accept json
// @Produce json
// @Param body body changeMembershipRequest true "target voter set"
// @Success 200 {object} raft.ClientWriteResponse
// @Success 202 {object} map[string]string
// @Router /v1/membership [post]
func (s *Server) handleChangeMembership(c *gin.Context) {
	if s.leader == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "node is not leader"})
		return
	}
	var req changeMembershipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	voters := make(map[raft.NodeId]struct{}, len(req.Voters))
	for _, id := range req.Voters {
		voters[raft.NodeId(id)] = struct{}{}
	}

	reply := raft.NewPendingResponse[raft.ClientWriteResponse, *raft.ClientWriteError]()
	if err := s.leader.ChangeMembership(c.Request.Context(), voters, req.Blocking, reply); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if resp, writeErr, ok := reply.TryRecv(); ok {
		if writeErr != nil {
			c.JSON(http.StatusConflict, gin.H{"error": writeErr.Error()})
			return
		}
		c.JSON(http.StatusOK, resp)
		return
	}

	// Accepted: the entry was appended and is replicating; the caller's
	// reply resolves asynchronously once it commits.
	c.JSON(http.StatusAccepted, gin.H{"status": "pending"})
}
