package server

import (
	"context"
	"errors"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"hashring/internal/router"
)

// Server implements the Ring gRPC service on top of a router.
type Server struct {
	router *router.Router
	logger log.Logger
}

var _ RingServer = (*Server)(nil)

// New creates a new gRPC ring service.
func New(r *router.Router, logger log.Logger) *Server {
	return &Server{
		router: r,
		logger: logger,
	}
}

// Lookup returns the node responsible for a key.
func (s *Server) Lookup(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	key := req.GetValue()
	node, ok := s.router.Lookup(key)
	if !ok {
		return nil, status.Error(codes.NotFound, "ring has no members")
	}

	level.Debug(s.logger).Log("msg", "lookup", "key", key, "node", node.ID)
	return nodeToProto(node), nil
}

// AddNode adds or replaces a ring member.
func (s *Server) AddNode(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	node := protoToNode(req)
	if err := s.router.Add(node); err != nil {
		level.Warn(s.logger).Log("msg", "add node rejected", "id", node.ID, "addr", node.Addr, "err", err)
		if errors.Is(err, router.ErrInvalidNode) {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		return nil, status.Error(codes.Internal, err.Error())
	}
	return &emptypb.Empty{}, nil
}

// RemoveNode removes a ring member by ID and reports whether it was present.
func (s *Server) RemoveNode(ctx context.Context, req *wrapperspb.StringValue) (*wrapperspb.BoolValue, error) {
	id := req.GetValue()
	if id == "" {
		return nil, status.Error(codes.InvalidArgument, "node ID cannot be empty")
	}
	return wrapperspb.Bool(s.router.Remove(id)), nil
}

// Members lists ring members in clockwise order.
func (s *Server) Members(ctx context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	return nodesToProto(s.router.Members()), nil
}
