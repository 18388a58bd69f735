package server

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"hashring/internal/ring"
)

// Client is a typed client for the Ring gRPC service.
type Client struct {
	cc   grpc.ClientConnInterface
	conn *grpc.ClientConn // nil when built with NewClient
}

// Dial creates a client for the ring service at addr. Connections are
// plaintext unless opts override the transport credentials.
func Dial(addr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", addr, err)
	}
	return &Client{cc: conn, conn: conn}, nil
}

// NewClient wraps an existing connection. Close does not close cc.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Lookup returns the node responsible for key, or false if the ring is empty.
func (c *Client) Lookup(ctx context.Context, key string) (ring.Node, bool, error) {
	out := new(structpb.Struct)
	err := c.cc.Invoke(ctx, lookupMethod, wrapperspb.String(key), out)
	if status.Code(err) == codes.NotFound {
		return ring.Node{}, false, nil
	}
	if err != nil {
		return ring.Node{}, false, fmt.Errorf("lookup %q: %w", key, err)
	}
	return protoToNode(out), true, nil
}

// AddNode adds or replaces a ring member.
func (c *Client) AddNode(ctx context.Context, node ring.Node) error {
	if err := c.cc.Invoke(ctx, addNodeMethod, nodeToProto(node), new(emptypb.Empty)); err != nil {
		return fmt.Errorf("add node %s: %w", node.ID, err)
	}
	return nil
}

// RemoveNode removes a ring member by ID and reports whether it was present.
func (c *Client) RemoveNode(ctx context.Context, id string) (bool, error) {
	out := new(wrapperspb.BoolValue)
	if err := c.cc.Invoke(ctx, removeNodeMethod, wrapperspb.String(id), out); err != nil {
		return false, fmt.Errorf("remove node %s: %w", id, err)
	}
	return out.GetValue(), nil
}

// Members lists ring members in clockwise order.
func (c *Client) Members(ctx context.Context) ([]ring.Node, error) {
	out := new(structpb.ListValue)
	if err := c.cc.Invoke(ctx, membersMethod, &emptypb.Empty{}, out); err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return protoToNodes(out), nil
}

// Close closes the underlying connection if the client owns it.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}
