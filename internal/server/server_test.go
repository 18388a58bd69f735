package server

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/go-kit/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"hashring/internal/ring"
	"hashring/internal/router"
)

func startTestServer(t *testing.T, nodes ...ring.Node) (*Client, *router.Router) {
	t.Helper()

	rt := router.New(log.NewNopLogger(), prometheus.NewRegistry(), nodes...)
	lis := bufconn.Listen(1 << 20)
	gs := grpc.NewServer()
	RegisterRingServer(gs, New(rt, log.NewNopLogger()))
	go func() { _ = gs.Serve(lis) }()
	t.Cleanup(gs.Stop)

	client, err := Dial("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return client, rt
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestServer_Lookup(t *testing.T) {
	nodes := []ring.Node{
		{ID: "node1", Addr: "127.0.0.1:50051"},
		{ID: "node2", Addr: "127.0.0.1:50052"},
		{ID: "node3", Addr: "127.0.0.1:50053"},
	}
	client, rt := startTestServer(t, nodes...)
	ctx := testContext(t)

	for _, key := range []string{"key1", "key2", "user:123"} {
		got, ok, err := client.Lookup(ctx, key)
		require.NoError(t, err)
		require.True(t, ok)

		want, _ := rt.Lookup(key)
		assert.Equal(t, want, got, "key %s", key)
	}
}

func TestServer_LookupEmptyRing(t *testing.T) {
	client, _ := startTestServer(t)
	ctx := testContext(t)

	_, ok, err := client.Lookup(ctx, "key")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestServer_LookupEmptyKey(t *testing.T) {
	client, rt := startTestServer(t,
		ring.Node{ID: "n1", Addr: "127.0.0.1:50051"},
		ring.Node{ID: "n2", Addr: "127.0.0.1:50052"},
	)
	ctx := testContext(t)

	// The empty string is an ordinary key.
	got, ok, err := client.Lookup(ctx, "")
	require.NoError(t, err)
	require.True(t, ok)

	want, _ := rt.Lookup("")
	assert.Equal(t, want, got)
}

func TestServer_Membership(t *testing.T) {
	client, rt := startTestServer(t)
	ctx := testContext(t)

	require.NoError(t, client.AddNode(ctx, ring.Node{ID: "n1", Addr: "127.0.0.1:50051"}))
	require.NoError(t, client.AddNode(ctx, ring.Node{ID: "n2", Addr: "127.0.0.1:50052"}))

	members, err := client.Members(ctx)
	require.NoError(t, err)
	assert.Equal(t, rt.Members(), members)
	assert.Len(t, members, 2)

	removed, err := client.RemoveNode(ctx, "n1")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = client.RemoveNode(ctx, "n1")
	require.NoError(t, err)
	assert.False(t, removed, "second removal of the same ID is a no-op")

	node, ok, err := client.Lookup(ctx, "anything")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "n2", node.ID)
}

func TestServer_AddNodeInvalid(t *testing.T) {
	client, rt := startTestServer(t)
	ctx := testContext(t)

	err := client.AddNode(ctx, ring.Node{ID: "n1"})
	require.Error(t, err)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	assert.Equal(t, 0, rt.Len())

	_, err = client.RemoveNode(ctx, "")
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestConvert_NodeRoundTrip(t *testing.T) {
	n := ring.Node{ID: "n1", Addr: "127.0.0.1:50051"}
	assert.Equal(t, n, protoToNode(nodeToProto(n)))

	// Unknown shapes degrade to empty fields rather than panicking.
	assert.Equal(t, ring.Node{}, protoToNode(nil))
	bad := &structpb.Struct{Fields: map[string]*structpb.Value{"id": structpb.NewNumberValue(3)}}
	assert.Equal(t, ring.Node{}, protoToNode(bad))

	list := &structpb.ListValue{Values: []*structpb.Value{
		structpb.NewStructValue(nodeToProto(n)),
		structpb.NewStringValue("junk"),
	}}
	assert.Equal(t, []ring.Node{n}, protoToNodes(list))
}

func TestRingFile_MatchesServiceDesc(t *testing.T) {
	d, err := protoregistry.GlobalFiles.FindDescriptorByName(ServiceName)
	require.NoError(t, err)
	sd, ok := d.(protoreflect.ServiceDescriptor)
	require.True(t, ok, "%s is not a service", ServiceName)

	assert.Equal(t, ProtoFile, sd.ParentFile().Path())
	assert.Equal(t, ringFile.Services().Get(0).FullName(), sd.FullName())
	assert.Equal(t, ProtoFile, ringServiceDesc.Metadata)

	require.Equal(t, len(ringServiceDesc.Methods), sd.Methods().Len())
	for _, m := range ringServiceDesc.Methods {
		assert.NotNil(t, sd.Methods().ByName(protoreflect.Name(m.MethodName)), "method %s", m.MethodName)
	}

	lookup := sd.Methods().ByName("Lookup")
	assert.Equal(t, protoreflect.FullName("google.protobuf.StringValue"), lookup.Input().FullName())
	assert.Equal(t, protoreflect.FullName("google.protobuf.Struct"), lookup.Output().FullName())
}

func TestServer_DirectCall(t *testing.T) {
	rt := router.New(log.NewNopLogger(), prometheus.NewRegistry())
	s := New(rt, log.NewNopLogger())

	_, err := s.Lookup(context.Background(), wrapperspb.String("k"))
	assert.Equal(t, codes.NotFound, status.Code(err))
}
