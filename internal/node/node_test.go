package node

import (
	"context"
	"io"
	"net"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-kit/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	rpb "google.golang.org/grpc/reflection/grpc_reflection_v1"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/descriptorpb"

	"hashring/internal/config"
	"hashring/internal/ring"
	"hashring/internal/server"
)

func startNode(t *testing.T, cfg config.Config) (*Node, *server.Client, string) {
	t.Helper()

	n := New(cfg, log.NewNopLogger())
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- n.Serve(lis) }()
	t.Cleanup(func() {
		n.Stop()
		assert.NoError(t, <-done)
	})

	client, err := server.Dial(lis.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return n, client, lis.Addr().String()
}

func TestNode_SmokeLookups(t *testing.T) {
	cfg := config.Config{
		ListenAddr: "127.0.0.1:0",
		LogLevel:   "info",
		Members: []config.Member{
			{ID: "n1", Addr: "127.0.0.1:50051"},
			{ID: "n2", Addr: "127.0.0.1:50052"},
			{ID: "n3", Addr: "127.0.0.1:50053"},
		},
	}
	n, client, _ := startNode(t, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	members, err := client.Members(ctx)
	require.NoError(t, err)
	assert.Len(t, members, 3)

	local := ring.From[ring.Node, string](cfg.BuildRingNodes())
	for _, key := range []string{"hello", "dude", "martian", "tardis"} {
		got, ok, err := client.Lookup(ctx, key)
		require.NoError(t, err)
		require.True(t, ok)

		want, _ := local.GetNode(key)
		assert.Equal(t, want, got, "key %s", key)
	}

	require.NoError(t, client.AddNode(ctx, ring.Node{ID: "localhost", Addr: "localhost:15329"}))
	assert.Equal(t, 4, n.Router().Len())
}

func TestNode_Metrics(t *testing.T) {
	n, client, _ := startNode(t, config.Config{
		ListenAddr: "127.0.0.1:0",
		Members:    []config.Member{{ID: "n1", Addr: "127.0.0.1:50051"}},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, _, err := client.Lookup(ctx, "key")
	require.NoError(t, err)

	srv := httptest.NewServer(n.MetricsHandler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), "hashring_members 1")
	assert.Contains(t, string(body), `hashring_lookups_total{result="found"} 1`)
}

func TestNode_ReflectionDescribesRingService(t *testing.T) {
	_, _, addr := startNode(t, config.Config{ListenAddr: "127.0.0.1:0"})

	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stream, err := rpb.NewServerReflectionClient(conn).ServerReflectionInfo(ctx)
	require.NoError(t, err)
	defer func() { _ = stream.CloseSend() }()

	require.NoError(t, stream.Send(&rpb.ServerReflectionRequest{
		MessageRequest: &rpb.ServerReflectionRequest_FileContainingSymbol{FileContainingSymbol: server.ServiceName},
	}))
	resp, err := stream.Recv()
	require.NoError(t, err)
	require.Nil(t, resp.GetErrorResponse(), "reflection error: %v", resp.GetErrorResponse())

	files := resp.GetFileDescriptorResponse().GetFileDescriptorProto()
	require.NotEmpty(t, files)

	var ringFile *descriptorpb.FileDescriptorProto
	for _, raw := range files {
		fdp := &descriptorpb.FileDescriptorProto{}
		require.NoError(t, proto.Unmarshal(raw, fdp))
		if fdp.GetName() == server.ProtoFile {
			ringFile = fdp
		}
	}
	require.NotNil(t, ringFile, "%s not returned", server.ProtoFile)
	require.Len(t, ringFile.GetService(), 1)

	methods := make([]string, 0, 4)
	for _, m := range ringFile.GetService()[0].GetMethod() {
		methods = append(methods, m.GetName())
	}
	assert.ElementsMatch(t, []string{"Lookup", "AddNode", "RemoveNode", "Members"}, methods)
}
