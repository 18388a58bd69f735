package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "hashring.v1.Ring"

const (
	lookupMethod     = "/" + ServiceName + "/Lookup"
	addNodeMethod    = "/" + ServiceName + "/AddNode"
	removeNodeMethod = "/" + ServiceName + "/RemoveNode"
	membersMethod    = "/" + ServiceName + "/Members"
)

// RingServer is the server API for the hashring.v1.Ring service.
// Nodes travel as Structs with string fields "id" and "addr". Every key
// resolves, the empty string included.
type RingServer interface {
	Lookup(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	AddNode(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	RemoveNode(context.Context, *wrapperspb.StringValue) (*wrapperspb.BoolValue, error)
	Members(context.Context, *emptypb.Empty) (*structpb.ListValue, error)
}

// RegisterRingServer registers srv on s.
func RegisterRingServer(s grpc.ServiceRegistrar, srv RingServer) {
	s.RegisterService(&ringServiceDesc, srv)
}

var ringServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RingServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Lookup", Handler: unaryHandler(lookupMethod, RingServer.Lookup)},
		{MethodName: "AddNode", Handler: unaryHandler(addNodeMethod, RingServer.AddNode)},
		{MethodName: "RemoveNode", Handler: unaryHandler(removeNodeMethod, RingServer.RemoveNode)},
		{MethodName: "Members", Handler: unaryHandler(membersMethod, RingServer.Members)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: ProtoFile,
}

// unaryHandler adapts a RingServer method to a grpc.MethodHandler, running
// it through the server's interceptor chain when one is installed.
func unaryHandler[Req, Resp any](fullMethod string, call func(RingServer, context.Context, *Req) (*Resp, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(RingServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(RingServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}
