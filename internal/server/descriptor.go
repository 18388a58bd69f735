package server

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ProtoFile is the name the service descriptor is registered under.
const ProtoFile = "hashring/v1/ring.proto"

// ringFile describes hashring.v1.Ring so that gRPC reflection can serve it.
// It is registered in protoregistry.GlobalFiles at init.
var ringFile = mustRegisterRingFile()

func mustRegisterRingFile() protoreflect.FileDescriptor {
	typeName := func(m proto.Message) *string {
		return proto.String("." + string(m.ProtoReflect().Descriptor().FullName()))
	}
	method := func(name string, in, out proto.Message) *descriptorpb.MethodDescriptorProto {
		return &descriptorpb.MethodDescriptorProto{
			Name:       proto.String(name),
			InputType:  typeName(in),
			OutputType: typeName(out),
		}
	}

	fdp := &descriptorpb.FileDescriptorProto{
		Name:    proto.String(ProtoFile),
		Package: proto.String("hashring.v1"),
		Syntax:  proto.String("proto3"),
		Dependency: []string{
			structpb.File_google_protobuf_struct_proto.Path(),
			wrapperspb.File_google_protobuf_wrappers_proto.Path(),
			emptypb.File_google_protobuf_empty_proto.Path(),
		},
		Service: []*descriptorpb.ServiceDescriptorProto{{
			Name: proto.String("Ring"),
			Method: []*descriptorpb.MethodDescriptorProto{
				method("Lookup", &wrapperspb.StringValue{}, &structpb.Struct{}),
				method("AddNode", &structpb.Struct{}, &emptypb.Empty{}),
				method("RemoveNode", &wrapperspb.StringValue{}, &wrapperspb.BoolValue{}),
				method("Members", &emptypb.Empty{}, &structpb.ListValue{}),
			},
		}},
	}

	fd, err := protodesc.NewFile(fdp, protoregistry.GlobalFiles)
	if err != nil {
		panic(fmt.Sprintf("building %s descriptor: %v", ProtoFile, err))
	}
	if err := protoregistry.GlobalFiles.RegisterFile(fd); err != nil {
		panic(fmt.Sprintf("registering %s descriptor: %v", ProtoFile, err))
	}
	return fd
}
