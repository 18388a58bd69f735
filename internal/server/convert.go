package server

import (
	"google.golang.org/protobuf/types/known/structpb"

	"hashring/internal/ring"
)

const (
	fieldID   = "id"
	fieldAddr = "addr"
)

// nodeToProto converts a ring.Node to its wire Struct.
func nodeToProto(n ring.Node) *structpb.Struct {
	return &structpb.Struct{
		Fields: map[string]*structpb.Value{
			fieldID:   structpb.NewStringValue(n.ID),
			fieldAddr: structpb.NewStringValue(n.Addr),
		},
	}
}

// protoToNode converts a wire Struct to a ring.Node. Missing or non-string
// fields become empty strings.
func protoToNode(pb *structpb.Struct) ring.Node {
	fields := pb.GetFields()
	return ring.Node{
		ID:   fields[fieldID].GetStringValue(),
		Addr: fields[fieldAddr].GetStringValue(),
	}
}

// nodesToProto converts nodes to a ListValue of Structs.
func nodesToProto(nodes []ring.Node) *structpb.ListValue {
	list := &structpb.ListValue{Values: make([]*structpb.Value, 0, len(nodes))}
	for _, n := range nodes {
		list.Values = append(list.Values, structpb.NewStructValue(nodeToProto(n)))
	}
	return list
}

// protoToNodes converts a ListValue of Structs to nodes, skipping entries
// that are not Structs.
func protoToNodes(pb *structpb.ListValue) []ring.Node {
	nodes := make([]ring.Node, 0, len(pb.GetValues()))
	for _, v := range pb.GetValues() {
		if s := v.GetStructValue(); s != nil {
			nodes = append(nodes, protoToNode(s))
		}
	}
	return nodes
}
