// Package server exposes a router over gRPC as the hashring.v1.Ring
// service so that collaborators in other processes can resolve keys and
// change membership. Messages are protobuf well-known types.
package server
