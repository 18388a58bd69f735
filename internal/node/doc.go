// Package node wires configuration, the router, the gRPC ring service and
// the metrics endpoint into a single runnable process.
package node
