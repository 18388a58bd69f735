// Package ring implements a consistent hashing ring.
// Nodes are placed on a 64-bit circle by hash and a key resolves to the
// first node clockwise from its own position, so membership changes only
// move the keys between a node and its neighbour.
//
// A Ring is not safe for concurrent mutation; callers sharing one across
// goroutines must guard it themselves. Hashing is safe to call concurrently.
package ring
