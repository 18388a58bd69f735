// Package router owns a consistent hashing ring on behalf of a shard router
// or caching client. It serializes membership changes, lets lookups run
// concurrently and exposes ring metrics.
package router
