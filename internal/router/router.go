package router

import (
	"errors"
	"fmt"
	"sync"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"

	"hashring/internal/ring"
)

const defaultReplicas = 3

// ErrInvalidNode is returned when a node is missing its ID or address.
var ErrInvalidNode = errors.New("node ID and address cannot be empty")

// Router maps keys to nodes using a consistent hashing ring.
type Router struct {
	mu      sync.RWMutex
	ring    *ring.Ring[ring.Node, string]
	byID    map[string]ring.Node
	logger  log.Logger
	metrics *metrics
}

// New creates a router seeded with nodes. Invalid nodes are skipped and
// logged.
func New(logger log.Logger, reg prometheus.Registerer, nodes ...ring.Node) *Router {
	r := &Router{
		ring:    ring.New[ring.Node, string](),
		byID:    make(map[string]ring.Node),
		logger:  logger,
		metrics: newMetrics(reg),
	}
	for _, node := range nodes {
		if err := r.Add(node); err != nil {
			level.Warn(logger).Log("msg", "skipping initial node", "node", node, "err", err)
		}
	}
	return r
}

// Add puts node on the ring. Adding a node whose ID is already a member
// replaces the previous entry, e.g. to change its address.
func (r *Router) Add(node ring.Node) error {
	if node.ID == "" || node.Addr == "" {
		return fmt.Errorf("%w: %q=%q", ErrInvalidNode, node.ID, node.Addr)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.ring.AddNode(node)
	r.byID[node.ID] = node
	r.syncMembers()
	r.metrics.membershipChanges.WithLabelValues("add").Inc()

	level.Info(r.logger).Log("msg", "node added", "id", node.ID, "addr", node.Addr, "members", r.ring.Len())
	return nil
}

// Remove takes the node with the given ID off the ring. Unlike
// ring.RemoveNode it only ever removes that exact node, and reports false
// without touching the ring when the ID is not a member.
func (r *Router) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	node, ok := r.byID[id]
	if !ok || !r.ring.Contains(node) {
		level.Debug(r.logger).Log("msg", "remove of unknown node ignored", "id", id)
		return false
	}

	r.ring.RemoveNode(node)
	delete(r.byID, id)
	r.syncMembers()
	r.metrics.membershipChanges.WithLabelValues("remove").Inc()

	level.Info(r.logger).Log("msg", "node removed", "id", id, "members", r.ring.Len())
	return true
}

// Lookup returns the node responsible for key. It returns false when the
// ring has no members.
func (r *Router) Lookup(key string) (ring.Node, bool) {
	r.mu.RLock()
	node, ok := r.ring.GetNode(key)
	r.mu.RUnlock()

	if ok {
		r.metrics.lookups.WithLabelValues("found").Inc()
	} else {
		r.metrics.lookups.WithLabelValues("empty").Inc()
	}
	return node, ok
}

// PreferenceList returns up to n distinct nodes for key, starting with the
// node Lookup would return. A non-positive n defaults to 3.
func (r *Router) PreferenceList(key string, n int) []ring.Node {
	if n <= 0 {
		n = defaultReplicas
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ring.Successors(key, n)
}

// Members returns the ring members in clockwise order.
func (r *Router) Members() []ring.Node {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ring.Nodes()
}

// Len returns the number of ring members.
func (r *Router) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ring.Len()
}

// syncMembers drops index entries whose ring slot was taken over by a
// colliding node and refreshes the member gauge. Must be called with mu held.
func (r *Router) syncMembers() {
	for id, node := range r.byID {
		if !r.ring.Contains(node) {
			level.Warn(r.logger).Log("msg", "node displaced by hash collision", "id", id)
			delete(r.byID, id)
		}
	}
	r.metrics.members.Set(float64(r.ring.Len()))
}
