package ring

// Node represents a physical node in the cluster.
type Node struct {
	ID   string
	Addr string
}

// AppendHash places a node by its ID only, so re-adding a node with a new
// address replaces the old entry.
func (n Node) AppendHash(b []byte) []byte {
	return append(b, n.ID...)
}

// String returns "id@addr".
func (n Node) String() string {
	return n.ID + "@" + n.Addr
}
