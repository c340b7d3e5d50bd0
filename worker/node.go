package worker

import (
	"fmt"
)

// NodeState describes whether a worker can accept commands.
type NodeState int

const (
	NodeStateActive NodeState = iota
	NodeStateInactive
)

func (m NodeState) String() string {
	if m == NodeStateActive {
		return "active"
	}
	return "inactive"
}

// Node is a single worker in the fleet. Name and Port together identify
// the node; two registry entries never share them.
type Node struct {
	Name  string
	Port  int
	State NodeState
}

func NewNode(name string, port int) *Node {
	return &Node{Name: name, Port: port, State: NodeStateActive}
}

// Key is the unique address string for this node.
func (m *Node) Key() string { return fmt.Sprintf("%s:%d", m.Name, m.Port) }

// IsActiveReadable reports whether the node may participate in a
// repartition run. Inactive nodes are skipped by every broadcast.
func (m *Node) IsActiveReadable() bool { return m.State == NodeStateActive }

// DSN renders a connection string for this node from a template with
// host then port verbs, ie "host=%s port=%d dbname=postgres".
func (m *Node) DSN(template string) string {
	return fmt.Sprintf(template, m.Name, m.Port)
}
