package worker

import (
	"fmt"

	u "github.com/araddon/gou"
	"github.com/hashicorp/go-memdb"
)

var _ = u.EMPTY

const nodeTable = "nodes"

// nodeAddrIndexer indexes nodes by their name:port address.
type nodeAddrIndexer struct{}

func (nodeAddrIndexer) FromObject(obj interface{}) (bool, []byte, error) {
	node, ok := obj.(*Node)
	if !ok {
		return false, nil, fmt.Errorf("expected *Node but got %T", obj)
	}
	// memdb convention, null terminate for prefix scans
	return true, []byte(node.Key() + "\x00"), nil
}

func (nodeAddrIndexer) FromArgs(args ...interface{}) ([]byte, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("must provide only a single argument")
	}
	addr, ok := args[0].(string)
	if !ok {
		return nil, fmt.Errorf("argument must be a string: %#v", args[0])
	}
	return []byte(addr + "\x00"), nil
}

func makeNodeDBSchema() *memdb.DBSchema {
	return &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			nodeTable: {
				Name: nodeTable,
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:    "id",
						Unique:  true,
						Indexer: nodeAddrIndexer{},
					},
					"readable": {
						Name: "readable",
						Indexer: &memdb.ConditionalIndex{
							Conditional: func(obj interface{}) (bool, error) {
								node, ok := obj.(*Node)
								if !ok {
									return false, fmt.Errorf("expected *Node but got %T", obj)
								}
								return node.IsActiveReadable(), nil
							},
						},
					},
				},
			},
		},
	}
}

// Registry is the directory of worker nodes known to this coordinator.
// Backed by an mvcc in-memory db so readers never block the writer that
// is activating/deactivating nodes.
type Registry struct {
	db *memdb.MemDB
}

func NewRegistry() (*Registry, error) {
	db, err := memdb.NewMemDB(makeNodeDBSchema())
	if err != nil {
		return nil, err
	}
	return &Registry{db: db}, nil
}

// AddNode inserts or replaces the node at its name:port address.
func (m *Registry) AddNode(node *Node) error {
	if node == nil {
		return fmt.Errorf("cannot add nil node")
	}
	txn := m.db.Txn(true)
	if err := txn.Insert(nodeTable, node); err != nil {
		txn.Abort()
		return err
	}
	txn.Commit()
	u.Debugf("registered worker %s state=%s", node.Key(), node.State)
	return nil
}

// RemoveNode drops the node at name:port. Missing nodes are not an error.
func (m *Registry) RemoveNode(name string, port int) error {
	node, err := m.Node(name, port)
	if err != nil {
		return err
	}
	if node == nil {
		return nil
	}
	txn := m.db.Txn(true)
	if err := txn.Delete(nodeTable, node); err != nil {
		txn.Abort()
		return err
	}
	txn.Commit()
	return nil
}

// Node looks up a single node by address, nil if not found.
func (m *Registry) Node(name string, port int) (*Node, error) {
	txn := m.db.Txn(false)
	defer txn.Abort()
	raw, err := txn.First(nodeTable, "id", fmt.Sprintf("%s:%d", name, port))
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	return raw.(*Node), nil
}

// ActiveReadableNodes returns every worker that may participate in a
// repartition run, in stable address order.
func (m *Registry) ActiveReadableNodes() ([]*Node, error) {
	txn := m.db.Txn(false)
	defer txn.Abort()
	iter, err := txn.Get(nodeTable, "readable", true)
	if err != nil {
		return nil, err
	}
	nodes := make([]*Node, 0, 4)
	for raw := iter.Next(); raw != nil; raw = iter.Next() {
		nodes = append(nodes, raw.(*Node))
	}
	return nodes, nil
}

// Nodes returns every registered worker regardless of state.
func (m *Registry) Nodes() ([]*Node, error) {
	txn := m.db.Txn(false)
	defer txn.Abort()
	iter, err := txn.Get(nodeTable, "id")
	if err != nil {
		return nil, err
	}
	nodes := make([]*Node, 0, 4)
	for raw := iter.Next(); raw != nil; raw = iter.Next() {
		nodes = append(nodes, raw.(*Node))
	}
	return nodes, nil
}
