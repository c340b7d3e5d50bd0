package worker_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Alovez/citus/worker"
)

func TestNode(t *testing.T) {
	node := worker.NewNode("w1", 5432)
	assert.Equal(t, "w1:5432", node.Key())
	assert.Equal(t, true, node.IsActiveReadable())
	assert.Equal(t, "active", node.State.String())
	assert.Equal(t, "host=w1 port=5432 dbname=postgres",
		node.DSN("host=%s port=%d dbname=postgres"))

	node.State = worker.NodeStateInactive
	assert.Equal(t, false, node.IsActiveReadable())
	assert.Equal(t, "inactive", node.State.String())
}

func TestRegistryAddAndLookup(t *testing.T) {
	registry, err := worker.NewRegistry()
	assert.Equal(t, nil, err)

	assert.Equal(t, nil, registry.AddNode(worker.NewNode("w1", 5432)))
	assert.Equal(t, nil, registry.AddNode(worker.NewNode("w2", 5432)))

	node, err := registry.Node("w1", 5432)
	assert.Equal(t, nil, err)
	assert.NotEqual(t, nil, node)
	assert.Equal(t, "w1:5432", node.Key())

	missing, err := registry.Node("w3", 5432)
	assert.Equal(t, nil, err)
	assert.True(t, missing == nil)

	err = registry.AddNode(nil)
	assert.NotEqual(t, nil, err)
}

func TestRegistryActiveReadableNodes(t *testing.T) {
	registry, err := worker.NewRegistry()
	assert.Equal(t, nil, err)

	down := worker.NewNode("w2", 5432)
	down.State = worker.NodeStateInactive

	assert.Equal(t, nil, registry.AddNode(worker.NewNode("w3", 5432)))
	assert.Equal(t, nil, registry.AddNode(down))
	assert.Equal(t, nil, registry.AddNode(worker.NewNode("w1", 5432)))

	nodes, err := registry.ActiveReadableNodes()
	assert.Equal(t, nil, err)
	assert.Equal(t, 2, len(nodes))
	for _, node := range nodes {
		assert.Equal(t, true, node.IsActiveReadable())
	}

	all, err := registry.Nodes()
	assert.Equal(t, nil, err)
	assert.Equal(t, 3, len(all))
	// id index keeps address order stable
	assert.Equal(t, "w1:5432", all[0].Key())
	assert.Equal(t, "w2:5432", all[1].Key())
	assert.Equal(t, "w3:5432", all[2].Key())
}

func TestRegistryRemoveNode(t *testing.T) {
	registry, err := worker.NewRegistry()
	assert.Equal(t, nil, err)

	assert.Equal(t, nil, registry.AddNode(worker.NewNode("w1", 5432)))
	assert.Equal(t, nil, registry.RemoveNode("w1", 5432))

	node, err := registry.Node("w1", 5432)
	assert.Equal(t, nil, err)
	assert.True(t, node == nil)

	// removing a node that is not there is fine
	assert.Equal(t, nil, registry.RemoveNode("w1", 5432))
}

func TestRegistryReplaceNode(t *testing.T) {
	registry, err := worker.NewRegistry()
	assert.Equal(t, nil, err)

	assert.Equal(t, nil, registry.AddNode(worker.NewNode("w1", 5432)))
	replacement := worker.NewNode("w1", 5432)
	replacement.State = worker.NodeStateInactive
	assert.Equal(t, nil, registry.AddNode(replacement))

	all, err := registry.Nodes()
	assert.Equal(t, nil, err)
	assert.Equal(t, 1, len(all))
	assert.Equal(t, false, all[0].IsActiveReadable())
}

func TestTxSenderClose(t *testing.T) {
	sender := worker.NewTxSender("host=%s port=%d dbname=postgres sslmode=disable")
	assert.Equal(t, nil, sender.Close())
}
