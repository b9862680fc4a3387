package utilities

import (
	"os"
	"strconv"
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/segmentio/ksuid"
)

// NewKSUID generates a new globally unique KSUID string.
func NewKSUID() string {
	return ksuid.New().String()
}

var (
	nodesMu sync.Mutex
	nodes   = map[int64]*snowflake.Node{}
)

// NodeIDFromEnv reads SNOWFLAKE_NODE, defaulting to node 1.
func NodeIDFromEnv() int64 {
	nodeID, err := strconv.ParseInt(os.Getenv("SNOWFLAKE_NODE"), 10, 64)
	if err != nil {
		return 1
	}
	return nodeID
}

// NewSnowflakeID generates a snowflake ID string using the node from SNOWFLAKE_NODE.
func NewSnowflakeID() string {
	return NewSnowflakeIDWithNode(NodeIDFromEnv())
}

// NewSnowflakeIDWithNode generates a snowflake ID string using the provided node ID.
// Nodes are cached so sequence numbers stay monotonic within a millisecond.
// If the node cannot be initialized, it falls back to a KSUID string.
func NewSnowflakeIDWithNode(nodeID int64) string {
	nodesMu.Lock()
	defer nodesMu.Unlock()
	node, ok := nodes[nodeID]
	if !ok {
		var err error
		node, err = snowflake.NewNode(nodeID)
		if err != nil {
			return NewKSUID()
		}
		nodes[nodeID] = node
	}
	return node.Generate().String()
}
