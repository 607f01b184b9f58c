package id

import (
	"fmt"
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	node *snowflake.Node
	once sync.Once
)

// Init initializes the Snowflake node used for triage pass ids.
func Init(nodeID int64) error {
	var err error
	once.Do(func() {
		node, err = snowflake.NewNode(nodeID)
	})
	if err != nil {
		return fmt.Errorf("snowflake node %d: %w", nodeID, err)
	}
	return nil
}

// New returns a time-ordered id. Init must have been called.
func New() int64 {
	return node.Generate().Int64()
}
