package id

import (
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
)

var (
	mu   sync.RWMutex
	node *snowflake.Node
)

// Init sets up the process-wide snowflake node. Every replica of the
// messaging service must run with a distinct nodeID (0-1023). Only the
// first call has an effect.
func Init(nodeID int64) error {
	mu.Lock()
	defer mu.Unlock()

	if node != nil {
		return nil
	}
	n, err := snowflake.NewNode(nodeID)
	if err != nil {
		return fmt.Errorf("creating snowflake node %d: %w", nodeID, err)
	}
	node = n
	return nil
}

// New returns the next message id. Ids from one node grow with time, which
// the stores rely on to order messages sharing a timestamp.
func New() int64 {
	mu.RLock()
	n := node
	mu.RUnlock()

	if n == nil {
		panic("id: Init must be called before New")
	}
	return n.Generate().Int64()
}

// Time returns the creation time encoded in id, in milliseconds. For ids
// from one node it never decreases as ids grow, even across wall clock steps,
// because the node measures time on the monotonic clock.
func Time(id int64) time.Time {
	return time.UnixMilli(snowflake.ID(id).Time()).UTC()
}
