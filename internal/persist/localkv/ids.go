package localkv

import (
	"fmt"
	"sync"
	"time"
)

// idGenerator assigns timestamp-based ids for locally created entities.
// Remote entities get server UUIDs; local ones only need session-unique,
// monotonically increasing ids so feed order stays stable.
type idGenerator struct {
	mu   sync.Mutex
	last int64
}

func (g *idGenerator) next(prefix string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := time.Now().UnixNano()
	if now <= g.last {
		now = g.last + 1
	}
	g.last = now
	return fmt.Sprintf("%s_%d", prefix, now)
}
