package core

import (
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/avelis/Parley/internal/domain"
)

// messageIDs mints ULIDs from a monotonic entropy source so ids stay
// unique and ordered even for sends landing on the same millisecond.
type messageIDs struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func newMessageIDs() *messageIDs {
	seed := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &messageIDs{entropy: ulid.Monotonic(seed, 0)}
}

func (g *messageIDs) next(t time.Time) domain.MessageID {
	g.mu.Lock()
	defer g.mu.Unlock()
	id, err := ulid.New(ulid.Timestamp(t), g.entropy)
	if err != nil {
		// Monotonic overflow within one millisecond; fall back to a fresh read.
		id = ulid.Make()
	}
	return domain.MessageID(id.String())
}
