package core

import (
	"sync"
	"time"

	"github.com/avelis/Parley/internal/domain"
	"github.com/rs/zerolog/log"
)

// ConnID identifies one transport connection for its whole lifetime.
type ConnID string

// Member is one connection's seat in a room.
type Member struct {
	Conn     ConnID
	Username string
	JoinedAt time.Time
}

type association struct {
	Username string
	Secret   domain.Secret
}

type roomState struct {
	meta    *domain.Room
	members []Member
	history []domain.Message
}

// Engine is the single authority over rooms, membership and history.
// One mutex serializes every mutating operation, the idle sweep included,
// so capacity, username uniqueness and the history bound hold under
// concurrent events. Mutators compute their full broadcast outcome inside
// the lock; callers only deliver, never re-read.
type Engine struct {
	mu    sync.Mutex
	rooms map[domain.Secret]*roomState
	assoc map[ConnID]association

	ids   *messageIDs
	admin string
	now   func() time.Time
}

type Options struct {
	SeedRoomName   domain.RoomName
	SeedRoomSecret domain.Secret
	AdminName      string
	Clock          func() time.Time
}

func NewEngine(opts Options) *Engine {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.SeedRoomName == "" {
		opts.SeedRoomName = "General Chat"
	}
	if opts.AdminName == "" {
		opts.AdminName = "Admin"
	}
	e := &Engine{
		rooms: make(map[domain.Secret]*roomState),
		assoc: make(map[ConnID]association),
		ids:   newMessageIDs(),
		admin: opts.AdminName,
		now:   opts.Clock,
	}
	if opts.SeedRoomSecret != "" {
		now := e.now()
		e.rooms[opts.SeedRoomSecret] = &roomState{
			meta: &domain.Room{
				Secret:       opts.SeedRoomSecret,
				Name:         opts.SeedRoomName,
				Protected:    true,
				CreatedAt:    now,
				LastActivity: now,
			},
		}
		log.Info().Str("module", "core.engine").Str("room", string(opts.SeedRoomName)).Msg("seed room created")
	}
	return e
}

// conns returns every member's connection id, in join order.
func (r *roomState) conns() []ConnID {
	out := make([]ConnID, 0, len(r.members))
	for _, m := range r.members {
		out = append(out, m.Conn)
	}
	return out
}

// connsExcept is conns without one connection, for other-members notices.
func (r *roomState) connsExcept(skip ConnID) []ConnID {
	out := make([]ConnID, 0, len(r.members))
	for _, m := range r.members {
		if m.Conn != skip {
			out = append(out, m.Conn)
		}
	}
	return out
}

func (r *roomState) memberNames() []string {
	out := make([]string, 0, len(r.members))
	for _, m := range r.members {
		out = append(out, m.Username)
	}
	return out
}
