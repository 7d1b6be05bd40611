package core

import (
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/avelis/Parley/internal/domain"
)

// RoomSummary is the public listing entry; json names follow the wire format.
type RoomSummary struct {
	Name   domain.RoomName `json:"name"`
	Secret domain.Secret   `json:"password"`
}

// RoomStats is the per-room projection behind update-room-stats.
type RoomStats struct {
	Name         domain.RoomName `json:"name"`
	Secret       domain.Secret   `json:"password"`
	MemberCount  int             `json:"userCount"`
	MemberNames  []string        `json:"userList"`
	MaxUsers     int             `json:"maxUsers,omitempty"`
	Protected    bool            `json:"protected"`
	MessageCount int             `json:"messageCount"`
	CreatedAt    time.Time       `json:"createdAt"`
	LastActivity time.Time       `json:"lastActivity"`
}

// DeleteRoomOutcome lists who must be notified before the room vanishes.
type DeleteRoomOutcome struct {
	Secret  domain.Secret
	Evicted []ConnID
}

// CreateRoom registers a new unprotected room. maxUsers 0 means unlimited;
// anything outside [1,100] is rejected.
func (e *Engine) CreateRoom(name domain.RoomName, secret domain.Secret, maxUsers int) error {
	name = domain.RoomName(strings.TrimSpace(string(name)))
	secret = domain.Secret(strings.TrimSpace(string(secret)))
	if name == "" || secret == "" {
		return domain.ErrInvalidInput
	}
	if maxUsers < 0 || maxUsers > domain.MaxRoomCapacity {
		return domain.ErrInvalidInput
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.rooms[secret]; ok {
		return domain.ErrRoomExists
	}
	now := e.now()
	e.rooms[secret] = &roomState{
		meta: &domain.Room{
			Secret:       secret,
			Name:         name,
			MaxUsers:     maxUsers,
			CreatedAt:    now,
			LastActivity: now,
		},
	}
	log.Info().Str("module", "core.engine").Str("room", string(name)).Int("max_users", maxUsers).Msg("room created")
	return nil
}

// DeleteRoom removes a room and clears every member's association.
// The caller delivers the room-being-deleted notice to Evicted first.
func (e *Engine) DeleteRoom(secret domain.Secret) (DeleteRoomOutcome, error) {
	secret = domain.Secret(strings.TrimSpace(string(secret)))

	e.mu.Lock()
	defer e.mu.Unlock()
	room, ok := e.rooms[secret]
	if !ok {
		return DeleteRoomOutcome{}, domain.ErrRoomNotFound
	}
	if room.meta.Protected {
		return DeleteRoomOutcome{}, domain.ErrRoomProtected
	}
	out := DeleteRoomOutcome{Secret: secret, Evicted: room.conns()}
	for _, conn := range out.Evicted {
		delete(e.assoc, conn)
	}
	delete(e.rooms, secret)
	log.Info().Str("module", "core.engine").Str("room", string(room.meta.Name)).Int("evicted", len(out.Evicted)).Msg("room deleted")
	return out, nil
}

// ListRooms returns name+secret pairs for the lobby room picker.
func (e *Engine) ListRooms() []RoomSummary {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]RoomSummary, 0, len(e.rooms))
	for secret, room := range e.rooms {
		out = append(out, RoomSummary{Name: room.meta.Name, Secret: secret})
	}
	sortByCreation(out, e.rooms)
	return out
}

// Stats recomputes the full projection from current state, no caching.
func (e *Engine) Stats() []RoomStats {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]RoomStats, 0, len(e.rooms))
	for secret, room := range e.rooms {
		out = append(out, RoomStats{
			Name:         room.meta.Name,
			Secret:       secret,
			MemberCount:  len(room.members),
			MemberNames:  room.memberNames(),
			MaxUsers:     room.meta.MaxUsers,
			Protected:    room.meta.Protected,
			MessageCount: len(room.history),
			CreatedAt:    room.meta.CreatedAt,
			LastActivity: room.meta.LastActivity,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Secret < out[j].Secret
	})
	return out
}

// SweepIdle deletes unprotected rooms that are empty and inactive past the
// threshold. The emptiness check and the delete happen under the same lock
// acquisition, so a concurrent join cannot lose its room.
func (e *Engine) SweepIdle(threshold time.Duration) []domain.Secret {
	e.mu.Lock()
	defer e.mu.Unlock()
	cutoff := e.now().Add(-threshold)
	var removed []domain.Secret
	for secret, room := range e.rooms {
		if room.meta.Protected || len(room.members) > 0 {
			continue
		}
		if room.meta.LastActivity.After(cutoff) {
			continue
		}
		delete(e.rooms, secret)
		removed = append(removed, secret)
		log.Info().Str("module", "core.engine").Str("room", string(room.meta.Name)).Time("last_activity", room.meta.LastActivity).Msg("idle room reclaimed")
	}
	return removed
}

// RoomCount reports how many rooms exist right now.
func (e *Engine) RoomCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.rooms)
}

func sortByCreation(out []RoomSummary, rooms map[domain.Secret]*roomState) {
	sort.Slice(out, func(i, j int) bool {
		a, b := rooms[out[i].Secret].meta.CreatedAt, rooms[out[j].Secret].meta.CreatedAt
		if !a.Equal(b) {
			return a.Before(b)
		}
		return out[i].Secret < out[j].Secret
	})
}
