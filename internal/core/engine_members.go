package core

import (
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/avelis/Parley/internal/domain"
)

// JoinOutcome is everything the dispatcher needs after a successful join:
// the history snapshot for the joiner, the other members to notify, and
// the leave fallout when the connection switched rooms.
type JoinOutcome struct {
	RoomName domain.RoomName
	Username string
	History  []domain.Message
	Others   []ConnID
	Left     *LeaveOutcome
}

// LeaveOutcome names who left which room and who is still there to hear it.
type LeaveOutcome struct {
	Username  string
	Secret    domain.Secret
	RoomName  domain.RoomName
	Remaining []ConnID
}

// Join associates a connection with a room. A connection already seated
// somewhere leaves that room first; the dispatcher delivers the user-left
// notice from Left before the join notices.
func (e *Engine) Join(conn ConnID, username string, secret domain.Secret) (JoinOutcome, error) {
	username = strings.TrimSpace(username)
	secret = domain.Secret(strings.TrimSpace(string(secret)))
	if username == "" || utf8.RuneCountInString(username) > domain.MaxUsernameLen {
		return JoinOutcome{}, domain.ErrInvalidInput
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	room, ok := e.rooms[secret]
	if !ok {
		return JoinOutcome{}, domain.ErrInvalidPassword
	}
	if !room.meta.Unlimited() && len(room.members) >= room.meta.MaxUsers {
		return JoinOutcome{}, domain.ErrRoomFull
	}
	for _, m := range room.members {
		if strings.EqualFold(m.Username, username) {
			return JoinOutcome{}, domain.ErrUsernameTaken
		}
	}

	out := JoinOutcome{RoomName: room.meta.Name, Username: username}
	if left, ok := e.leaveLocked(conn); ok {
		out.Left = &left
	}

	now := e.now()
	room.members = append(room.members, Member{Conn: conn, Username: username, JoinedAt: now})
	room.meta.LastActivity = now
	e.assoc[conn] = association{Username: username, Secret: secret}

	out.History = append([]domain.Message(nil), room.history...)
	out.Others = room.connsExcept(conn)
	log.Info().Str("module", "core.engine").Str("conn", string(conn)).Str("user", username).Str("room", string(room.meta.Name)).Msg("member joined")
	return out, nil
}

// Leave clears the connection's association, if any. A connection with no
// room is a no-op, not an error.
func (e *Engine) Leave(conn ConnID) (LeaveOutcome, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.leaveLocked(conn)
}

func (e *Engine) leaveLocked(conn ConnID) (LeaveOutcome, bool) {
	a, ok := e.assoc[conn]
	if !ok {
		return LeaveOutcome{}, false
	}
	delete(e.assoc, conn)

	room, ok := e.rooms[a.Secret]
	if !ok {
		// Room vanished under the association; nothing left to notify.
		return LeaveOutcome{Username: a.Username, Secret: a.Secret}, true
	}
	for i, m := range room.members {
		if m.Conn == conn {
			room.members = append(room.members[:i], room.members[i+1:]...)
			break
		}
	}
	room.meta.LastActivity = e.now()
	log.Info().Str("module", "core.engine").Str("conn", string(conn)).Str("user", a.Username).Str("room", string(room.meta.Name)).Msg("member left")
	return LeaveOutcome{
		Username:  a.Username,
		Secret:    a.Secret,
		RoomName:  room.meta.Name,
		Remaining: room.conns(),
	}, true
}
