package core

import (
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/avelis/Parley/internal/domain"
)

// MessageOutcome carries the stored message plus every member to deliver
// to, the sender included so its view matches the server-assigned id.
type MessageOutcome struct {
	Message domain.Message
	Members []ConnID
}

type DeleteMessageOutcome struct {
	ID      domain.MessageID
	Members []ConnID
}

// TypingOutcome names the typist and the other members to notify.
type TypingOutcome struct {
	Username string
	Others   []ConnID
}

// SendMessage validates, stores and fans out one message. History keeps
// the most recent entries up to the limit, oldest evicted first.
func (e *Engine) SendMessage(conn ConnID, text string) (MessageOutcome, error) {
	text = strings.TrimSpace(text)

	e.mu.Lock()
	defer e.mu.Unlock()
	a, ok := e.assoc[conn]
	if !ok {
		return MessageOutcome{}, domain.ErrNotInRoom
	}
	room, ok := e.rooms[a.Secret]
	if !ok {
		// Lost a race with room deletion; drop the stale association.
		delete(e.assoc, conn)
		return MessageOutcome{}, domain.ErrNotInRoom
	}
	if text == "" {
		return MessageOutcome{}, domain.ErrEmptyMessage
	}
	if utf8.RuneCountInString(text) > domain.MaxMessageLen {
		return MessageOutcome{}, domain.ErrMessageTooLong
	}

	now := e.now()
	msg := domain.Message{
		ID:     e.ids.next(now),
		Sender: a.Username,
		Text:   text,
		SentAt: now,
	}
	room.history = append(room.history, msg)
	if len(room.history) > domain.HistoryLimit {
		room.history = room.history[len(room.history)-domain.HistoryLimit:]
	}
	room.meta.LastActivity = now

	log.Debug().Str("module", "core.engine").Str("room", string(room.meta.Name)).Str("user", a.Username).Str("msg_id", string(msg.ID)).Msg("message stored")
	return MessageOutcome{Message: msg, Members: room.conns()}, nil
}

// DeleteMessage removes one message from history. Only the asserted author
// or the administrator identity may delete; this is the known weak-trust
// model, usernames are not authenticated.
func (e *Engine) DeleteMessage(conn ConnID, id domain.MessageID) (DeleteMessageOutcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	a, ok := e.assoc[conn]
	if !ok {
		return DeleteMessageOutcome{}, domain.ErrNotInRoom
	}
	room, ok := e.rooms[a.Secret]
	if !ok {
		delete(e.assoc, conn)
		return DeleteMessageOutcome{}, domain.ErrNotInRoom
	}

	idx := -1
	for i, m := range room.history {
		if m.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return DeleteMessageOutcome{}, domain.ErrMessageNotFound
	}
	msg := room.history[idx]
	if !strings.EqualFold(a.Username, msg.Sender) && !strings.EqualFold(a.Username, e.admin) {
		return DeleteMessageOutcome{}, domain.ErrForbidden
	}

	room.history = append(room.history[:idx], room.history[idx+1:]...)
	room.meta.LastActivity = e.now()
	log.Info().Str("module", "core.engine").Str("room", string(room.meta.Name)).Str("user", a.Username).Str("msg_id", string(id)).Msg("message deleted")
	return DeleteMessageOutcome{ID: id, Members: room.conns()}, nil
}

// Typing resolves the typist's room mates. No state is kept; expiry of the
// indicator is the client's concern.
func (e *Engine) Typing(conn ConnID) (TypingOutcome, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	a, ok := e.assoc[conn]
	if !ok {
		return TypingOutcome{}, false
	}
	room, ok := e.rooms[a.Secret]
	if !ok {
		return TypingOutcome{}, false
	}
	return TypingOutcome{Username: a.Username, Others: room.connsExcept(conn)}, true
}

// History returns a copy of a room's current history, newest last.
func (e *Engine) History(secret domain.Secret) []domain.Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	room, ok := e.rooms[secret]
	if !ok {
		return nil
	}
	return append([]domain.Message(nil), room.history...)
}
