package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/avelis/Parley/internal/core"
	"github.com/avelis/Parley/internal/domain"
)

// Outbound event names. Inbound names live in the io.go dispatch switch.
const (
	evInvalidPassword   = "invalid-password"
	evRoomFull          = "room-full"
	evUsernameTaken     = "username-taken"
	evJoinError         = "join-error"
	evRoomExists        = "room-exists"
	evRoomCreated       = "room-created"
	evRoomCreationError = "room-creation-error"
	evRoomsList         = "rooms-list"
	evRoomProtected     = "room-protected"
	evRoomNotFound      = "room-not-found"
	evMessageError      = "message-error"
	evDeleteError       = "delete-error"
	evLoadMessages      = "load-messages"
	evUserJoined        = "user-joined"
	evUserLeft          = "user-left"
	evReceiveMessage    = "receive-message"
	evMessageDeleted    = "message-deleted"
	evUserTyping        = "user-typing"
	evUserStopTyping    = "user-stop-typing"
	evRoomBeingDeleted  = "room-being-deleted"
	evRoomDeleted       = "room-deleted"
	evUpdateRoomStats   = "update-room-stats"
	evServerShutdown    = "server-shutdown"
)

type bareEvent struct {
	Type string `json:"type"`
}

type errorEvent struct {
	Type   string `json:"type"`
	Reason string `json:"reason,omitempty"`
}

type userEvent struct {
	Type     string `json:"type"`
	Username string `json:"username"`
}

type messageEvent struct {
	Type    string         `json:"type"`
	Message domain.Message `json:"message"`
}

type historyEvent struct {
	Type     string           `json:"type"`
	Messages []domain.Message `json:"messages"`
}

type messageDeletedEvent struct {
	Type      string           `json:"type"`
	MessageID domain.MessageID `json:"messageId"`
}

type roomsListEvent struct {
	Type  string             `json:"type"`
	Rooms []core.RoomSummary `json:"rooms"`
}

type roomDeletedEvent struct {
	Type   string        `json:"type"`
	Secret domain.Secret `json:"password"`
}

type statsEvent struct {
	Type  string           `json:"type"`
	Rooms []core.RoomStats `json:"rooms"`
}

type noticeEvent struct {
	Type   string `json:"type"`
	Notice string `json:"notice"`
}

func marshalEvent(v any) ([]byte, bool) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("event marshal")
		return nil, false
	}
	return b, true
}
