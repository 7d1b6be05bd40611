package signal

import (
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/avelis/Parley/internal/core"
	"github.com/avelis/Parley/internal/domain"
	"github.com/avelis/Parley/pkg/metrics"
)

func (ctl *Controller) handleSendMessage(sid core.ConnID, conn *WsConn, data []byte) {
	var p struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad send-message payload")
		ctl.sendJSON(conn, errorEvent{Type: evMessageError, Reason: "bad payload"})
		return
	}

	if !ctl.limiter.Allow(sid) {
		ctl.sendJSON(conn, errorEvent{Type: evMessageError, Reason: "sending too fast, slow down"})
		return
	}

	out, err := ctl.engine.SendMessage(sid, p.Text)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotInRoom):
			ctl.sendJSON(conn, errorEvent{Type: evMessageError, Reason: "you are not in a room"})
		case errors.Is(err, domain.ErrEmptyMessage):
			ctl.sendJSON(conn, errorEvent{Type: evMessageError, Reason: "message is empty"})
		case errors.Is(err, domain.ErrMessageTooLong):
			ctl.sendJSON(conn, errorEvent{Type: evMessageError, Reason: "message exceeds 1000 characters"})
		default:
			ctl.sendJSON(conn, errorEvent{Type: evMessageError, Reason: err.Error()})
		}
		return
	}

	metrics.MessagesTotal.Inc()
	ctl.sendTo(out.Members, messageEvent{Type: evReceiveMessage, Message: out.Message})
}

func (ctl *Controller) handleDeleteMessage(sid core.ConnID, conn *WsConn, data []byte) {
	var p struct {
		Type      string           `json:"type"`
		MessageID domain.MessageID `json:"messageId"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad delete-message payload")
		ctl.sendJSON(conn, errorEvent{Type: evDeleteError, Reason: "bad payload"})
		return
	}

	out, err := ctl.engine.DeleteMessage(sid, p.MessageID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotInRoom):
			ctl.sendJSON(conn, errorEvent{Type: evDeleteError, Reason: "you are not in a room"})
		case errors.Is(err, domain.ErrMessageNotFound):
			ctl.sendJSON(conn, errorEvent{Type: evDeleteError, Reason: "message not found"})
		case errors.Is(err, domain.ErrForbidden):
			ctl.sendJSON(conn, errorEvent{Type: evDeleteError, Reason: "you can only delete your own messages"})
		default:
			ctl.sendJSON(conn, errorEvent{Type: evDeleteError, Reason: err.Error()})
		}
		return
	}

	ctl.sendTo(out.Members, messageDeletedEvent{Type: evMessageDeleted, MessageID: out.ID})
}

// handleTyping covers both typing and stop-typing; no state, just relay.
func (ctl *Controller) handleTyping(sid core.ConnID, event string) {
	out, ok := ctl.engine.Typing(sid)
	if !ok {
		return
	}
	ctl.sendTo(out.Others, userEvent{Type: event, Username: out.Username})
}
