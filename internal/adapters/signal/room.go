package signal

import (
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/avelis/Parley/internal/core"
	"github.com/avelis/Parley/internal/domain"
	"github.com/avelis/Parley/pkg/metrics"
)

func (ctl *Controller) handleJoin(sid core.ConnID, conn *WsConn, data []byte) {
	var p struct {
		Type     string `json:"type"`
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad join payload")
		ctl.sendJSON(conn, errorEvent{Type: evJoinError, Reason: "bad payload"})
		return
	}

	out, err := ctl.engine.Join(sid, p.Username, domain.Secret(p.Password))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidPassword):
			ctl.sendJSON(conn, bareEvent{Type: evInvalidPassword})
		case errors.Is(err, domain.ErrRoomFull):
			ctl.sendJSON(conn, bareEvent{Type: evRoomFull})
		case errors.Is(err, domain.ErrUsernameTaken):
			ctl.sendJSON(conn, bareEvent{Type: evUsernameTaken})
		default:
			ctl.sendJSON(conn, errorEvent{Type: evJoinError, Reason: err.Error()})
		}
		return
	}

	// A room switch first tells the old room its member is gone.
	if out.Left != nil {
		ctl.sendTo(out.Left.Remaining, userEvent{Type: evUserLeft, Username: out.Left.Username})
	}
	ctl.sendJSON(conn, historyEvent{Type: evLoadMessages, Messages: out.History})
	ctl.sendTo(out.Others, userEvent{Type: evUserJoined, Username: out.Username})
	ctl.BroadcastStats()
}

func (ctl *Controller) handleCreateRoom(sid core.ConnID, conn *WsConn, data []byte) {
	var p struct {
		Type     string `json:"type"`
		RoomName string `json:"roomName"`
		Password string `json:"password"`
		MaxUsers *int   `json:"maxUsers"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad create-room payload")
		ctl.sendJSON(conn, errorEvent{Type: evRoomCreationError, Reason: "bad payload"})
		return
	}

	maxUsers := 0
	if p.MaxUsers != nil {
		if *p.MaxUsers < 1 {
			ctl.sendJSON(conn, errorEvent{Type: evRoomCreationError, Reason: "maxUsers must be between 1 and 100"})
			return
		}
		maxUsers = *p.MaxUsers
	}

	err := ctl.engine.CreateRoom(domain.RoomName(p.RoomName), domain.Secret(p.Password), maxUsers)
	switch {
	case errors.Is(err, domain.ErrRoomExists):
		ctl.sendJSON(conn, bareEvent{Type: evRoomExists})
		return
	case errors.Is(err, domain.ErrInvalidInput):
		ctl.sendJSON(conn, errorEvent{Type: evRoomCreationError, Reason: "room name and password are required, maxUsers must be between 1 and 100"})
		return
	case err != nil:
		ctl.sendJSON(conn, errorEvent{Type: evRoomCreationError, Reason: err.Error()})
		return
	}

	metrics.RoomsCreatedTotal.Inc()
	ctl.sendJSON(conn, bareEvent{Type: evRoomCreated})
	ctl.BroadcastStats()
}

func (ctl *Controller) handleGetRooms(conn *WsConn) {
	ctl.sendJSON(conn, roomsListEvent{Type: evRoomsList, Rooms: ctl.engine.ListRooms()})
}

func (ctl *Controller) handleGetRoomStats(conn *WsConn) {
	ctl.sendJSON(conn, statsEvent{Type: evUpdateRoomStats, Rooms: ctl.engine.Stats()})
}

func (ctl *Controller) handleDeleteRoom(sid core.ConnID, conn *WsConn, data []byte) {
	var p struct {
		Type     string `json:"type"`
		Password string `json:"password"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad delete-room payload")
		ctl.sendJSON(conn, errorEvent{Type: evDeleteError, Reason: "bad payload"})
		return
	}

	out, err := ctl.engine.DeleteRoom(domain.Secret(p.Password))
	switch {
	case errors.Is(err, domain.ErrRoomProtected):
		ctl.sendJSON(conn, bareEvent{Type: evRoomProtected})
		return
	case errors.Is(err, domain.ErrRoomNotFound):
		ctl.sendJSON(conn, bareEvent{Type: evRoomNotFound})
		return
	case err != nil:
		ctl.sendJSON(conn, errorEvent{Type: evDeleteError, Reason: err.Error()})
		return
	}

	// Members hear the room is going before the global existence update.
	ctl.sendTo(out.Evicted, bareEvent{Type: evRoomBeingDeleted})
	ctl.BroadcastAll(roomDeletedEvent{Type: evRoomDeleted, Secret: out.Secret})
	ctl.BroadcastStats()
}
