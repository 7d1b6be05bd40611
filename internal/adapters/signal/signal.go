package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/avelis/Parley/internal/config"
	"github.com/avelis/Parley/internal/core"
	"github.com/avelis/Parley/pkg/metrics"
)

var ErrBackpressure = errors.New("backpressure")

// Controller is the broadcast dispatcher: it owns the connection table and
// translates engine outcomes into outbound events. All room state lives in
// the engine; the controller only delivers.
type Controller struct {
	engine  *core.Engine
	cfg     *config.Config
	limiter *SendRateLimiter

	mu    sync.RWMutex
	conns map[core.ConnID]*WsConn
}

func NewController(engine *core.Engine, cfg *config.Config) *Controller {
	return &Controller{
		engine:  engine,
		cfg:     cfg,
		limiter: NewSendRateLimiter(cfg.MessageRateLimit, cfg.MessageRateWindow),
		conns:   make(map[core.ConnID]*WsConn),
	}
}

// WsConn wraps one websocket with a buffered outbound channel. TrySend
// never blocks; a full channel reports backpressure instead.
type WsConn struct {
	conn *websocket.Conn
	send chan []byte

	mu     sync.RWMutex
	closed bool
}

func (c *WsConn) TrySend(data []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- data:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *WsConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleWS upgrades the request and runs the connection until disconnect.
// Every upgrade gets a fresh connection id; the session cookie only ties
// browser tabs to a client, not to a connection.
func (ctl *Controller) HandleWS(ctx context.Context, c *gin.Context) {
	sid := core.ConnID(uuid.NewString())
	log.Info().Str("module", "signal").Str("conn", string(sid)).Str("client", c.GetString("client_token")).Msg("new WS connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	if ctl.cfg.ReadLimit > 0 {
		ws.SetReadLimit(ctl.cfg.ReadLimit)
	}

	conn := &WsConn{
		conn: ws,
		send: make(chan []byte, 32),
	}
	ctl.register(sid, conn)
	metrics.ConnectionsTotal.Inc()

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, conn)
	go func() {
		defer cancel()
		ctl.readPump(ctx, sid, conn)
		ctl.disconnect(sid, conn)
	}()
}

func (ctl *Controller) register(sid core.ConnID, conn *WsConn) {
	ctl.mu.Lock()
	ctl.conns[sid] = conn
	ctl.mu.Unlock()
}

// disconnect runs once the read pump exits: membership is torn down and
// the remaining room members plus global stats listeners are told.
func (ctl *Controller) disconnect(sid core.ConnID, conn *WsConn) {
	ctl.mu.Lock()
	delete(ctl.conns, sid)
	ctl.mu.Unlock()
	ctl.limiter.Forget(sid)
	conn.Close()

	if left, ok := ctl.engine.Leave(sid); ok {
		ctl.sendTo(left.Remaining, userEvent{Type: evUserLeft, Username: left.Username})
		ctl.BroadcastStats()
	}
	log.Info().Str("module", "signal").Str("conn", string(sid)).Msg("disconnected")
}

func (ctl *Controller) lookup(sid core.ConnID) (*WsConn, bool) {
	ctl.mu.RLock()
	defer ctl.mu.RUnlock()
	c, ok := ctl.conns[sid]
	return c, ok
}

// sendTo delivers one payload to a recipient list from an engine outcome.
// A connection that cannot keep up is closed; its read pump handles the
// membership fallout.
func (ctl *Controller) sendTo(ids []core.ConnID, v any) {
	b, ok := marshalEvent(v)
	if !ok {
		return
	}
	for _, sid := range ids {
		conn, found := ctl.lookup(sid)
		if !found {
			continue
		}
		if err := conn.TrySend(b); err != nil {
			log.Warn().Str("module", "signal").Str("conn", string(sid)).Err(err).Msg("dropping slow connection")
			conn.Close()
		}
	}
}

// BroadcastAll fans a payload out to every live connection.
func (ctl *Controller) BroadcastAll(v any) {
	b, ok := marshalEvent(v)
	if !ok {
		return
	}
	ctl.mu.RLock()
	conns := make([]*WsConn, 0, len(ctl.conns))
	for _, c := range ctl.conns {
		conns = append(conns, c)
	}
	ctl.mu.RUnlock()
	for _, c := range conns {
		_ = c.TrySend(b)
	}
}

// BroadcastStats pushes the current room projection to everyone.
func (ctl *Controller) BroadcastStats() {
	ctl.BroadcastAll(statsEvent{Type: evUpdateRoomStats, Rooms: ctl.engine.Stats()})
}

// BroadcastShutdown warns every client that the server is going away.
func (ctl *Controller) BroadcastShutdown(notice string) {
	ctl.BroadcastAll(noticeEvent{Type: evServerShutdown, Notice: notice})
}
