package hub

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/HerbHall/kioskwatch/internal/server"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"
)

// wsSink writes messages to a WebSocket connection as JSON text frames.
type wsSink struct {
	conn    *websocket.Conn
	timeout time.Duration
}

func (s *wsSink) Send(ctx context.Context, msg Message) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return wsjson.Write(ctx, s.conn, msg)
}

// handleWS upgrades the request and streams hub messages until either side
// goes away. The optional topics query parameter is a comma separated filter.
func (m *Module) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: m.originPatterns,
	})
	if err != nil {
		// Accept has already written the HTTP error.
		m.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.CloseNow()

	// Dashboards never send data; CloseRead handles control frames and
	// cancels ctx when the peer closes.
	ctx := conn.CloseRead(r.Context())

	sub, err := m.hub.Connect(ctx, &wsSink{conn: conn, timeout: m.pingTimeout}, parseTopics(r.URL.Query().Get("topics"))...)
	if err != nil {
		m.logger.Warn("subscriber connect failed", zap.Error(err))
		conn.Close(websocket.StatusInternalError, "connect failed")
		return
	}
	defer m.hub.Disconnect(sub.ID())

	ping := m.clock.NewTicker(m.pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-sub.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case <-ping.C():
			pctx, cancel := context.WithTimeout(ctx, m.pingTimeout)
			err := conn.Ping(pctx)
			cancel()
			if err != nil {
				m.logger.Info("subscriber missed ping",
					zap.String("subscriber_id", sub.ID()),
					zap.Error(err),
				)
				return
			}
		}
	}
}

// handleSubscribers lists connected subscribers.
func (m *Module) handleSubscribers(w http.ResponseWriter, _ *http.Request) {
	server.WriteJSON(w, http.StatusOK, m.hub.Subscribers())
}

func parseTopics(raw string) []string {
	var topics []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			topics = append(topics, t)
		}
	}
	return topics
}
