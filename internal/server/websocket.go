package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lawnchairsociety/bossbalance/internal/config"
	"github.com/lawnchairsociety/bossbalance/internal/logger"
	"github.com/lawnchairsociety/bossbalance/internal/tuner"
)

const (
	wsWriteWait   = 10 * time.Second
	wsProfileWait = 30 * time.Second
)

// Message types sent on /ws/tune.
const (
	msgStep       = "step"
	msgResult     = "result"
	msgInfeasible = "infeasible"
	msgError      = "error"
)

// tuneMessage is one frame of a tuning stream.
type tuneMessage struct {
	Type   string        `json:"type"`
	Step   *tuner.Step   `json:"step,omitempty"`
	Result *tuneResponse `json:"result,omitempty"`
	Error  string        `json:"error,omitempty"`
}

// tuneSession wraps a websocket connection running one tuning search.
type tuneSession struct {
	conn *websocket.Conn
	mu   sync.Mutex // serializes writes
}

func (c *tuneSession) send(msg tuneMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return c.conn.WriteJSON(msg)
}

// readProfile waits for the profile message. An empty message selects the
// default profile.
func (c *tuneSession) readProfile() (*config.Profile, error) {
	c.conn.SetReadDeadline(time.Now().Add(wsProfileWait))
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	c.conn.SetReadDeadline(time.Time{})
	if len(data) == 0 {
		return config.DefaultProfile(), nil
	}
	p, err := config.ParseProfile(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return p, nil
}

// watchClose cancels the run once the peer goes away. Any message after the
// profile is ignored.
func (c *tuneSession) watchClose(cancel context.CancelFunc) {
	defer cancel()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// handleTuneWebSocket upgrades the connection, reads a profile and streams
// every evaluation of the tuner followed by the result.
func (s *Server) handleTuneWebSocket(w http.ResponseWriter, r *http.Request) {
	clientIP := getRealIP(r)

	// Check run limits before upgrading
	if !s.limiter.TryAcquire(clientIP) {
		logger.Warning("WebSocket connection rejected - limit exceeded",
			"remote_addr", r.RemoteAddr,
			"client_ip", clientIP)
		writeError(w, http.StatusTooManyRequests, "too many concurrent runs, try again later")
		return
	}
	defer s.limiter.Release(clientIP)

	seed, err := s.seedParam(r)
	if err != nil {
		writeRunError(w, err)
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			allowed := s.cfg.WebSocket.IsOriginAllowed(origin, r.Host)
			if !allowed {
				logger.Warning("WebSocket connection rejected - origin not allowed",
					"origin", origin,
					"host", r.Host,
					"remote_addr", r.RemoteAddr)
			}
			return allowed
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("WebSocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	if s.cfg.WebSocket.MaxMessageSize > 0 {
		conn.SetReadLimit(s.cfg.WebSocket.MaxMessageSize)
	}

	session := &tuneSession{conn: conn}
	p, err := session.readProfile()
	if err == nil {
		err = s.checkLimits(p)
	}
	if err != nil {
		logger.Debug("Tuning session ended before start", "client_ip", clientIP, "error", err)
		session.send(tuneMessage{Type: msgError, Error: err.Error()})
		return
	}
	trials := encounterTrials(p)
	if !s.limiter.ReserveTrials(trials) {
		logger.Warning("Tuning session rejected - trial budget exhausted", "client_ip", clientIP, "trials", trials)
		session.send(tuneMessage{Type: msgError, Error: "the server is busy with other simulations, try again later"})
		return
	}
	defer s.limiter.ReleaseTrials(trials)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go session.watchClose(cancel)

	logger.Info("Tuning session started", "client_ip", clientIP, "seed", seed)
	resp, err := s.runTune(ctx, p, seed, func(step tuner.Step) {
		if err := session.send(tuneMessage{Type: msgStep, Step: &step}); err != nil {
			cancel()
		}
	})
	switch {
	case errors.Is(err, context.Canceled):
		logger.Info("Tuning session cancelled", "client_ip", clientIP)
		return
	case err != nil:
		session.send(tuneMessage{Type: msgError, Error: err.Error()})
		return
	}

	msgType := msgResult
	if !resp.Feasible {
		msgType = msgInfeasible
	}
	if err := session.send(tuneMessage{Type: msgType, Result: &resp}); err != nil {
		logger.Debug("Failed to send tuning result", "client_ip", clientIP, "error", err)
		return
	}
	session.mu.Lock()
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"),
		time.Now().Add(wsWriteWait))
	session.mu.Unlock()
}
