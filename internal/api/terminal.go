package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/codenest/codenest/internal/events"
	"github.com/codenest/codenest/internal/logging"
	"github.com/codenest/codenest/internal/metrics"
	"github.com/codenest/codenest/pkg/models"
	"github.com/codenest/codenest/pkg/protocol"
)

const (
	wsReadLimit  = 64 << 10
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

func (s *Server) handleAddTerminalLine(w http.ResponseWriter, r *http.Request) {
	var req protocol.TerminalLineRequest
	if !s.decode(w, r, &req) {
		return
	}
	session, ws := s.workspace(r)
	line, err := ws.AddTerminalLine(req.Type, req.Content)
	if err != nil {
		s.sendDomainError(w, r, err)
		return
	}
	metrics.RecordTerminalLine(string(line.Type))
	s.notify(session, events.EventTerminal, line.ID)
	s.sendJSON(w, http.StatusCreated, line)
}

func (s *Server) handleClearTerminal(w http.ResponseWriter, r *http.Request) {
	session, ws := s.workspace(r)
	ws.ClearTerminal()
	s.notify(session, events.EventTerminal, "")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleToggleTerminal(w http.ResponseWriter, r *http.Request) {
	session, ws := s.workspace(r)
	open := ws.ToggleTerminal()
	s.notify(session, events.EventTerminal, "")
	s.sendJSON(w, http.StatusOK, map[string]bool{"isTerminalOpen": open})
}

func (s *Server) handleTerminalCommand(w http.ResponseWriter, r *http.Request) {
	var req protocol.TerminalCommandRequest
	if !s.decode(w, r, &req) {
		return
	}
	resp, err := s.runCommand(r, req.Command)
	if err != nil {
		s.sendDomainError(w, r, err)
		return
	}
	s.sendJSON(w, http.StatusOK, resp)
}

func (s *Server) runCommand(r *http.Request, line string) (protocol.TerminalCommandResponse, error) {
	session, ws := s.workspace(r)
	lines, cleared, err := s.executor.RunCommand(r.Context(), ws, line)
	for _, l := range lines {
		metrics.RecordTerminalLine(string(l.Type))
	}
	if len(lines) > 0 || cleared {
		s.notify(session, events.EventTerminal, "")
	}
	if lines == nil {
		lines = []models.TerminalLine{}
	}
	return protocol.TerminalCommandResponse{Lines: lines, Cleared: cleared}, err
}

// handleTerminalSocket runs an interactive terminal over a WebSocket. Each
// text frame carries a TerminalCommandRequest and is answered with the
// TerminalCommandResponse for that line. Commands run one at a time.
func (s *Server) handleTerminalSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		logging.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	metrics.WSConnected(1)
	defer metrics.WSConnected(-1)

	log := logging.WithContext(r.Context())
	log.Debug("terminal socket opened")

	conn.SetReadLimit(wsReadLimit)
	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	done := make(chan struct{})
	defer close(done)
	stopped := make(chan struct{})
	writes := make(chan any)
	go func() {
		defer close(stopped)
		ticker := time.NewTicker(wsPingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case v := <-writes:
				conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
				if err := conn.WriteJSON(v); err != nil {
					log.Debug("terminal socket write", zap.Error(err))
					return
				}
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	send := func(v any) bool {
		select {
		case writes <- v:
			return true
		case <-stopped:
			return false
		}
	}

	for {
		var req protocol.TerminalCommandRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug("terminal socket closed", zap.Error(err))
			}
			return
		}
		resp, err := s.runCommand(r, req.Command)
		var msg any = resp
		if err != nil {
			msg = protocol.ErrorResponse{Error: err.Error(), Code: statusFor(err)}
		}
		if !send(msg) {
			return
		}
	}
}
