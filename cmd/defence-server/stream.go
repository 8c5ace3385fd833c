package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mkalvans/skyfence/internal/metrics"
	"github.com/mkalvans/skyfence/pkg/simulation"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The REST CORS policy already admits any origin; the stream matches it.
	CheckOrigin: func(r *http.Request) bool { return true },
}

const streamWriteTimeout = 10 * time.Second

// streamError is the terminal error frame sent before closing the socket.
type streamError struct {
	Error string `json:"error"`
}

// handleStream runs a real-time simulation over a websocket. The client sends
// one simulationRequest as its first message, then receives one simulationStep
// frame per tick until the run finishes or either side disconnects.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Stream upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	metrics.StreamClientConnected()
	defer metrics.StreamClientDisconnected()

	conn.SetReadDeadline(time.Now().Add(30 * time.Second))

	var req simulationRequest
	if err := conn.ReadJSON(&req); err != nil {
		writeStreamError(conn, "invalid simulation request")
		return
	}
	if err := validateReport(req.toReport()); err != nil {
		writeStreamError(conn, err.Error())
		return
	}

	duration := s.clampDuration(req.DurationSeconds)
	interval := time.Duration(s.cfg.Simulation.TickIntervalSeconds) * time.Second

	// The client may close the socket to abort the run. Reads also service
	// close frames, which is what unblocks the write side below.
	ctx, cancel := contextWithConnClose(r, conn)
	defer cancel()

	runner := s.newRunner(interval)
	err = runner.Run(ctx, req.toReport().toTrack(), duration, func(step simulation.Step) error {
		conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
		return conn.WriteJSON(toSimulationStep(step))
	})
	if err != nil {
		log.Printf("Stream simulation ended early: %v", err)
		return
	}

	conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "simulation complete"))
}

// contextWithConnClose returns a context cancelled when the peer closes the
// websocket. The drain goroutine also discards any frames the client sends
// after the initial request.
func contextWithConnClose(r *http.Request, conn *websocket.Conn) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(r.Context())

	conn.SetReadDeadline(time.Time{})
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	return ctx, cancel
}

func writeStreamError(conn *websocket.Conn, msg string) {
	conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
	conn.WriteJSON(streamError{Error: msg})
}
