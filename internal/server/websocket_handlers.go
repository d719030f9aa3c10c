package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/paperloom/paperloom/internal/jobs"
)

// WebSocket upgrader with reasonable defaults.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin checks are delegated to the CORS configuration of the
		// deployment in front of this service.
		return true
	},
}

// statusPollInterval is how often a subscribed job is re-read from the store.
const statusPollInterval = 500 * time.Millisecond

// wsSubscribeRequest subscribes the connection to one job's status updates.
type wsSubscribeRequest struct {
	JobID string `json:"job_id"`
}

// wsStatusMessage is pushed whenever the subscribed job changes state.
type wsStatusMessage struct {
	Type string         `json:"type"`
	Job  StatusResponse `json:"job"`
}

// wsErrorMessage reports a subscription problem to the client.
type wsErrorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// statusWebSocketHandler streams job status transitions to the client. The
// client sends a subscribe message naming a job; the server pushes an update
// on every observed change and closes the subscription once the job reaches
// a terminal state.
func (s *Server) statusWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("failed to upgrade connection to WebSocket", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	websocketConnections.Inc()
	defer websocketConnections.Dec()

	slog.Info("status WebSocket connection established", "remote_addr", r.RemoteAddr)
	s.handleStatusConnection(conn)
}

func (s *Server) handleStatusConnection(conn *websocket.Conn) {
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	done := make(chan struct{})
	defer close(done)

	// Keep the connection alive across long conversions.
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(10*time.Second)); err != nil {
					return
				}
			}
		}
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Error("WebSocket error", "error", err)
			}
			return
		}
		websocketMessagesTotal.WithLabelValues("received").Inc()

		if messageType != websocket.TextMessage {
			continue
		}

		var req wsSubscribeRequest
		if err := json.Unmarshal(data, &req); err != nil || req.JobID == "" {
			s.sendWS(conn, wsErrorMessage{Type: "error", Error: "expected a job_id subscription message"})
			continue
		}

		if !s.streamJobStatus(conn, req.JobID) {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	}
}

// streamJobStatus pushes status changes for one job until it reaches a
// terminal state. It reports whether the connection is still usable.
func (s *Server) streamJobStatus(conn *websocket.Conn, jobID string) bool {
	job, ok := s.store.Get(jobID)
	if !ok {
		return s.sendWS(conn, wsErrorMessage{Type: "error", Error: "job not found"})
	}

	last := jobs.Status("")
	ticker := time.NewTicker(statusPollInterval)
	defer ticker.Stop()

	for {
		if job.Status != last {
			last = job.Status
			msg := wsStatusMessage{Type: "status", Job: StatusResponse{
				JobID:     job.ID,
				Filename:  job.Filename,
				Status:    string(job.Status),
				Message:   job.Message,
				CreatedAt: job.CreatedAt,
				UpdatedAt: job.UpdatedAt,
			}}
			if !s.sendWS(conn, msg) {
				return false
			}
		}

		if job.Status == jobs.StatusCompleted || job.Status == jobs.StatusFailed {
			return true
		}

		<-ticker.C
		job, ok = s.store.Get(jobID)
		if !ok {
			return s.sendWS(conn, wsErrorMessage{Type: "error", Error: "job was deleted"})
		}
	}
}

func (s *Server) sendWS(conn *websocket.Conn, msg any) bool {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("failed to marshal WebSocket message", "error", err)
		return true
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return false
	}
	websocketMessagesTotal.WithLabelValues("sent").Inc()
	return true
}
