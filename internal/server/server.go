package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"obdmeter/internal/broadcast"
	"obdmeter/internal/obd"
	"obdmeter/internal/transport"
	"obdmeter/pkg/log"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Server streams snapshots and session status to WebSocket clients.
type Server struct {
	addr      string
	snapshots *broadcast.Hub[obd.Snapshot]
	statuses  *broadcast.Hub[transport.Status]

	clients   map[*wsClient]struct{}
	clientsMu sync.RWMutex
	closed    bool

	upgrader websocket.Upgrader
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// Frame is the JSON structure sent to all WebSocket clients.
type Frame struct {
	Snapshot *obd.Snapshot     `json:"snapshot,omitempty"`
	Status   *transport.Status `json:"status,omitempty"`
	Stamp    int64             `json:"stamp"` // Unix ms
}

func New(addr string, snapshots *broadcast.Hub[obd.Snapshot], statuses *broadcast.Hub[transport.Status]) *Server {
	return &Server{
		addr:      addr,
		snapshots: snapshots,
		statuses:  statuses,
		clients:   make(map[*wsClient]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/api/snapshot", s.handleSnapshot)
	mux.HandleFunc("/api/status", s.handleStatus)
	return mux
}

// Run serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	go s.fanout(ctx)

	srv := &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutCtx)
	}()

	log.Info("http listening", zap.String("addr", s.addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) fanout(ctx context.Context) {
	snaps, cancelSnaps := s.snapshots.Subscribe()
	defer cancelSnaps()
	statuses, cancelStatuses := s.statuses.Subscribe()
	defer cancelStatuses()

	for {
		var f Frame
		select {
		case <-ctx.Done():
			s.closeClients()
			return
		case snap, ok := <-snaps:
			if !ok {
				s.closeClients()
				return
			}
			f.Snapshot = &snap
		case st, ok := <-statuses:
			if !ok {
				s.closeClients()
				return
			}
			f.Status = &st
		}
		s.broadcast(f)
	}
}

func (s *Server) broadcast(f Frame) {
	f.Stamp = time.Now().UnixMilli()
	data, err := json.Marshal(f)
	if err != nil {
		log.Error("failed to encode frame", zap.Error(err))
		return
	}

	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	for c := range s.clients {
		select {
		case c.send <- data:
		default:
			// Client too slow; skip this frame.
		}
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("ws upgrade failed", zap.Error(err))
		return
	}

	client := &wsClient{
		conn: conn,
		send: make(chan []byte, 64),
	}

	// Queue the first frame before the client is visible to closeClients.
	initial := Frame{Stamp: time.Now().UnixMilli()}
	if snap, ok := s.snapshots.Latest(); ok {
		initial.Snapshot = &snap
	}
	if st, ok := s.statuses.Latest(); ok {
		initial.Status = &st
	}
	if data, err := json.Marshal(initial); err == nil {
		client.send <- data
	}

	s.clientsMu.Lock()
	if s.closed {
		s.clientsMu.Unlock()
		conn.Close()
		return
	}
	s.clients[client] = struct{}{}
	n := len(s.clients)
	s.clientsMu.Unlock()
	log.Info("ws client connected", zap.Int("clients", n))

	// Writer goroutine
	go func() {
		defer conn.Close()
		for msg := range client.send {
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				break
			}
		}
	}()

	// Reader goroutine: only used to notice the client going away.
	go func() {
		defer s.removeClient(client)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (s *Server) removeClient(c *wsClient) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		close(c.send)
	}
}

func (s *Server) closeClients() {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	s.closed = true
	for c := range s.clients {
		delete(s.clients, c)
		close(c.send)
	}
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshots.Latest()
	if !ok {
		http.Error(w, "no snapshot yet", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, snap)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, ok := s.statuses.Latest()
	if !ok {
		st = transport.Status{State: transport.StateDisconnected}
	}
	writeJSON(w, st)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn("failed to write response", zap.Error(err))
	}
}
