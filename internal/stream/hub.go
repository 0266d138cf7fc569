// Package stream broadcasts frames to browsers over WebSocket.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"sonar-radar.klederson.com/internal/radar"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const (
	clientBuffer = 8
	writeWait    = 5 * time.Second
)

// Hub is a radar.Sink that fans frames out to WebSocket clients.
type Hub struct {
	logger logrus.FieldLogger

	mu      sync.RWMutex
	latest  []byte
	clients map[string]chan []byte
}

// NewHub returns an empty hub.
func NewHub(logger logrus.FieldLogger) *Hub {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Hub{
		logger:  logger,
		clients: make(map[string]chan []byte),
	}
}

// Publish implements radar.Sink. Slow clients miss frames rather than
// stalling the scan.
func (h *Hub) Publish(fr radar.Frame) {
	data, err := json.Marshal(fr)
	if err != nil {
		h.logger.WithError(err).Warn("failed to encode frame")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.latest = data
	for _, ch := range h.clients {
		select {
		case ch <- data:
		default:
		}
	}
}

// Subscribe registers a client channel.
func (h *Hub) Subscribe() (string, <-chan []byte) {
	id := uuid.NewString()
	ch := make(chan []byte, clientBuffer)

	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[id] = ch
	return id, ch
}

// Unsubscribe removes and closes a client channel.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.clients[id]; ok {
		close(ch)
		delete(h.clients, id)
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) snapshot() []byte {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.latest
}

// FrameHandler serves the most recent frame as JSON.
func (h *Hub) FrameHandler(w http.ResponseWriter, r *http.Request) {
	data := h.snapshot()
	if data == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

// SocketHandler streams every published frame to the client.
func (h *Hub) SocketHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Debug("websocket upgrade failed")
		return
	}
	defer conn.Close()

	id, frames := h.Subscribe()
	defer h.Unsubscribe(id)
	log := h.logger.WithField("client", id)
	log.WithField("clients", h.Clients()).Info("stream client connected")

	// Incoming messages are ignored; reading detects the close.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	send := func(data []byte) bool {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.WithError(err).Debug("stream write failed")
			return false
		}
		return true
	}

	if data := h.snapshot(); data != nil && !send(data) {
		return
	}
	for {
		select {
		case <-ctx.Done():
			log.WithField("clients", h.Clients()-1).Info("stream client disconnected")
			return
		case data, ok := <-frames:
			if !ok || !send(data) {
				return
			}
		}
	}
}

// Router returns the stream routes.
func (h *Hub) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/ws", h.SocketHandler).Methods(http.MethodGet)
	r.HandleFunc("/frame", h.FrameHandler).Methods(http.MethodGet)
	return r
}

// Serve runs the stream server until ctx is cancelled.
func (h *Hub) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Handler:     h.Router(),
		Addr:        addr,
		ReadTimeout: 15 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		h.logger.WithField("addr", addr).Info("stream server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
