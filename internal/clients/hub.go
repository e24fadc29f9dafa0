package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gordonpn/pushworker/internal/domain"
	"github.com/gordonpn/pushworker/internal/metrics"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

var (
	ErrInstanceGone = errors.New("instance disconnected")
	ErrBacklogFull  = errors.New("instance send buffer full")
)

// MessageFunc receives every frame a foreground instance posts.
type MessageFunc func(instanceID string, raw []byte)

type Config struct {
	SendBuffer     int
	AllowedOrigins []string
}

// Hub tracks connected foreground instances (one WebSocket per open page) and implements
// the worker's client registry.
type Hub struct {
	config    Config
	upgrader  websocket.Upgrader
	onMessage MessageFunc
	metrics   *metrics.Metrics

	mu      sync.RWMutex
	conns   map[string]*connection
	claimed bool
	closed  bool
}

type connection struct {
	id         string
	ws         *websocket.Conn
	send       chan []byte
	done       chan struct{}
	closeOnce  sync.Once
	controlled bool
}

func NewHub(config Config, onMessage MessageFunc, m *metrics.Metrics) *Hub {
	if config.SendBuffer < 1 {
		config.SendBuffer = 32
	}

	hub := &Hub{
		config:    config,
		onMessage: onMessage,
		metrics:   m,
		conns:     make(map[string]*connection),
	}
	hub.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     hub.checkOrigin,
	}
	return hub
}

// ServeHTTP upgrades the request and registers the new instance.
func (hub *Hub) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	ws, err := hub.upgrader.Upgrade(writer, request, nil)
	if err != nil {
		log.Printf("websocket upgrade failed remote=%s err=%v", request.RemoteAddr, err)
		return
	}

	conn := &connection{
		id:   uuid.NewString(),
		ws:   ws,
		send: make(chan []byte, hub.config.SendBuffer),
		done: make(chan struct{}),
	}

	if !hub.register(conn) {
		_ = ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"), time.Now().Add(writeWait))
		_ = ws.Close()
		return
	}

	go hub.writePump(conn)
	hub.readPump(conn)
}

// Claim marks every connected instance, and every later one, as controlled.
func (hub *Hub) Claim() int {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	hub.claimed = true
	for _, conn := range hub.conns {
		conn.controlled = true
	}
	return len(hub.conns)
}

func (hub *Hub) ListInstances(context.Context) ([]domain.InstanceHandle, error) {
	hub.mu.RLock()
	defer hub.mu.RUnlock()

	instances := make([]domain.InstanceHandle, 0, len(hub.conns))
	for _, conn := range hub.conns {
		instances = append(instances, domain.InstanceHandle{ID: conn.id, Controlled: conn.controlled})
	}
	return instances, nil
}

// PostTo queues message for one instance without blocking. A slow instance loses the
// message instead of delaying the others.
func (hub *Hub) PostTo(_ context.Context, instance domain.InstanceHandle, message domain.BroadcastMessage) error {
	hub.mu.RLock()
	conn, ok := hub.conns[instance.ID]
	hub.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrInstanceGone, instance.ID)
	}

	frame, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("encode broadcast: %w", err)
	}

	select {
	case <-conn.done:
		return fmt.Errorf("%w: %s", ErrInstanceGone, instance.ID)
	case conn.send <- frame:
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrBacklogFull, instance.ID)
	}
}

// Count returns the number of connected instances.
func (hub *Hub) Count() int {
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	return len(hub.conns)
}

// Close disconnects every instance and refuses new ones.
func (hub *Hub) Close() {
	hub.mu.Lock()
	hub.closed = true
	conns := make([]*connection, 0, len(hub.conns))
	for _, conn := range hub.conns {
		conns = append(conns, conn)
	}
	hub.mu.Unlock()

	for _, conn := range conns {
		conn.close()
	}
}

func (hub *Hub) register(conn *connection) bool {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	if hub.closed {
		return false
	}
	conn.controlled = hub.claimed
	hub.conns[conn.id] = conn
	hub.metrics.SetConnectedInstances(len(hub.conns))
	log.Printf("instance connected id=%s controlled=%t total=%d", conn.id, conn.controlled, len(hub.conns))
	return true
}

func (hub *Hub) unregister(conn *connection) {
	hub.mu.Lock()
	if _, ok := hub.conns[conn.id]; ok {
		delete(hub.conns, conn.id)
		hub.metrics.SetConnectedInstances(len(hub.conns))
		log.Printf("instance disconnected id=%s total=%d", conn.id, len(hub.conns))
	}
	hub.mu.Unlock()
	conn.close()
}

func (hub *Hub) readPump(conn *connection) {
	defer hub.unregister(conn)

	conn.ws.SetReadLimit(maxMessageSize)
	_ = conn.ws.SetReadDeadline(time.Now().Add(pongWait))
	conn.ws.SetPongHandler(func(string) error {
		return conn.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, raw, err := conn.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				log.Printf("instance read failed id=%s err=%v", conn.id, err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		if hub.onMessage != nil {
			hub.onMessage(conn.id, raw)
		}
	}
}

func (hub *Hub) writePump(conn *connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.ws.Close()
	}()

	for {
		select {
		case <-conn.done:
			_ = conn.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		case frame := <-conn.send:
			_ = conn.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				log.Printf("instance write failed id=%s err=%v", conn.id, err)
				conn.close()
				return
			}
		case <-ticker.C:
			_ = conn.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				conn.close()
				return
			}
		}
	}
}

// checkOrigin accepts listed origins, or only same-origin requests when no list is configured.
func (hub *Hub) checkOrigin(request *http.Request) bool {
	origin := request.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if len(hub.config.AllowedOrigins) == 0 {
		parsed, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return strings.EqualFold(parsed.Host, request.Host)
	}
	for _, allowed := range hub.config.AllowedOrigins {
		if origin == allowed {
			return true
		}
	}
	return false
}

func (conn *connection) close() {
	conn.closeOnce.Do(func() {
		close(conn.done)
	})
}
