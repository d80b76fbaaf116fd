// Package realtime рассылает подключённым клиентам уведомления о мутациях задач по WebSocket.
package realtime

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"

	"github.com/ahmedafzal2677/exact-sol-task/services/tasks/internal/models"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 32
)

var (
	connectedClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "realtime_connected_clients",
		Help: "Current number of connected realtime clients",
	})
	messagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "realtime_messages_total",
		Help: "Realtime messages delivered to client queues",
	}, []string{"type"})
	droppedClients = promauto.NewCounter(prometheus.CounterOpts{
		Name: "realtime_dropped_clients_total",
		Help: "Clients disconnected because their send queue was full",
	})
)

// Message - кадр канала: один JSON-объект на текстовое сообщение
type Message struct {
	Type   models.EventType `json:"type"`
	Task   *models.Task     `json:"task,omitempty"`
	TaskID string           `json:"taskId,omitempty"`
}

type client struct {
	conn *websocket.Conn
	sess models.Session
	send chan []byte
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

// Hub - реестр подключений; реализует service.Publisher
type Hub struct {
	mu       sync.RWMutex
	clients  map[*client]struct{}
	closed   bool
	upgrader websocket.Upgrader
	logger   *logrus.Logger
}

func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: logger,
	}
}

// Publish ставит событие в очереди клиентов, которым задача видна
func (h *Hub) Publish(ev models.TaskEvent) {
	payload, err := json.Marshal(Message{Type: ev.Type, Task: ev.Task, TaskID: ev.TaskID})
	if err != nil {
		h.logger.WithError(err).Error("realtime: marshal message")
		return
	}

	h.mu.RLock()
	var slow []*client
	for c := range h.clients {
		if !c.sess.IsAdmin() && c.sess.UserID != ev.OwnerID {
			continue
		}
		select {
		case c.send <- payload:
			messagesTotal.WithLabelValues(string(ev.Type)).Inc()
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		droppedClients.Inc()
		h.logger.WithField("user_id", c.sess.UserID).Warn("realtime: dropping slow client")
		h.unregister(c)
	}
}

// Serve поднимает WebSocket для уже проверенной сессии и блокируется до отключения
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, sess models.Session) {
	h.mu.RLock()
	closed := h.closed
	h.mu.RUnlock()
	if closed {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("realtime: upgrade failed")
		return
	}

	c := &client{conn: conn, sess: sess, send: make(chan []byte, sendBuffer)}
	if !h.register(c) {
		// Close успел пройти во время рукопожатия
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}

	go h.writePump(c)
	h.readPump(c)
}

// Clients возвращает число активных подключений
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close отключает всех клиентов; новые подключения после него отклоняются
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := h.clients
	h.clients = make(map[*client]struct{})
	h.mu.Unlock()

	for c := range clients {
		connectedClients.Dec()
		c.close()
	}
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return false
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	connectedClients.Inc()

	h.logger.WithFields(logrus.Fields{
		"component": "realtime_hub",
		"user_id":   c.sess.UserID,
	}).Info("client connected")
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()

	if ok {
		connectedClients.Dec()
		c.close()
		h.logger.WithFields(logrus.Fields{
			"component": "realtime_hub",
			"user_id":   c.sess.UserID,
		}).Info("client disconnected")
	}
}

// readPump читает только управляющие кадры; входящие данные клиента игнорируются
func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
