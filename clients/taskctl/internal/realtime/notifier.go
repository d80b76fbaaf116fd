// Package realtime подписывается на канал событий задач (GET /v1/ws).
//
// Notifier держит одно соединение и переподключается с фиксированной
// задержкой до явного Disconnect. Некорректные сообщения отбрасываются с
// предупреждением в лог, канал при этом остаётся открытым.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/ahmedafzal2677/exact-sol-task/clients/taskctl/internal/models"
)

// ReconnectDelay - пауза перед повторным подключением
const ReconnectDelay = 5 * time.Second

const (
	TypeTaskCreated = "TASK_CREATE"
	TypeTaskUpdated = "TASK_UPDATE"
	TypeTaskDeleted = "TASK_DELETE"
)

type message struct {
	Type   string       `json:"type"`
	Task   *models.Task `json:"task"`
	TaskID string       `json:"taskId"`
}

// TokenFunc отдаёт текущий токен сессии для рукопожатия
type TokenFunc func() (string, bool, error)

type Options struct {
	URL            string
	Token          TokenFunc
	ReconnectDelay time.Duration
	Dialer         *websocket.Dialer
	Logger         *logrus.Logger
}

type Notifier struct {
	url    string
	token  TokenFunc
	delay  time.Duration
	dialer *websocket.Dialer
	logger *logrus.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	conn   *websocket.Conn
	// loop, который сейчас вызывает подписчиков
	notifying chan struct{}

	lmu     sync.Mutex
	created listeners[models.Task]
	updated listeners[models.Task]
	deleted listeners[string]
}

func New(opts Options) *Notifier {
	n := &Notifier{
		url:    opts.URL,
		token:  opts.Token,
		delay:  opts.ReconnectDelay,
		dialer: opts.Dialer,
		logger: opts.Logger,
	}
	if n.delay <= 0 {
		n.delay = ReconnectDelay
	}
	if n.dialer == nil {
		n.dialer = websocket.DefaultDialer
	}
	if n.logger == nil {
		n.logger = logrus.StandardLogger()
	}
	return n
}

// Connect запускает цикл подключения; повторный вызов ничего не делает
func (n *Notifier) Connect() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	n.cancel = cancel
	n.done = make(chan struct{})
	go n.run(ctx, n.done)
}

// Disconnect закрывает соединение, отменяет ожидающее переподключение и ждёт остановки цикла.
// Из подписчика Disconnect не ждёт: цикл завершится сразу после возврата из него.
func (n *Notifier) Disconnect() {
	n.mu.Lock()
	if n.cancel == nil {
		n.mu.Unlock()
		return
	}
	n.cancel()
	if n.conn != nil {
		_ = n.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		_ = n.conn.Close()
	}
	done := n.done
	fromListener := n.notifying == done
	n.cancel, n.done = nil, nil
	n.mu.Unlock()

	if !fromListener {
		<-done
	}
}

// Connected сообщает, открыто ли соединение прямо сейчас
func (n *Notifier) Connected() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.conn != nil
}

func (n *Notifier) OnTaskCreated(fn func(models.Task)) (unsubscribe func()) {
	return n.subscribe(func() func() { return n.created.add(fn) })
}

func (n *Notifier) OnTaskUpdated(fn func(models.Task)) (unsubscribe func()) {
	return n.subscribe(func() func() { return n.updated.add(fn) })
}

func (n *Notifier) OnTaskDeleted(fn func(id string)) (unsubscribe func()) {
	return n.subscribe(func() func() { return n.deleted.add(fn) })
}

func (n *Notifier) subscribe(add func() func()) func() {
	n.lmu.Lock()
	remove := add()
	n.lmu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			n.lmu.Lock()
			remove()
			n.lmu.Unlock()
		})
	}
}

func (n *Notifier) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		conn, err := n.dial(ctx)
		if err == nil {
			n.logger.WithField("url", n.url).Info("realtime connected")
			n.readLoop(ctx, conn, done)
		} else if ctx.Err() == nil {
			n.logger.WithError(err).Warn("realtime dial failed")
		}

		if ctx.Err() != nil {
			return
		}
		n.logger.WithField("delay", n.delay).Info("realtime reconnect scheduled")
		t := time.NewTimer(n.delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
	}
}

func (n *Notifier) dial(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	if n.token != nil {
		tok, ok, err := n.token()
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errors.New("no session token")
		}
		header.Set("Authorization", "Bearer "+tok)
	}

	conn, resp, err := n.dialer.DialContext(ctx, n.url, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	// Disconnect мог произойти во время рукопожатия
	if ctx.Err() != nil {
		conn.Close()
		return nil, ctx.Err()
	}
	n.conn = conn
	return conn, nil
}

func (n *Notifier) readLoop(ctx context.Context, conn *websocket.Conn, done chan struct{}) {
	defer func() {
		n.mu.Lock()
		if n.conn == conn {
			n.conn = nil
		}
		n.mu.Unlock()
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				n.logger.WithError(err).Warn("realtime connection lost")
			}
			return
		}
		n.mu.Lock()
		n.notifying = done
		n.mu.Unlock()

		n.dispatch(ctx, data)

		n.mu.Lock()
		if n.notifying == done {
			n.notifying = nil
		}
		n.mu.Unlock()
	}
}

// dispatch разбирает сообщение и вызывает подписчиков в порядке подписки.
// После Disconnect оставшиеся подписчики этого сообщения не вызываются.
func (n *Notifier) dispatch(ctx context.Context, data []byte) {
	var msg message
	if err := json.Unmarshal(data, &msg); err != nil {
		n.logger.WithError(err).Warn("realtime: dropping malformed message")
		return
	}

	switch msg.Type {
	case TypeTaskCreated, TypeTaskUpdated:
		if msg.Task == nil {
			n.logger.WithField("type", msg.Type).Warn("realtime: dropping message without task")
			return
		}
		l := &n.created
		if msg.Type == TypeTaskUpdated {
			l = &n.updated
		}
		n.lmu.Lock()
		fns := l.snapshot()
		n.lmu.Unlock()
		for _, fn := range fns {
			if ctx.Err() != nil {
				return
			}
			fn(*msg.Task)
		}
	case TypeTaskDeleted:
		id := msg.TaskID
		if id == "" && msg.Task != nil {
			id = msg.Task.ID
		}
		if id == "" {
			n.logger.Warn("realtime: dropping delete message without task id")
			return
		}
		n.lmu.Lock()
		fns := n.deleted.snapshot()
		n.lmu.Unlock()
		for _, fn := range fns {
			if ctx.Err() != nil {
				return
			}
			fn(id)
		}
	default:
		n.logger.WithField("type", msg.Type).Debug("realtime: ignoring unknown message type")
	}
}

type listeners[T any] struct {
	next  int
	items []listener[T]
}

type listener[T any] struct {
	id int
	fn func(T)
}

func (l *listeners[T]) add(fn func(T)) func() {
	id := l.next
	l.next++
	l.items = append(l.items, listener[T]{id: id, fn: fn})
	return func() {
		for i, it := range l.items {
			if it.id == id {
				l.items = append(l.items[:i:i], l.items[i+1:]...)
				return
			}
		}
	}
}

func (l *listeners[T]) snapshot() []func(T) {
	out := make([]func(T), len(l.items))
	for i, it := range l.items {
		out[i] = it.fn
	}
	return out
}
