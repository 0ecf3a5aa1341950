package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/quocanhngo/pricewatch/internal/model"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const redisChannel = "pricewatch:events"

// Hub tracks WebSocket connections per user and streams triggered alerts to
// them. With Redis configured, events go through Pub/Sub so every instance
// delivers to its own connections.
type Hub struct {
	// userID -> connections (one user can have several tabs or devices)
	clients map[string]map[*Client]bool
	mu      sync.RWMutex

	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	// nil means single-instance mode: deliver locally
	rdb *redis.Client
	log *zap.Logger
}

func NewHub(rdb *redis.Client, log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		rdb:        rdb,
		log:        log,
	}
}

// Run is the hub's event loop. It returns when ctx is done.
func (h *Hub) Run(ctx context.Context) {
	if h.rdb != nil {
		go h.subscribeRedis(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.closeAll()
			return
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		}
	}
}

// Register hands a new connection to the hub. It returns false once the hub
// has shut down.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a connection; safe to call after shutdown
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.UserID]; !ok {
		h.clients[client.UserID] = make(map[*Client]bool)
	}
	h.clients[client.UserID][client] = true

	if data, err := json.Marshal(model.WSEvent{Type: model.WSEventConnected}); err == nil {
		select {
		case client.send <- data:
		default:
		}
	}
	h.log.Debug("ws client connected",
		zap.String("user_id", client.UserID),
		zap.Int("connections", len(h.clients[client.UserID])),
	)
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.clients[client.UserID]
	if !ok || !clients[client] {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.clients, client.UserID)
	}
	h.log.Debug("ws client disconnected", zap.String("user_id", client.UserID))
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for userID, clients := range h.clients {
		for client := range clients {
			close(client.send)
		}
		delete(h.clients, userID)
	}
}

// PublishTriggered streams a fired alert to its owner's connections
func (h *Hub) PublishTriggered(ctx context.Context, t model.TriggeredAlert) error {
	return h.SendToUser(ctx, t.Alert.UserID, &model.WSEvent{
		Type:    model.WSEventAlertTriggered,
		Payload: t,
	})
}

// SendToUser delivers event to every connection of userID across instances
func (h *Hub) SendToUser(ctx context.Context, userID string, event *model.WSEvent) error {
	if h.rdb == nil {
		h.sendToLocalUser(userID, event)
		return nil
	}

	targeted, err := newTargetedEvent(userID, event)
	if err != nil {
		return err
	}
	data, err := json.Marshal(targeted)
	if err != nil {
		return err
	}
	return h.rdb.Publish(ctx, redisChannel, data).Err()
}

func (h *Hub) sendToLocalUser(userID string, event interface{}) {
	data, err := json.Marshal(event)
	if err != nil {
		h.log.Error("marshal ws event failed", zap.Error(err))
		return
	}
	h.deliverLocal(userID, data)
}

func (h *Hub) deliverLocal(userID string, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[userID] {
		select {
		case client.send <- data:
		default:
			// slow consumer: drop it outside the read lock
			go h.Unregister(client)
		}
	}
}

func (h *Hub) IsUserOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[userID]
	return ok
}

// ConnectionCount returns the number of local connections
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, clients := range h.clients {
		n += len(clients)
	}
	return n
}

// ========== Redis Pub/Sub for Horizontal Scaling ==========

// TargetedEvent wraps an event with its recipient for Redis Pub/Sub
type TargetedEvent struct {
	TargetUserID string          `json:"target_user_id"`
	Event        json.RawMessage `json:"event"`
}

func newTargetedEvent(userID string, event *model.WSEvent) (*TargetedEvent, error) {
	raw, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	return &TargetedEvent{TargetUserID: userID, Event: raw}, nil
}

func (h *Hub) subscribeRedis(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, redisChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	h.log.Info("redis pub/sub subscriber started", zap.String("channel", redisChannel))

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var targeted TargetedEvent
			if err := json.Unmarshal([]byte(msg.Payload), &targeted); err != nil {
				h.log.Warn("bad pub/sub payload", zap.Error(err))
				continue
			}
			if targeted.TargetUserID != "" && len(targeted.Event) > 0 {
				h.deliverLocal(targeted.TargetUserID, targeted.Event)
			}
		}
	}
}
