package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"rma-engine-be/internal/dto"
	"rma-engine-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// clusterChannel carries live events between instances.
const clusterChannel = "rma_live_events"

type clusterMessage struct {
	Origin    string          `json:"origin"`
	CompanyID string          `json:"company_id"`
	Message   json.RawMessage `json:"message"`
}

type Hub struct {
	// Registered clients per company. A company sees every RMA event of its own.
	clients map[uuid.UUID][]*Client

	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex

	// Redis connection for cross-instance fan-out. Nil runs single-instance.
	rdb *redis.Client

	// instanceID tags our own cluster messages so they are not delivered twice.
	instanceID string

	logger logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[uuid.UUID][]*Client),
		rdb:        rdb,
		instanceID: uuid.NewString(),
		logger:     log,
	}
}

// Run serves registrations until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	if h.rdb != nil {
		go h.subscribeToRedis(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.CompanyID] = append(h.clients[client.CompanyID], client)
			h.mu.Unlock()
			h.logger.Info("HUB", "Client registered", map[string]interface{}{
				"company_id": client.CompanyID.String(),
				"user_id":    client.UserID.String(),
			})

		case client := <-h.unregister:
			h.remove(client)
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := h.clients[client.CompanyID]
	for i, c := range clients {
		if c == client {
			h.clients[client.CompanyID] = append(clients[:i], clients[i+1:]...)
			close(client.Send)
			break
		}
	}
	if len(h.clients[client.CompanyID]) == 0 {
		delete(h.clients, client.CompanyID)
		h.logger.Info("HUB", "Company has no live clients left", map[string]interface{}{
			"company_id": client.CompanyID.String(),
		})
	}
}

// ConnectedClients returns how many sockets are open for companyID on this instance.
func (h *Hub) ConnectedClients(companyID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[companyID])
}

// deliver hands data to every local client of companyID. Clients whose
// buffer is full are dropped.
func (h *Hub) deliver(companyID uuid.UUID, data []byte) {
	var stale []*Client

	h.mu.RLock()
	for _, client := range h.clients[companyID] {
		select {
		case client.Send <- data:
		default:
			stale = append(stale, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range stale {
		h.logger.Warn("HUB", "Client send buffer full, dropping client", map[string]interface{}{
			"company_id": companyID.String(),
			"user_id":    client.UserID.String(),
		})
		h.remove(client)
	}
}

// PublishCompany pushes a live event to every connected client of the
// company, on this instance and, through Redis, on the others.
func (h *Hub) PublishCompany(ctx context.Context, companyID uuid.UUID, event dto.RMALiveEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("HUB", "Failed to encode live event", map[string]interface{}{"error": err.Error()})
		return
	}

	h.deliver(companyID, data)

	if h.rdb == nil {
		return
	}
	payload, _ := json.Marshal(clusterMessage{Origin: h.instanceID, CompanyID: companyID.String(), Message: data})
	if err := h.rdb.Publish(ctx, clusterChannel, payload).Err(); err != nil {
		h.logger.Warn("HUB", "Failed to fan out live event", map[string]interface{}{
			"company_id": companyID.String(),
			"error":      err.Error(),
		})
	}
}

// subscribeToRedis delivers events published by other instances to the
// clients connected here.
func (h *Hub) subscribeToRedis(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, clusterChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var payload clusterMessage
			if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
				h.logger.Warn("HUB", "Unreadable cluster message", map[string]interface{}{"error": err.Error()})
				continue
			}
			if payload.Origin == h.instanceID {
				continue
			}
			companyID, err := uuid.Parse(payload.CompanyID)
			if err != nil {
				continue
			}
			h.deliver(companyID, payload.Message)
		}
	}
}
