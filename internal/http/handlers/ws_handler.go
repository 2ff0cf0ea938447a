package handlers

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/peerproof/backend/internal/auth"
	"github.com/peerproof/backend/internal/config"
	"github.com/peerproof/backend/internal/events"
	"go.uber.org/zap"
)

// WSHub pushes escrow lifecycle events to connected wallets.
type WSHub struct {
	cfg         *config.Config
	subscriber  events.Subscriber
	log         *zap.Logger
	mu          sync.RWMutex
	connections map[string][]*websocket.Conn
}

func NewWSHub(cfg *config.Config, subscriber events.Subscriber, log *zap.Logger) *WSHub {
	return &WSHub{
		cfg:         cfg,
		subscriber:  subscriber,
		log:         log,
		connections: make(map[string][]*websocket.Conn),
	}
}

func (h *WSHub) Start(ctx context.Context) {
	_ = h.subscriber.Subscribe(ctx, events.StreamEscrow, func(event events.Event) {
		wallets := eventWallets(event)
		if len(wallets) == 0 {
			h.broadcast(event)
			return
		}
		for _, w := range wallets {
			h.SendToWallet(w, event)
		}
	})
}

// eventWallets extracts the wallets an event is addressed to. Escrow
// events name their buyer and seller; events without wallet fields go
// to everyone.
func eventWallets(event events.Event) []string {
	var wallets []string
	for _, key := range []string{"buyer_wallet", "seller_wallet"} {
		if w, ok := event.Payload[key].(string); ok && w != "" {
			wallets = append(wallets, w)
		}
	}
	return wallets
}

func (h *WSHub) broadcast(event events.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, conns := range h.connections {
		for _, conn := range conns {
			_ = conn.WriteMessage(websocket.TextMessage, data)
		}
	}
}

func (h *WSHub) SendToWallet(wallet string, event events.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, conn := range h.connections[wallet] {
		_ = conn.WriteMessage(websocket.TextMessage, data)
	}
}

// WSUpgradeMiddleware checks for websocket upgrade
func WSUpgradeMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}
}

func (h *WSHub) HandleWS(conn *websocket.Conn) {
	tokenStr := conn.Query("token")
	if tokenStr == "" {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"missing token"}`))
		conn.Close()
		return
	}

	claims, err := auth.ParseJWT(h.cfg.JWTSecret, tokenStr)
	if err != nil {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"invalid token"}`))
		conn.Close()
		return
	}

	wallet := claims.WalletAddress

	h.mu.Lock()
	h.connections[wallet] = append(h.connections[wallet], conn)
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		conns := h.connections[wallet]
		for i, c := range conns {
			if c == conn {
				h.connections[wallet] = append(conns[:i], conns[i+1:]...)
				break
			}
		}
		if len(h.connections[wallet]) == 0 {
			delete(h.connections, wallet)
		}
		h.mu.Unlock()
		conn.Close()
	}()

	// Read loop (keep alive / pings)
	for {
		_, _, err := conn.ReadMessage()
		if err != nil {
			break
		}
	}
}
