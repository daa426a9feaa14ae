package handler

import (
	"rma-engine-be/internal/pkg/logger"
	"rma-engine-be/internal/pkg/serverutils"
	internalWS "rma-engine-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// LiveHandler upgrades authenticated requests to the per-company RMA feed.
type LiveHandler struct {
	hub    *internalWS.Hub
	auth   fiber.Handler
	logger logger.ILogger
}

func NewLiveHandler(hub *internalWS.Hub, auth fiber.Handler, log logger.ILogger) *LiveHandler {
	return &LiveHandler{
		hub:    hub,
		auth:   auth,
		logger: log,
	}
}

func (h *LiveHandler) RegisterRoutes(r fiber.Router) {
	// Browsers cannot set headers on a websocket handshake, so the token may
	// also arrive as ?token=.
	r.Get("/rma/live", h.auth, h.ServeWs)
}

// ServeWs handles websocket requests from the peer.
func (h *LiveHandler) ServeWs(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	p := serverutils.GetPrincipal(c)
	return websocket.New(func(conn *websocket.Conn) {
		details := map[string]interface{}{
			"company_id": p.CompanyID.String(),
			"user_id":    p.UserID.String(),
		}
		h.logger.Info("HUB", "Live session started", details)
		internalWS.ServeWs(h.hub, conn, p.CompanyID, p.UserID)
		h.logger.Info("HUB", "Live session ended", details)
	})(c)
}
