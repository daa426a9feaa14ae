package websocket

import (
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// ServeWs attaches a live RMA feed connection for one company user.
func ServeWs(hub *Hub, c *websocket.Conn, companyID, userID uuid.UUID) {
	client := &Client{Hub: hub, Conn: c, CompanyID: companyID, UserID: userID, Send: make(chan []byte, 256)}
	client.Hub.register <- client

	go client.writePump()
	client.readPump()
}
