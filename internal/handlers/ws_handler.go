package handlers

import (
	"github.com/gin-gonic/gin"

	"loopchat_backend/ws"
)

// WSHandler upgrades authenticated requests to websocket connections.
type WSHandler struct {
	*BaseHandler
	manager  *ws.Manager
	services *ws.Services
}

func NewWSHandler(base *BaseHandler, manager *ws.Manager, services *ws.Services) *WSHandler {
	return &WSHandler{BaseHandler: base, manager: manager, services: services}
}

func (h *WSHandler) Serve(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	ws.ServeWS(h.manager, h.services, c.Writer, c.Request, userID)
}
