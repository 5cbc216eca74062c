package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"loopchat_backend/internal/dto"
	"loopchat_backend/internal/middleware"
	chatService "loopchat_backend/internal/services/chat"
	"loopchat_backend/pkg/apperrors"
)

// ChatHandler is the REST surface over chats: lifecycle, membership,
// admin roles, settings/tags, message search, pins and the action log.
// The realtime surface goes through the websocket dispatcher; both feed
// the same services.
type ChatHandler struct {
	*BaseHandler
	chats    *chatService.ChatService
	messages *chatService.MessageService
}

func NewChatHandler(base *BaseHandler, chats *chatService.ChatService, messages *chatService.MessageService) *ChatHandler {
	return &ChatHandler{BaseHandler: base, chats: chats, messages: messages}
}

func (h *ChatHandler) RegisterRoutes(rg *gin.RouterGroup) {
	grp := rg.Group("/chats")
	grp.Use(middleware.AuthMiddleware())
	{
		grp.POST("", h.Create)
		grp.GET("", h.List)
		grp.GET("/:id", h.Get)
		grp.PATCH("/:id", h.Update)
		grp.DELETE("/:id", h.Delete)

		grp.POST("/:id/members", h.AddMembers)
		grp.DELETE("/:id/members/:userId", h.RemoveMember)
		grp.POST("/:id/leave", h.Leave)
		grp.POST("/:id/admins/:userId", h.Promote)
		grp.DELETE("/:id/admins/:userId", h.Demote)

		grp.GET("/:id/messages/search", h.SearchMessages)
		grp.GET("/:id/pins", h.ListPinned)
		grp.GET("/:id/actions", h.ActionLog)
	}
}

func (h *ChatHandler) Create(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	var input dto.CreateChatInput
	if !h.BindAndValidateJSON(c, &input) {
		return
	}
	view, err := h.chats.CreateChat(userID, input)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

func (h *ChatHandler) List(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	views, err := h.chats.GetUserChats(userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

func (h *ChatHandler) Get(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	view, err := h.chats.HydratedChat(c.Param("id"), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *ChatHandler) Update(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	var input dto.UpdateChatInput
	if !h.BindAndValidateJSON(c, &input) {
		return
	}
	view, err := h.chats.UpdateChat(c.Param("id"), userID, input)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *ChatHandler) Delete(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	if err := h.chats.DeleteChat(c.Param("id"), userID); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ChatHandler) AddMembers(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	var input dto.AddMembersInput
	if !h.BindAndValidateJSON(c, &input) {
		return
	}
	view, err := h.chats.AddMembers(c.Param("id"), userID, input.UserIDs)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *ChatHandler) RemoveMember(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	view, err := h.chats.RemoveMember(c.Param("id"), c.Param("userId"), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	if view == nil {
		// Removing the last participant deleted the chat.
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *ChatHandler) Leave(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	view, err := h.chats.RemoveMember(c.Param("id"), userID, userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	if view == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *ChatHandler) Promote(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	view, err := h.chats.Promote(c.Param("id"), c.Param("userId"), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *ChatHandler) Demote(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	view, err := h.chats.Demote(c.Param("id"), c.Param("userId"), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *ChatHandler) SearchMessages(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	query := c.Query("q")
	if query == "" {
		h.HandleServiceError(c, apperrors.NewBadRequestError("query parameter 'q' is required"))
		return
	}
	views, err := h.messages.Search(c.Param("id"), userID, query)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

func (h *ChatHandler) ListPinned(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	views, err := h.messages.ListPinned(c.Param("id"), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

func (h *ChatHandler) ActionLog(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	limit := ParseQueryInt(c, "limit", 50)
	entries, err := h.chats.GetActionLog(c.Param("id"), userID, limit)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}
