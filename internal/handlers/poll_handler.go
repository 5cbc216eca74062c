package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"loopchat_backend/internal/dto"
	"loopchat_backend/internal/middleware"
	chatService "loopchat_backend/internal/services/chat"
)

type PollHandler struct {
	*BaseHandler
	polls *chatService.PollService
}

func NewPollHandler(base *BaseHandler, polls *chatService.PollService) *PollHandler {
	return &PollHandler{BaseHandler: base, polls: polls}
}

func (h *PollHandler) RegisterRoutes(rg *gin.RouterGroup) {
	chats := rg.Group("/chats")
	chats.Use(middleware.AuthMiddleware())
	{
		chats.POST("/:id/polls", h.Create)
	}
	polls := rg.Group("/polls")
	polls.Use(middleware.AuthMiddleware())
	{
		polls.GET("/:id", h.Get)
		polls.POST("/:id/vote", h.Vote)
	}
}

func (h *PollHandler) Create(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	var input dto.CreatePollInput
	if !h.BindAndValidateJSON(c, &input) {
		return
	}
	view, err := h.polls.Create(c.Param("id"), userID, input)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

func (h *PollHandler) Get(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	view, err := h.polls.Get(c.Param("id"), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *PollHandler) Vote(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	var input dto.VoteInput
	if !h.BindAndValidateJSON(c, &input) {
		return
	}
	view, err := h.polls.Vote(c.Param("id"), input.OptionID, userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}
