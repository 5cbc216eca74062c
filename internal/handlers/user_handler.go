package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"loopchat_backend/internal/dto"
	"loopchat_backend/internal/middleware"
	"loopchat_backend/internal/services"
)

type UserHandler struct {
	*BaseHandler
	users *services.UserService
}

func NewUserHandler(base *BaseHandler, users *services.UserService) *UserHandler {
	return &UserHandler{BaseHandler: base, users: users}
}

func (h *UserHandler) RegisterRoutes(rg *gin.RouterGroup) {
	grp := rg.Group("/users")
	grp.Use(middleware.AuthMiddleware())
	{
		grp.GET("/me", h.Me)
		grp.PATCH("/me", h.Update)
	}
}

func (h *UserHandler) Me(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	view, err := h.users.GetByID(userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *UserHandler) Update(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	var input dto.UpdateUserInput
	if !h.BindAndValidateJSON(c, &input) {
		return
	}
	view, err := h.users.Update(userID, input)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}
